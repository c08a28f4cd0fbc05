package prospector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsidian-forge/hfo/pkg/models"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

type fakeDocs struct {
	docs []Document
}

func (f *fakeDocs) UnconsideredDocuments(ctx context.Context, considered map[string]bool) ([]Document, error) {
	var out []Document
	for _, d := range f.docs {
		if !considered[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeKnown struct {
	names map[string]bool
}

func (f *fakeKnown) Contains(ctx context.Context, name string) (bool, error) {
	return f.names[name], nil
}

type fakeModel struct {
	response string
	err      error
}

func (f *fakeModel) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	return f.response, f.err
}

func newTestPublisher(t *testing.T) (*stigmergy.Publisher, *stigmergy.Store) {
	t.Helper()
	store, err := stigmergy.Open(stigmergy.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return stigmergy.NewPublisher(store, "prospector", "gen91"), store
}

func TestCycleEmitsOneProposalPerValidatedItem(t *testing.T) {
	pub, store := newTestPublisher(t)
	docs := &fakeDocs{docs: []Document{{ID: "doc-1", Title: "Forging", WordCount: 500}}}
	model := &fakeModel{response: `[{"name":"ember-weave","category":"technique","score":0.9}]`}

	w, err := New(docs, &fakeKnown{names: map[string]bool{}}, model, pub, "gen91", "", 5)
	require.NoError(t, err)

	_, err = w.Cycle(context.Background())
	require.NoError(t, err)

	count, err := store.CountByPattern(context.Background(), "hfo.gen91.p2.prospector.proposal", 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCycleSkipsItemsBelowScoreThreshold(t *testing.T) {
	pub, store := newTestPublisher(t)
	docs := &fakeDocs{docs: []Document{{ID: "doc-1", WordCount: 10}}}
	model := &fakeModel{response: `[{"name":"weak-find","category":"lore","score":0.1}]`}

	w, err := New(docs, &fakeKnown{names: map[string]bool{}}, model, pub, "gen91", "", 5)
	require.NoError(t, err)
	_, err = w.Cycle(context.Background())
	require.NoError(t, err)

	count, err := store.CountByPattern(context.Background(), "hfo.gen91.p2.prospector.proposal", 0)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestCycleSkipsAlreadyKnownItems(t *testing.T) {
	pub, store := newTestPublisher(t)
	docs := &fakeDocs{docs: []Document{{ID: "doc-1", WordCount: 10}}}
	model := &fakeModel{response: `[{"name":"old-news","category":"lore","score":0.9}]`}

	w, err := New(docs, &fakeKnown{names: map[string]bool{"old-news": true}}, model, pub, "gen91", "", 5)
	require.NoError(t, err)
	_, err = w.Cycle(context.Background())
	require.NoError(t, err)

	count, err := store.CountByPattern(context.Background(), "hfo.gen91.p2.prospector.proposal", 0)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestCycleParsesFencedMarkdownResponse(t *testing.T) {
	pub, store := newTestPublisher(t)
	docs := &fakeDocs{docs: []Document{{ID: "doc-1", WordCount: 10}}}
	model := &fakeModel{response: "```json\n[{\"name\":\"fenced-find\",\"category\":\"artifact\",\"score\":0.8}]\n```"}

	w, err := New(docs, &fakeKnown{names: map[string]bool{}}, model, pub, "gen91", "", 5)
	require.NoError(t, err)
	_, err = w.Cycle(context.Background())
	require.NoError(t, err)

	count, err := store.CountByPattern(context.Background(), "hfo.gen91.p2.prospector.proposal", 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestFullPassRestartPublishesPassComplete(t *testing.T) {
	pub, store := newTestPublisher(t)
	docs := &fakeDocs{docs: []Document{}}

	w, err := New(docs, &fakeKnown{names: map[string]bool{}}, &fakeModel{}, pub, "gen91", "", 5)
	require.NoError(t, err)
	_, err = w.Cycle(context.Background())
	require.NoError(t, err)

	count, err := store.CountByPattern(context.Background(), "hfo.gen91.p2.prospector.pass_complete", 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, 1, w.state.PassCount)
}

func TestSampleWeightedReturnsAllWhenBatchExceedsCandidates(t *testing.T) {
	docs := []Document{{ID: "a"}, {ID: "b"}}
	got := sampleWeighted(docs, 10)
	require.Len(t, got, 2)
}

func TestSampleWeightedRespectsBatchSize(t *testing.T) {
	docs := []Document{{ID: "a", WordCount: 1}, {ID: "b", WordCount: 1000}, {ID: "c", WordCount: 1}}
	got := sampleWeighted(docs, 2)
	require.Len(t, got, 2)
}

func TestParseResponseRejectsNonJSON(t *testing.T) {
	_, err := parseResponse("not json at all")
	require.Error(t, err)
}
