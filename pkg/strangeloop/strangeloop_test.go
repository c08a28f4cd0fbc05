package strangeloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

type fakeCheap struct {
	discovery Discovery
	lastIDs   []string
	lastBatch int
}

func (f *fakeCheap) Run(ctx context.Context, referencedIDs []string, batchSize int) (Discovery, error) {
	f.lastIDs = referencedIDs
	f.lastBatch = batchSize
	return f.discovery, nil
}

type fakeExpensive struct {
	enrichment Enrichment
	lastPicked []string
	lastBatch  int
}

func (f *fakeExpensive) Run(ctx context.Context, prioritizedIDs []string, batchSize int) (Enrichment, error) {
	f.lastPicked = prioritizedIDs
	f.lastBatch = batchSize
	return f.enrichment, nil
}

type fakePool struct {
	candidates []string
}

func (f *fakePool) RandomCandidates(ctx context.Context, n int) ([]string, error) {
	if n > len(f.candidates) {
		n = len(f.candidates)
	}
	return f.candidates[:n], nil
}

func newTestStore(t *testing.T) (*stigmergy.Store, *stigmergy.Publisher) {
	t.Helper()
	store, err := stigmergy.Open(stigmergy.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, stigmergy.NewPublisher(store, "strangeloop", "gen91")
}

func TestCycleRunsCheapThenExpensiveThenPulse(t *testing.T) {
	store, pub := newTestStore(t)
	cheap := &fakeCheap{discovery: Discovery{Clusters: []string{"c1"}, TouchedIDs: []string{"e1"}}}
	expensive := &fakeExpensive{enrichment: Enrichment{AffectedIDs: []string{"e1"}}}

	w := New(store, pub, "gen91", cheap, expensive, nil, func(ctx context.Context) Pressure { return PressureNominal })
	_, err := w.Cycle(context.Background())
	require.NoError(t, err)

	discoveryCount, err := store.CountByPattern(context.Background(), "hfo.gen91.p4.strangeloop.discovery", 0)
	require.NoError(t, err)
	require.Equal(t, 1, discoveryCount)

	enrichmentCount, err := store.CountByPattern(context.Background(), "hfo.gen91.p4.strangeloop.enrichment", 0)
	require.NoError(t, err)
	require.Equal(t, 1, enrichmentCount)

	pulseCount, err := store.CountByPattern(context.Background(), "hfo.gen91.p4.strangeloop.pulse", 0)
	require.NoError(t, err)
	require.Equal(t, 1, pulseCount)

	require.Equal(t, []string{"c1"}, expensive.lastPicked)
}

func TestCriticalPressureSkipsBothAgents(t *testing.T) {
	store, pub := newTestStore(t)
	cheap := &fakeCheap{}
	expensive := &fakeExpensive{}

	w := New(store, pub, "gen91", cheap, expensive, nil, func(ctx context.Context) Pressure { return PressureCritical })
	_, err := w.Cycle(context.Background())
	require.NoError(t, err)

	require.Nil(t, cheap.lastIDs)
	require.Equal(t, 0, cheap.lastBatch)
	require.Nil(t, expensive.lastPicked)
}

func TestColdRestartWithNoHistoryStillRunsCorrectly(t *testing.T) {
	store, pub := newTestStore(t)
	cheap := &fakeCheap{}

	w := New(store, pub, "gen91", cheap, nil, nil, func(ctx context.Context) Pressure { return PressureIdle })
	_, err := w.Cycle(context.Background())
	require.NoError(t, err)
	require.Empty(t, cheap.lastIDs)
}

func TestExpensivePrioritizesClustersThenOutliersThenRandomFallback(t *testing.T) {
	store, pub := newTestStore(t)
	cheap := &fakeCheap{discovery: Discovery{Clusters: []string{"c1"}, Outliers: []string{"o1"}}}
	expensive := &fakeExpensive{}
	pool := &fakePool{candidates: []string{"r1", "r2", "r3"}}

	w := New(store, pub, "gen91", cheap, expensive, pool, func(ctx context.Context) Pressure { return PressureIdle })
	_, err := w.Cycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"c1", "o1", "r1", "r2", "r3"}, expensive.lastPicked)
}

func TestRunCheapReadsPriorEnrichmentIDs(t *testing.T) {
	store, pub := newTestStore(t)

	_, _, err := pub.Publish(context.Background(), "hfo.gen91.p4.strangeloop.enrichment", "strangeloop/enrichment", map[string]any{"affected_ids": []string{"a1", "a2"}})
	require.NoError(t, err)

	cheap := &fakeCheap{}
	w := New(store, pub, "gen91", cheap, nil, nil, func(ctx context.Context) Pressure { return PressureNominal })
	_, err = w.Cycle(context.Background())
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"a1", "a2"}, cheap.lastIDs)
}
