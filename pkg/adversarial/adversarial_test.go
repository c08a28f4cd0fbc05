package adversarial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

func newTestWorker(t *testing.T) (*Worker, *stigmergy.Store, *stigmergy.Publisher) {
	t.Helper()
	store, err := stigmergy.Open(stigmergy.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	pub := stigmergy.NewPublisher(store, "adversarial", "gen91")
	return New(store, pub, "gen91", nil), store, pub
}

func TestCycleClassifiesStrifeOnErrorEvent(t *testing.T) {
	w, store, _ := newTestWorker(t)
	ctx := context.Background()

	prospectorPub := stigmergy.NewPublisher(store, "prospector", "gen91")
	_, _, err := prospectorPub.Publish(ctx, "hfo.gen91.p2.prospector.error", "prospector/run", map[string]any{"detail": "boom"})
	require.NoError(t, err)

	_, err = w.Cycle(ctx)
	require.NoError(t, err)

	count, err := store.CountByPattern(ctx, "hfo.gen91.p1.adversarial.classification", 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	events, err := store.QueryByPattern(ctx, "hfo.gen91.p1.adversarial.classification", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestCycleClassifiesSplendorOnProposalEvent(t *testing.T) {
	w, store, _ := newTestWorker(t)
	ctx := context.Background()

	prospectorPub := stigmergy.NewPublisher(store, "prospector", "gen91")
	_, _, err := prospectorPub.Publish(ctx, "hfo.gen91.p2.prospector.proposal", "prospector/item", map[string]any{"title": "new thing"})
	require.NoError(t, err)

	_, err = w.Cycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, w.splendorCount)
	require.Equal(t, 0, w.strifeCount)
}

func TestCycleDoesNotReclassifyItsOwnOutput(t *testing.T) {
	w, store, _ := newTestWorker(t)
	ctx := context.Background()

	errPub := stigmergy.NewPublisher(store, "prospector", "gen91")
	_, _, err := errPub.Publish(ctx, "hfo.gen91.p2.prospector.error", "prospector/run", map[string]any{})
	require.NoError(t, err)

	_, err = w.Cycle(ctx)
	require.NoError(t, err)
	firstCount, err := store.CountByPattern(ctx, "hfo.gen91.p1.adversarial.classification", 0)
	require.NoError(t, err)
	require.Equal(t, 1, firstCount)

	// A second cycle with no new source events must not reclassify the
	// classification or health events the first cycle just wrote.
	_, err = w.Cycle(ctx)
	require.NoError(t, err)
	secondCount, err := store.CountByPattern(ctx, "hfo.gen91.p1.adversarial.classification", 0)
	require.NoError(t, err)
	require.Equal(t, 1, secondCount)
}

func TestCyclePublishesHealthSnapshotEveryCall(t *testing.T) {
	w, store, _ := newTestWorker(t)
	ctx := context.Background()

	_, err := w.Cycle(ctx)
	require.NoError(t, err)
	_, err = w.Cycle(ctx)
	require.NoError(t, err)

	count, err := store.CountByPattern(ctx, "hfo.gen91.p1.adversarial.health", 0)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCycleAcknowledgesPerceiveYieldRequests(t *testing.T) {
	w, store, _ := newTestWorker(t)
	ctx := context.Background()

	reqPub := stigmergy.NewPublisher(store, "governance", "gen91")
	_, _, err := reqPub.Publish(ctx, "hfo.gen91.p3.governance.perceive-yield", "governance/ask", map[string]any{})
	require.NoError(t, err)

	_, err = w.Cycle(ctx)
	require.NoError(t, err)

	count, err := store.CountByPattern(ctx, "hfo.gen91.p1.adversarial.acknowledgment", 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestGlobMatchHandlesWildcardsAcrossSegments(t *testing.T) {
	require.True(t, globMatch("hfo.*.*.*.error", "hfo.gen91.p2.prospector.error"))
	require.False(t, globMatch("hfo.*.*.*.error", "hfo.gen91.p2.prospector.proposal"))
	require.True(t, globMatch("hfo.*.infra.supervisor.death", "hfo.gen91.infra.supervisor.death"))
}
