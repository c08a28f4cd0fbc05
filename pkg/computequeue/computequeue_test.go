package computequeue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

func newTestQueue(t *testing.T) (*Queue, *stigmergy.Store) {
	t.Helper()
	store, err := stigmergy.Open(stigmergy.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	pub := stigmergy.NewPublisher(store, "computequeue", "gen91")
	return New(pub, "gen91"), store
}

func TestSubmitOrdersByPriorityThenSubmissionTime(t *testing.T) {
	q, _ := newTestQueue(t)

	var mu sync.Mutex
	var order []string

	q.RegisterHandler(LaneCheap, "embed", func(ctx context.Context, item Item) (any, error) {
		mu.Lock()
		order = append(order, item.ID)
		mu.Unlock()
		return nil, nil
	})

	// Submit a low-priority item first, then two higher-priority items;
	// urgency (lower number) should drain first regardless of arrival.
	_, err := q.Submit(Item{ID: "low", Priority: 10, Lane: LaneCheap, WorkType: "embed"})
	require.NoError(t, err)
	_, err = q.Submit(Item{ID: "urgent-a", Priority: 1, Lane: LaneCheap, WorkType: "embed"})
	require.NoError(t, err)
	_, err = q.Submit(Item{ID: "urgent-b", Priority: 1, Lane: LaneCheap, WorkType: "embed"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Run(ctx, true)

	require.Equal(t, []string{"urgent-a", "urgent-b", "low"}, order)
}

func TestMissingHandlerYieldsErrorResult(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Submit(Item{ID: "x", Priority: 0, Lane: LaneExpensive, WorkType: "enrich"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Run(ctx, true)

	recent := q.Recent()
	require.Len(t, recent, 1)
	require.Equal(t, StatusError, recent[0].Status)
	require.Contains(t, recent[0].Error, "no handler registered")
}

func TestDrainExitsWhenBothLanesEmpty(t *testing.T) {
	q, _ := newTestQueue(t)
	q.RegisterHandler(LaneCheap, "embed", func(ctx context.Context, item Item) (any, error) { return "ok", nil })
	q.RegisterHandler(LaneExpensive, "enrich", func(ctx context.Context, item Item) (any, error) { return "ok", nil })

	_, err := q.Submit(Item{Priority: 0, Lane: LaneCheap, WorkType: "embed"})
	require.NoError(t, err)
	_, err = q.Submit(Item{Priority: 0, Lane: LaneExpensive, WorkType: "enrich"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		q.Run(context.Background(), true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run(drain=true) did not return once both lanes emptied")
	}

	completed, errored := q.Counts()
	require.Equal(t, 2, completed)
	require.Equal(t, 0, errored)
}

func TestStopSignalsRunningLaneWorkersToExit(t *testing.T) {
	q, _ := newTestQueue(t)
	q.RegisterHandler(LaneCheap, "embed", func(ctx context.Context, item Item) (any, error) { return nil, nil })

	done := make(chan struct{})
	go func() {
		q.Run(context.Background(), false)
		close(done)
	}()

	// Give the lane goroutines a moment to start blocking on an empty queue.
	time.Sleep(20 * time.Millisecond)
	q.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cause Run to return")
	}
}

func TestPerItemCompletionEventIsPublished(t *testing.T) {
	q, store := newTestQueue(t)
	q.RegisterHandler(LaneCheap, "embed", func(ctx context.Context, item Item) (any, error) { return "vec", nil })

	_, err := q.Submit(Item{Priority: 0, Lane: LaneCheap, WorkType: "embed"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Run(ctx, true)

	count, err := store.CountByPattern(context.Background(), "hfo.gen91.p5.computequeue.item_complete", 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRateLimiterGatesExpensiveLaneHandler(t *testing.T) {
	q, _ := newTestQueue(t)
	q.SetRateLimiter(LaneExpensive, rate.NewLimiter(rate.Every(50*time.Millisecond), 1))
	q.RegisterHandler(LaneExpensive, "enrich", func(ctx context.Context, item Item) (any, error) { return nil, nil })

	_, err := q.Submit(Item{ID: "a", Priority: 0, Lane: LaneExpensive, WorkType: "enrich"})
	require.NoError(t, err)
	_, err = q.Submit(Item{ID: "b", Priority: 0, Lane: LaneExpensive, WorkType: "enrich"})
	require.NoError(t, err)

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Run(ctx, true)
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	completed, errored := q.Counts()
	require.Equal(t, 2, completed)
	require.Equal(t, 0, errored)
}
