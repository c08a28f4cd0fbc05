package computequeue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// Queue routes submitted items to the cheap and expensive lanes, each
// drained by exactly one goroutine in (priority, submission_time) order
// (§4.12).
type Queue struct {
	pub        *stigmergy.Publisher
	generation string

	mu       sync.Mutex
	cond     *sync.Cond
	items    map[Lane]*laneHeap
	handlers map[Lane]map[string]Handler
	limiters map[Lane]*rate.Limiter
	draining bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	stats stats
}

// New constructs a Queue with empty cheap and expensive lanes.
func New(pub *stigmergy.Publisher, generation string) *Queue {
	q := &Queue{
		pub:        pub,
		generation: generation,
		items: map[Lane]*laneHeap{
			LaneCheap:     {},
			LaneExpensive: {},
		},
		handlers: map[Lane]map[string]Handler{
			LaneCheap:     {},
			LaneExpensive: {},
		},
		limiters: map[Lane]*rate.Limiter{},
		stopCh:   make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(q.items[LaneCheap])
	heap.Init(q.items[LaneExpensive])
	return q
}

// RegisterHandler binds a handler to a (lane, work_type) pair. Items
// submitted with no matching handler complete with StatusError.
func (q *Queue) RegisterHandler(lane Lane, workType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[lane][workType] = h
}

// SetRateLimiter installs a rate limiter gating model calls on one lane
// (§5 "models are rate-limited resources"). A nil limiter disables gating.
func (q *Queue) SetRateLimiter(lane Lane, limiter *rate.Limiter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.limiters[lane] = limiter
}

// Submit enqueues an item and returns its assigned ID. Lower Priority
// values drain first; within equal priority, earlier submissions drain
// first.
func (q *Queue) Submit(item Item) (string, error) {
	if item.Lane != LaneCheap && item.Lane != LaneExpensive {
		return "", herrors.New(herrors.KindValidation, fmt.Sprintf("unknown lane %q", item.Lane))
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.SubmittedAt = time.Now()

	q.mu.Lock()
	heap.Push(q.items[item.Lane], item)
	q.cond.Broadcast()
	q.mu.Unlock()
	return item.ID, nil
}

// Run starts the cheap and expensive lane workers and blocks until both
// exit. With drain=false they run until Stop is called or ctx is
// cancelled (daemon mode); with drain=true they exit as soon as both
// lanes run dry (one-shot CLI mode, e.g. "embed-all").
func (q *Queue) Run(ctx context.Context, drain bool) {
	q.mu.Lock()
	q.draining = drain
	q.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-done:
		}
	}()

	q.wg.Add(2)
	go q.runLane(ctx, LaneCheap)
	go q.runLane(ctx, LaneExpensive)
	q.wg.Wait()
}

// Stop signals both lane workers to stop after their current item and
// waits for them to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.stopCh) })
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}

// Depth reports the number of queued (not yet started) items per lane.
func (q *Queue) Depth() map[Lane]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return map[Lane]int{
		LaneCheap:     q.items[LaneCheap].Len(),
		LaneExpensive: q.items[LaneExpensive].Len(),
	}
}

func (q *Queue) bothEmptyLocked() bool {
	return q.items[LaneCheap].Len() == 0 && q.items[LaneExpensive].Len() == 0
}

func (q *Queue) stopped() bool {
	select {
	case <-q.stopCh:
		return true
	default:
		return false
	}
}
