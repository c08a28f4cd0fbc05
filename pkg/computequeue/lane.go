package computequeue

import (
	"container/heap"
	"context"
	"time"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// runLane is the single worker for one lane: pop, gate, execute, publish,
// repeat. Capacity rule (§4.12): exactly one item runs at a time per lane.
func (q *Queue) runLane(ctx context.Context, lane Lane) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for {
			if q.stopped() || ctx.Err() != nil {
				q.mu.Unlock()
				return
			}
			if q.items[lane].Len() > 0 {
				break
			}
			if q.draining && q.bothEmptyLocked() {
				q.mu.Unlock()
				return
			}
			q.cond.Wait()
		}
		item := heap.Pop(q.items[lane]).(Item)
		// Wake the other lane's worker: in drain mode it may be waiting on an
		// empty lane and must see that both lanes are now empty.
		q.cond.Broadcast()
		q.mu.Unlock()

		q.process(ctx, lane, item)
	}
}

// process runs one item's handler, gated by the lane's rate limiter if
// one is installed, and publishes the completion event regardless of
// outcome.
func (q *Queue) process(ctx context.Context, lane Lane, item Item) {
	start := time.Now()

	q.mu.Lock()
	handler := q.handlers[lane][item.WorkType]
	limiter := q.limiters[lane]
	q.mu.Unlock()

	if handler == nil {
		q.complete(ctx, item, Result{
			ID:     item.ID,
			Lane:   lane,
			Status: StatusError,
			Error:  herrors.New(herrors.KindValidation, "no handler registered for work_type "+item.WorkType).Error(),
		}, time.Since(start))
		return
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			q.complete(ctx, item, Result{
				ID:     item.ID,
				Lane:   lane,
				Status: StatusError,
				Error:  herrors.Wrap(herrors.KindRateLimited, "rate limiter wait", err).Error(),
			}, time.Since(start))
			return
		}
	}

	output, err := handler(ctx, item)
	elapsed := time.Since(start)
	if err != nil {
		q.complete(ctx, item, Result{ID: item.ID, Lane: lane, Status: StatusError, Error: err.Error()}, elapsed)
		return
	}
	q.complete(ctx, item, Result{ID: item.ID, Lane: lane, Status: StatusCompleted, Output: output}, elapsed)
}

func (q *Queue) complete(ctx context.Context, item Item, result Result, elapsed time.Duration) {
	result.Elapsed = elapsed
	q.stats.record(result)

	if q.pub == nil {
		return
	}
	_, _, _ = q.pub.Publish(ctx, q.eventType("item_complete"), "computequeue/"+item.WorkType, map[string]any{
		"id":         result.ID,
		"lane":       string(result.Lane),
		"work_type":  item.WorkType,
		"status":     string(result.Status),
		"elapsed_ms": elapsed.Milliseconds(),
		"output":     result.Output,
		"error":      result.Error,
	})
}

func (q *Queue) eventType(action string) string {
	return stigmergy.NewTypeBuilder(q.generation, stigmergy.PortP5, "computequeue").Type(action)
}
