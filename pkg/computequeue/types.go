// Package computequeue implements the C12 Compute Queue: two serialized
// lanes (cheap, expensive) draining a shared priority order. See spec.md
// §4.12.
package computequeue

import (
	"context"
	"time"
)

// Lane is one of the two logical lanes.
type Lane string

const (
	LaneCheap     Lane = "cheap"
	LaneExpensive Lane = "expensive"
)

// Status is a completed item's terminal state.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Item is one unit of submitted work.
type Item struct {
	ID          string
	Priority    int // lower = more urgent
	Lane        Lane
	WorkType    string
	Payload     any
	SubmittedAt time.Time
}

// Result is what a completed item yields (§4.12).
type Result struct {
	ID      string
	Lane    Lane
	Status  Status
	Elapsed time.Duration
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler executes one item's work_type within a lane. Handlers that call
// out to a model should expect Run to have already gated them behind the
// queue's rate limiter (§5 "models are rate-limited resources").
type Handler func(ctx context.Context, item Item) (any, error)
