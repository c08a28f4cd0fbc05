// Package worker implements the C7 Worker Skeleton: the tick/sense/act/
// publish/backoff loop every daemon embeds. See spec.md §4.7.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/probe"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// Cycle is the domain-specific body of one worker iteration, implemented
// by each of C8-C11. It returns tallies to fold into the heartbeat, or an
// error — workers never propagate errors by crashing (§7); the skeleton
// converts a returned error into an error event and a backoff instead.
type Cycle func(ctx context.Context) (Tally, error)

// Tally is the cumulative counter set a cycle reports; the skeleton sums
// it into the running heartbeat totals. Domain-specific keys live in
// Extra, e.g. {"classified": 3}.
type Tally struct {
	Extra map[string]any
}

// Heartbeat is what every cycle publishes (§4.7 "Mandatory properties").
type Heartbeat struct {
	Cycle            int64          `json:"cycle"`
	DurationMS       int64          `json:"duration_ms"`
	CumulativeTally  map[string]any `json:"cumulative_tally"`
	ResourcePressure probe.Status   `json:"resource_pressure"`
	LastError        string         `json:"last_error,omitempty"`
}

// Options configures a Worker.
type Options struct {
	Name         string // e.g. "adversarial" — used in event types and logs
	Generation   string
	Port         stigmergy.Port
	BaseInterval time.Duration
	MaxBackoff   time.Duration
	// SettleBound bounds how long a graceful shutdown waits for an
	// in-flight cycle to finish (§4.7 "Graceful shutdown").
	SettleBound time.Duration
	// ResourceGate, if set, is consulted before each cycle; a WARNING or
	// worse verdict causes the worker to skip the cycle and sleep instead
	// (§4.7 "wait_for_resource_headroom").
	ResourceGate func(ctx context.Context) probe.Status
}

// Worker runs Cycle in a loop per the §4.7 contract, publishing heartbeats
// and error events through a stigmergy.Publisher.
type Worker struct {
	opts Options
	pub  *stigmergy.Publisher
	run  Cycle

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.Mutex
	cycleNum  int64
	tallies   map[string]any
	lastError string
}

// New constructs a Worker. run is the domain-specific cycle body.
func New(opts Options, pub *stigmergy.Publisher, run Cycle) *Worker {
	if opts.BaseInterval <= 0 {
		opts.BaseInterval = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	if opts.SettleBound <= 0 {
		opts.SettleBound = 10 * time.Second
	}
	return &Worker{
		opts:    opts,
		pub:     pub,
		run:     run,
		stopCh:  make(chan struct{}),
		tallies: make(map[string]any),
	}
}

// Start runs the loop in a goroutine. initialize() (§4.7) is the caller's
// responsibility before Start, and finalize() is the caller's
// responsibility after Stop returns.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop signals cancellation and waits for the in-flight cycle to finish,
// bounded by SettleBound, then returns. Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Snapshot returns the current heartbeat state for --status/--health CLI
// flags, without waiting for the next cycle.
func (w *Worker) Snapshot() Heartbeat {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Heartbeat{
		Cycle:           w.cycleNum,
		CumulativeTally: copyTally(w.tallies),
		LastError:       w.lastError,
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker", w.opts.Name)
	log.Info("worker started")

	backoff := time.Duration(0)
	for {
		select {
		case <-w.stopCh:
			w.publishStop(ctx)
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			w.publishStop(context.Background())
			log.Info("context cancelled, worker shutting down")
			return
		default:
		}

		if w.opts.ResourceGate != nil {
			if status := w.opts.ResourceGate(ctx); status == probe.StatusWarning || status == probe.StatusCritical {
				w.sleep(w.opts.BaseInterval)
				continue
			}
		}

		cctx, cancel := context.WithTimeout(ctx, w.opts.SettleBound)
		start := time.Now()
		tally, err := w.runOnce(cctx)
		cancel()
		duration := time.Since(start)

		w.mu.Lock()
		w.cycleNum++
		cycleNum := w.cycleNum
		if err != nil {
			w.lastError = err.Error()
		} else {
			w.lastError = ""
			mergeTally(w.tallies, tally.Extra)
		}
		snapshot := copyTally(w.tallies)
		w.mu.Unlock()

		if err != nil {
			w.publishError(ctx, err)
			if backoff == 0 {
				backoff = time.Second
			} else {
				backoff *= 2
			}
			if backoff > w.opts.MaxBackoff {
				backoff = w.opts.MaxBackoff
			}
		} else {
			backoff = 0
		}

		hb := Heartbeat{
			Cycle:           cycleNum,
			DurationMS:      duration.Milliseconds(),
			CumulativeTally: snapshot,
			LastError:       w.currentError(),
		}
		w.publishHeartbeat(ctx, hb)

		select {
		case <-w.stopCh:
			w.publishStop(ctx)
			return
		default:
		}

		sleepFor := w.opts.BaseInterval
		if backoff > 0 {
			sleepFor = backoff
		}
		w.sleep(jitter(sleepFor))
	}
}

func (w *Worker) currentError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

// runOnce isolates the cycle call so a panicking Cycle becomes a plain
// error instead of crashing the worker goroutine (§4.7: "On any exception
// ... publish an error event", never crash).
func (w *Worker) runOnce(ctx context.Context) (tally Tally, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = herrors.New(herrors.KindInternal, "cycle panicked: "+recoverMessage(r))
		}
	}()
	return w.run(ctx)
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) eventType(action string) string {
	return stigmergy.NewTypeBuilder(w.opts.Generation, w.opts.Port, w.opts.Name).Type(action)
}

func (w *Worker) publishHeartbeat(ctx context.Context, hb Heartbeat) {
	if _, _, err := w.pub.Publish(ctx, w.eventType("heartbeat"), w.opts.Name, map[string]any{"heartbeat": hb}); err != nil {
		slog.Error("publish heartbeat failed", "worker", w.opts.Name, "error", err)
	}
}

func (w *Worker) publishError(ctx context.Context, cycleErr error) {
	kind := herrors.KindOf(cycleErr)
	data := map[string]any{"kind": string(kind), "message": cycleErr.Error()}
	if _, _, err := w.pub.Publish(ctx, w.eventType("error"), w.opts.Name, data); err != nil {
		slog.Error("publish error event failed", "worker", w.opts.Name, "error", err)
	}
}

func (w *Worker) publishStop(ctx context.Context) {
	if _, _, err := w.pub.Publish(ctx, w.eventType("stop"), w.opts.Name, nil); err != nil {
		slog.Error("publish stop event failed", "worker", w.opts.Name, "error", err)
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := base / 10
	if spread <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(int64(spread)))
}

func mergeTally(dst, src map[string]any) {
	for k, v := range src {
		if existing, ok := dst[k]; ok {
			if ei, eok := existing.(int); eok {
				if vi, vok := v.(int); vok {
					dst[k] = ei + vi
					continue
				}
			}
		}
		dst[k] = v
	}
}

func copyTally(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func recoverMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}
