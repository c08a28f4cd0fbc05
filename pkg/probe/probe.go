package probe

import (
	"context"
	"time"
)

// DefaultTimeout is used when Options.PerDimensionTimeout is zero.
const DefaultTimeout = 2 * time.Second

// Probe captures all six dimensions in a single invocation. Each dimension
// runs under its own timeout and independently fails closed to its worst
// verdict on error or timeout (§4.3) — one slow dimension never blocks or
// corrupts the others.
func Probe(ctx context.Context, opts Options) Report {
	timeout := opts.PerDimensionTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	report := Report{
		RAM: withTimeout(ctx, timeout, captureMemory, Memory{Verdict: VerdictCritical}),
		GPU: withTimeout(ctx, timeout, captureGPU, GPU{Verdict: VerdictCritical}),
		NPU: withTimeout(ctx, timeout, captureNPU, NPU{Verdict: VerdictCritical}),
	}
	report.System = withTimeoutOpts(ctx, timeout, opts, captureSystemVolume, System{})
	report.AI = withTimeoutOpts(ctx, timeout, opts, captureAI, AI{Verdict: VerdictUnreachable})
	report.SSOT = withTimeoutOpts(ctx, timeout, opts, captureSSOT, SSOT{})
	report.Status = rollup(report)
	return report
}

// withTimeout runs capture under a bounded context, falling back to
// worstCase if capture panics, errors, or the timeout elapses.
func withTimeout[T any](ctx context.Context, timeout time.Duration, capture func(context.Context) (T, error), worstCase T) T {
	return withTimeoutOpts(ctx, timeout, Options{}, func(c context.Context, _ Options) (T, error) {
		return capture(c)
	}, worstCase)
}

func withTimeoutOpts[T any](ctx context.Context, timeout time.Duration, opts Options, capture func(context.Context, Options) (T, error), worstCase T) T {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: errPanic(r)}
			}
		}()
		v, err := capture(cctx, opts)
		ch <- result{val: v, err: err}
	}()

	select {
	case <-cctx.Done():
		return worstCase
	case res := <-ch:
		if res.err != nil {
			return worstCase
		}
		return res.val
	}
}

// rollup derives the top-level status from the worst dimension verdict,
// excluding informational dimensions (system, ssot carry no verdict).
func rollup(r Report) Status {
	worst := StatusHealthy
	bump := func(s Status) {
		switch {
		case s == StatusCritical:
			worst = StatusCritical
		case s == StatusWarning && worst != StatusCritical:
			worst = StatusWarning
		}
	}

	bump(verdictToStatus(r.RAM.Verdict))
	bump(verdictToStatus(r.GPU.Verdict))
	bump(verdictToStatus(r.NPU.Verdict))
	bump(verdictToStatus(r.AI.Verdict))

	if worst == StatusHealthy && (r.GPU.Verdict == VerdictNoGPU || r.NPU.Verdict == VerdictNoRuntime || r.NPU.Verdict == VerdictNoDevice || r.AI.Verdict == VerdictNoCreds) {
		return StatusFallback
	}
	return worst
}

func verdictToStatus(v Verdict) Status {
	switch v {
	case VerdictCritical, VerdictHot, VerdictAuthFailed, VerdictUnreachable:
		return StatusCritical
	case VerdictWarning, VerdictSlow, VerdictRateLimited:
		return StatusWarning
	default:
		return StatusHealthy
	}
}
