package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

// loopFlags collects the flag set shared by every long-running worker
// subcommand (governance, adversarial, prospector, strange-loop): run one
// cycle and exit, run a bounded number of cycles, validate wiring without
// running anything, or run forever until signalled.
type loopFlags struct {
	single    bool
	dryRun    bool
	maxCycles int
	interval  time.Duration
}

// runLoop dispatches on loopFlags against a freshly-built worker.Cycle,
// following the same one-shot/bounded/forever split for every domain
// worker's CLI surface (§6.4).
func runLoop(name string, pub *stigmergy.Publisher, opts worker.Options, cycle worker.Cycle, f loopFlags) error {
	ctx := withTimeoutBackground()

	if f.dryRun {
		return printJSONLine(map[string]string{"status": "wiring ok", "worker": name}, "%s: dry-run, wiring ok", name)
	}

	if f.interval > 0 {
		opts.BaseInterval = f.interval
	}

	if f.single {
		tally, err := cycle(ctx)
		if err != nil {
			return err
		}
		return printResult(tally, func() { fmt.Printf("%s: cycle complete, tally=%v\n", name, tally.Extra) })
	}

	if f.maxCycles > 0 {
		var last worker.Tally
		for i := 0; i < f.maxCycles; i++ {
			tally, err := cycle(ctx)
			if err != nil {
				return err
			}
			last = tally
			if i < f.maxCycles-1 {
				time.Sleep(opts.BaseInterval)
			}
		}
		return printResult(last, func() { fmt.Printf("%s: %d cycles complete, last tally=%v\n", name, f.maxCycles, last.Extra) })
	}

	w := worker.New(opts, pub, cycle)
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	w.Start(sigCtx)
	<-sigCtx.Done()
	w.Stop()
	return printJSONLine(w.Snapshot(), "%s: stopped", name)
}

// printStatus is the common rendering for a --status query that snapshots
// a live worker's last heartbeat from the event trail instead of running
// one.
func printStatus(name string, event stigmergy.Event, found bool) error {
	if !found {
		return printJSONLine(map[string]string{"worker": name, "status": "no heartbeat recorded"}, "%s: no heartbeat recorded", name)
	}
	return printJSONLine(event, "%s: last heartbeat at %s", name, event.Timestamp)
}
