package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidian-forge/hfo/pkg/adversarial"
	"github.com/obsidian-forge/hfo/pkg/corpus"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

var adversarialLoop loopFlags
var adversarialStatusOnly bool

var adversarialCmd = &cobra.Command{
	Use:   "adversarial",
	Short: "strife/splendor classification of recent events (C8 Adversarial Worker)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("adversarial")
		if err != nil {
			return err
		}
		defer a.Close()

		if adversarialStatusOnly {
			event, found, err := a.store.ReadLastOfType(withTimeoutBackground(), "hfo."+a.cfg.Generation+".p1.adversarial.heartbeat")
			if err != nil {
				return err
			}
			return printStatus("adversarial", event, found)
		}

		w := adversarial.New(a.store, a.pub, a.cfg.Generation, corpus.NullDocumentScanner{})

		opts := worker.Options{
			Name:         "adversarial",
			Generation:   a.cfg.Generation,
			Port:         stigmergy.PortP1,
			BaseInterval: 30 * time.Second,
		}
		return runLoop("adversarial", a.pub, opts, w.Cycle, adversarialLoop)
	},
}

func init() {
	adversarialCmd.Flags().BoolVar(&adversarialLoop.single, "single", false, "run one classification cycle and exit")
	adversarialCmd.Flags().BoolVar(&adversarialStatusOnly, "health", false, "show the last recorded heartbeat, without running a cycle")
	adversarialCmd.Flags().BoolVar(&adversarialLoop.dryRun, "dry-run", false, "validate wiring without running a cycle")
	adversarialCmd.Flags().IntVar(&adversarialLoop.maxCycles, "max-cycles", 0, "run this many cycles, sleeping BaseInterval between, then exit")
	adversarialCmd.Flags().DurationVar(&adversarialLoop.interval, "interval", 0, "override the default cycle interval")
}
