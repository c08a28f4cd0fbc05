package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidian-forge/hfo/pkg/corpus"
	"github.com/obsidian-forge/hfo/pkg/models"
	"github.com/obsidian-forge/hfo/pkg/probe"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/strangeloop"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

var strangeLoopLoop loopFlags
var strangeLoopStatusOnly bool

var strangeLoopCmd = &cobra.Command{
	Use:   "strange-loop",
	Short: "paired cheap/expensive sub-agents over the entity pool (C11 Strange-Loop Worker)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("strange-loop")
		if err != nil {
			return err
		}
		defer a.Close()

		if strangeLoopStatusOnly {
			event, found, err := a.store.ReadLastOfType(withTimeoutBackground(), "hfo."+a.cfg.Generation+".p4.strange-loop.heartbeat")
			if err != nil {
				return err
			}
			return printStatus("strange-loop", event, found)
		}

		var expensiveClient corpus.ExpensiveModelClient
		if expensive, ok := a.cfg.Models["expensive"]; ok {
			expensiveClient = models.New(models.Config{
				BaseURL: expensive.BaseURL,
				Model:   expensive.Model,
				Mode:    models.Mode(expensive.Mode),
				APIKey:  expensive.APIKey,
				Timeout: expensive.Timeout,
			})
		}

		sensor := corpus.ProbeSensor{Opts: probe.Options{
			WorkingVolume:       a.root,
			Store:               corpus.StoreStatsAdapter{Store: a.store},
			PerDimensionTimeout: 3 * time.Second,
		}}.AsSensor()

		w := strangeloop.New(
			a.store, a.pub, a.cfg.Generation,
			corpus.ClusteringCheapAgent{},
			corpus.ModelExpensiveAgent{Model: expensiveClient},
			corpus.EventEntityPool{Store: a.store},
			sensor,
		)

		opts := worker.Options{
			Name:         "strange-loop",
			Generation:   a.cfg.Generation,
			Port:         stigmergy.PortP4,
			BaseInterval: 90 * time.Second,
		}
		return runLoop("strange-loop", a.pub, opts, w.Cycle, strangeLoopLoop)
	},
}

func init() {
	strangeLoopCmd.Flags().BoolVar(&strangeLoopLoop.single, "single", false, "run one tick and exit")
	strangeLoopCmd.Flags().BoolVar(&strangeLoopStatusOnly, "status", false, "show the last recorded heartbeat, without running a cycle")
	strangeLoopCmd.Flags().BoolVar(&strangeLoopLoop.dryRun, "dry-run", false, "validate wiring without running a cycle")
	strangeLoopCmd.Flags().IntVar(&strangeLoopLoop.maxCycles, "max-cycles", 0, "run this many ticks, sleeping BaseInterval between, then exit")
	strangeLoopCmd.Flags().DurationVar(&strangeLoopLoop.interval, "interval", 0, "override the default tick interval")
}
