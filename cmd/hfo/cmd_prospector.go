package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidian-forge/hfo/pkg/corpus"
	"github.com/obsidian-forge/hfo/pkg/models"
	"github.com/obsidian-forge/hfo/pkg/prospector"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

var prospectorLoop loopFlags
var prospectorStatusOnly bool
var prospectorBatchSize int

var prospectorCmd = &cobra.Command{
	Use:   "prospector",
	Short: "mines unconsidered documents for new structured items to propose (C10 Prospector Worker)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("prospector")
		if err != nil {
			return err
		}
		defer a.Close()

		if prospectorStatusOnly {
			event, found, err := a.store.ReadLastOfType(withTimeoutBackground(), "hfo."+a.cfg.Generation+".p3.prospector.heartbeat")
			if err != nil {
				return err
			}
			return printStatus("prospector", event, found)
		}

		var modelClient prospector.ModelClient
		if cheap, ok := a.cfg.Models["cheap"]; ok {
			modelClient = models.New(models.Config{
				BaseURL: cheap.BaseURL,
				Model:   cheap.Model,
				Mode:    models.Mode(cheap.Mode),
				APIKey:  cheap.APIKey,
				Timeout: cheap.Timeout,
			})
		}

		statePath := a.root + "/.hfo/state/prospector.json"
		w, err := prospector.New(corpus.NullDocumentStore{}, corpus.NullKnownItems{}, modelClient, a.pub, a.cfg.Generation, statePath, prospectorBatchSize)
		if err != nil {
			return err
		}

		opts := worker.Options{
			Name:         "prospector",
			Generation:   a.cfg.Generation,
			Port:         stigmergy.PortP3,
			BaseInterval: 120 * time.Second,
		}
		return runLoop("prospector", a.pub, opts, w.Cycle, prospectorLoop)
	},
}

func init() {
	prospectorCmd.Flags().BoolVar(&prospectorLoop.single, "once", false, "run one prospecting cycle and exit")
	prospectorCmd.Flags().BoolVar(&prospectorStatusOnly, "status", false, "show the last recorded heartbeat, without running a cycle")
	prospectorCmd.Flags().BoolVar(&prospectorLoop.dryRun, "dry-run", false, "validate wiring without running a cycle")
	prospectorCmd.Flags().IntVar(&prospectorBatchSize, "batch-size", 10, "documents considered per cycle")
	prospectorCmd.Flags().DurationVar(&prospectorLoop.interval, "interval", 0, "override the default cycle interval")
}
