package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidian-forge/hfo/pkg/governance"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

var governanceLoop loopFlags
var governanceValidateEvery int64

var governanceCmd = &cobra.Command{
	Use:   "governance",
	Short: "information-flow subscriptions, rule evaluation, self-validation (C9 Governance Worker)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("governance")
		if err != nil {
			return err
		}
		defer a.Close()

		if governanceStatusOnly {
			event, found, err := a.store.ReadLastOfType(withTimeoutBackground(), "hfo."+a.cfg.Generation+".p2.governance.heartbeat")
			if err != nil {
				return err
			}
			return printStatus("governance", event, found)
		}

		w := governance.New(a.store, a.pub, a.cfg.Generation, governanceValidateEvery)
		if err := governance.RegisterBuiltins(w); err != nil {
			return err
		}

		opts := worker.Options{
			Name:         "governance",
			Generation:   a.cfg.Generation,
			Port:         stigmergy.PortP2,
			BaseInterval: 60 * time.Second,
		}
		return runLoop("governance", a.pub, opts, w.Cycle, governanceLoop)
	},
}

var governanceStatusOnly bool

func init() {
	governanceCmd.Flags().BoolVar(&governanceLoop.single, "evaluate", false, "run one governance cycle and exit")
	governanceCmd.Flags().BoolVar(&governanceStatusOnly, "status", false, "show the last recorded heartbeat, without running a cycle")
	governanceCmd.Flags().BoolVar(&governanceLoop.dryRun, "dry-run", false, "validate wiring without running a cycle")
	governanceCmd.Flags().IntVar(&governanceLoop.maxCycles, "max-cycles", 0, "run this many cycles, sleeping BaseInterval between, then exit")
	governanceCmd.Flags().DurationVar(&governanceLoop.interval, "interval", 0, "override the default cycle interval")
	governanceCmd.Flags().Int64Var(&governanceValidateEvery, "validate-every", 10, "run self-validation every Nth cycle (0 disables)")

	governanceCmd.Flags().Lookup("evaluate").Usage = "alias for --max-cycles 1"
}
