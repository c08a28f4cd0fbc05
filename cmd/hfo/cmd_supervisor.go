package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obsidian-forge/hfo/pkg/supervisor"
)

var supervisorCmd = &cobra.Command{
	Use:   "supervisor",
	Short: "summon, banish, and watch daemons (C6 Supervisor / Spell Gate)",
}

var (
	summonForce     bool
	summonDryRun    bool
	summonExtraArgs []string
)

var supervisorSummonCmd = &cobra.Command{
	Use:   "summon <daemon_key>",
	Short: "preflight and spawn a daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("supervisor")
		if err != nil {
			return err
		}
		defer a.Close()

		s := newSupervisor(a)
		receipt, err := s.Summon(withTimeoutBackground(), args[0], summonExtraArgs, summonDryRun, summonForce)
		if err != nil {
			return err
		}
		if !receipt.Preflight.Passed || (!receipt.DryRun && !receipt.Alive) {
			return printResult(receipt, func() { fmt.Printf("summon %s: failed\n", args[0]) })
		}
		return printJSONLine(receipt, "summon %s: ok (pid=%d, dry_run=%v)", args[0], receipt.PID, receipt.DryRun)
	},
}

var supervisorBanishCmd = &cobra.Command{
	Use:   "banish <daemon_key>",
	Short: "terminate a daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("supervisor")
		if err != nil {
			return err
		}
		defer a.Close()

		s := newSupervisor(a)
		if err := s.Banish(withTimeoutBackground(), args[0], summonDryRun); err != nil {
			return err
		}
		if summonDryRun {
			return printJSONLine(map[string]string{"daemon_key": args[0], "status": "dry_run"}, "banish %s: dry run, would terminate, nothing terminated", args[0])
		}
		return printJSONLine(map[string]string{"daemon_key": args[0], "status": "banished"}, "banish %s: ok", args[0])
	},
}

var supervisorScryingCmd = &cobra.Command{
	Use:   "scrying [daemon_key]",
	Short: "status query for one daemon or the whole fleet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("supervisor")
		if err != nil {
			return err
		}
		defer a.Close()

		key := ""
		if len(args) == 1 {
			key = args[0]
		}
		views, err := newSupervisor(a).Scrying(key)
		if err != nil {
			return err
		}
		return printResult(views, func() {
			for _, v := range views {
				fmt.Printf("%s: pid=%d alive=%v\n", v.Key, v.PID, v.Alive)
			}
		})
	},
}

var supervisorSendingCmd = &cobra.Command{
	Use:   "sending",
	Short: "fleet view with last heartbeats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("supervisor")
		if err != nil {
			return err
		}
		defer a.Close()

		views, err := newSupervisor(a).Sending(withTimeoutBackground())
		if err != nil {
			return err
		}
		return printResult(views, func() {
			for _, v := range views {
				hb := "none"
				if v.LastHeartbeat != nil {
					hb = v.LastHeartbeat.Timestamp
				}
				fmt.Printf("%s: alive=%v last_heartbeat=%s\n", v.Key, v.Alive, hb)
			}
		})
	},
}

var watchdogAutoResurrect bool

var supervisorWatchdogCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "detect dead daemons, optionally resurrecting persistent ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("supervisor")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := newSupervisor(a).WatchdogTick(withTimeoutBackground(), watchdogAutoResurrect); err != nil {
			return err
		}
		return printJSONLine(map[string]string{"status": "ok"}, "watchdog: ok")
	},
}

var supervisorListCmd = &cobra.Command{
	Use:   "list",
	Short: "dump the daemon registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("supervisor")
		if err != nil {
			return err
		}
		defer a.Close()

		specs := a.reg.All()
		return printResult(specs, func() {
			for _, s := range specs {
				fmt.Printf("%s\t%s\tport=%s\tpersistent=%v\n", s.Key, s.DisplayName, s.Port, s.IsPersistent)
			}
		})
	},
}

func newSupervisor(a *app) *supervisor.Supervisor {
	statePath := a.root + "/.hfo/state/supervisor.json"
	return supervisor.New(statePath, a.cfg.Generation, a.reg, a.pub, a.store)
}

func init() {
	supervisorSummonCmd.Flags().BoolVar(&summonForce, "force", false, "banish and re-summon if already alive")
	supervisorSummonCmd.Flags().BoolVar(&summonDryRun, "dry-run", false, "run preflight only, do not spawn")
	supervisorSummonCmd.Flags().StringSliceVar(&summonExtraArgs, "extra-args", nil, "extra arguments appended to the daemon's default args")
	supervisorBanishCmd.Flags().BoolVar(&summonDryRun, "dry-run", false, "report what would be terminated, without doing it")
	supervisorWatchdogCmd.Flags().BoolVar(&watchdogAutoResurrect, "auto-resurrect", false, "re-summon persistent daemons found dead")

	supervisorCmd.AddCommand(
		supervisorSummonCmd,
		supervisorBanishCmd,
		supervisorScryingCmd,
		supervisorSendingCmd,
		supervisorWatchdogCmd,
		supervisorListCmd,
	)
}
