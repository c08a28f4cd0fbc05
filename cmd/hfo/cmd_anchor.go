package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidian-forge/hfo/pkg/anchor"
	"github.com/obsidian-forge/hfo/pkg/corpus"
	"github.com/obsidian-forge/hfo/pkg/models"
	"github.com/obsidian-forge/hfo/pkg/probe"
)

var anchorCmd = &cobra.Command{
	Use:   "anchor",
	Short: "resource baseline capture and drift detection (C4 Dimensional Anchor)",
}

var anchorGovFiles = []string{"hfo.yaml", "hfo.root"}

func newAnchor(a *app) *anchor.Anchor {
	statePath := a.root + "/.hfo/state/anchor.json"
	opts := probe.Options{
		WorkingVolume:       a.root,
		Store:               corpus.StoreStatsAdapter{Store: a.store},
		PerDimensionTimeout: 3 * time.Second,
	}
	if expensive, ok := a.cfg.Models["expensive"]; ok {
		opts.Pinger = models.New(models.Config{
			BaseURL: expensive.BaseURL,
			Model:   expensive.Model,
			Mode:    models.Mode(expensive.Mode),
			APIKey:  expensive.APIKey,
			Timeout: expensive.Timeout,
		})
	}
	return anchor.New(statePath, a.cfg.Generation, a.pub, opts, anchorGovFiles)
}

var anchorProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "bare resource probe, no anchor required",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("anchor")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := newAnchor(a).Probe(withTimeoutBackground())
		if err != nil {
			return err
		}
		return printJSONLine(report, "probe: status=%s", report.Status)
	},
}

var anchorAnchorCmd = &cobra.Command{
	Use:   "anchor",
	Short: "capture and persist a new baseline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("anchor")
		if err != nil {
			return err
		}
		defer a.Close()

		baseline, err := newAnchor(a).Anchor(withTimeoutBackground())
		if err != nil {
			return err
		}
		return printJSONLine(baseline, "anchor: set, hash=%s", baseline.AnchorHash)
	},
}

var anchorCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "compare current state against the active baseline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("anchor")
		if err != nil {
			return err
		}
		defer a.Close()

		diff, err := newAnchor(a).Check(withTimeoutBackground())
		if err != nil {
			return err
		}
		if diff.DriftDetected {
			if err := printResult(diff, func() { fmt.Println("check: DRIFT detected") }); err != nil {
				return err
			}
			return fmt.Errorf("anchor check: drift detected")
		}
		return printJSONLine(diff, "check: no drift")
	},
}

var anchorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "show the persisted anchor state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("anchor")
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := newAnchor(a).Status(withTimeoutBackground())
		if err != nil {
			return err
		}
		return printJSONLine(state, "status: active=%v checks=%d drifts=%d", state.Active, state.CheckCount, state.DriftCount)
	},
}

var anchorReleaseCmd = &cobra.Command{
	Use:   "release",
	Short: "deactivate the current anchor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("anchor")
		if err != nil {
			return err
		}
		defer a.Close()

		driftCount, err := newAnchor(a).Release(withTimeoutBackground())
		if err != nil {
			return err
		}
		return printJSONLine(map[string]int{"drift_count": driftCount}, "release: ok (drift_count=%d)", driftCount)
	},
}

func init() {
	anchorCmd.AddCommand(
		anchorProbeCmd,
		anchorAnchorCmd,
		anchorCheckCmd,
		anchorStatusCmd,
		anchorReleaseCmd,
	)
}
