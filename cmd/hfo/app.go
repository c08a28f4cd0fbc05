package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/obsidian-forge/hfo/pkg/config"
	"github.com/obsidian-forge/hfo/pkg/registry"
	"github.com/obsidian-forge/hfo/pkg/rootmarker"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// app bundles the shared dependencies every subcommand needs: the
// resolved root, loaded config, open event store, publisher, and daemon
// registry.
type app struct {
	root   string
	cfg    *config.Config
	store  *stigmergy.Store
	pub    *stigmergy.Publisher
	reg    *registry.Registry
}

// newApp resolves the project root, loads configuration, opens the event
// store, and builds the daemon registry. source tags the Publisher's
// "source" field with the calling subcommand's identity (§4.2).
func newApp(source string) (*app, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	store, err := stigmergy.Open(stigmergy.DefaultConfig(filepath.Join(cfg.Paths.StateDir, "stigmergy.db")))
	if err != nil {
		return nil, err
	}

	pub := stigmergy.NewPublisher(store, source, cfg.Generation)

	reg := registry.New()
	if err := registry.RegisterBuiltins(reg); err != nil {
		store.Close()
		return nil, err
	}
	if _, statErr := os.Stat(cfg.Paths.DaemonsCatalog); statErr == nil {
		if err := reg.LoadFile(cfg.Paths.DaemonsCatalog); err != nil {
			store.Close()
			return nil, err
		}
	}

	return &app{root: root, cfg: cfg, store: store, pub: pub, reg: reg}, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// resolveRoot honors --root over HFO_ROOT over the upward marker walk.
func resolveRoot() (string, error) {
	if rootOverride != "" {
		return filepath.Clean(rootOverride), nil
	}
	return rootmarker.Resolve()
}

// printResult renders v as JSON when --json was passed, otherwise via
// fallback, a human-oriented formatter. §6.4: "--json flag on any command
// produces machine-readable output on stdout and suppresses human
// formatting."
func printResult(v any, fallback func()) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fallback()
	return nil
}

// printJSONLine is a convenience for commands whose human-mode output is
// just "print one line".
func printJSONLine(v any, line string, args ...any) error {
	return printResult(v, func() { fmt.Printf(line+"\n", args...) })
}

// withTimeoutBackground is a convenience for commands that don't have a
// natural parent context (cobra's RunE has none wired in by default).
func withTimeoutBackground() context.Context {
	return context.Background()
}
