package anchor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsidian-forge/hfo/pkg/probe"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

func newTestAnchor(t *testing.T) (*Anchor, *stigmergy.Store) {
	t.Helper()
	store, err := stigmergy.Open(stigmergy.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pub := stigmergy.NewPublisher(store, "anchor-worker", "gen91")
	statePath := filepath.Join(t.TempDir(), "anchor.json")
	a := New(statePath, "gen91", pub, probe.Options{WorkingVolume: "."}, nil)
	return a, store
}

func TestAnchorThenCheckReportsNoDrift(t *testing.T) {
	a, _ := newTestAnchor(t)
	ctx := context.Background()

	_, err := a.Anchor(ctx)
	require.NoError(t, err)

	diff, err := a.Check(ctx)
	require.NoError(t, err)
	require.False(t, diff.DriftDetected)
}

func TestCheckWithoutAnchorFails(t *testing.T) {
	a, _ := newTestAnchor(t)
	statePath := filepath.Join(t.TempDir(), "missing.json")
	a.statePath = statePath

	_, err := a.Check(context.Background())
	require.Error(t, err)
}

func TestCheckDetectsTamperedState(t *testing.T) {
	a, _ := newTestAnchor(t)
	ctx := context.Background()

	_, err := a.Anchor(ctx)
	require.NoError(t, err)

	// Overwrite the stored anchor_hash directly, simulating out-of-band
	// tampering with the state file.
	state, err := a.load()
	require.NoError(t, err)
	state.Baseline.AnchorHash = "0000000000000000000000000000000000000000000000000000000000000"
	require.NoError(t, a.persist(state))

	_, err = a.Check(ctx)
	require.Error(t, err)
}

func TestReleaseDeactivatesAnchor(t *testing.T) {
	a, _ := newTestAnchor(t)
	ctx := context.Background()

	_, err := a.Anchor(ctx)
	require.NoError(t, err)

	driftCount, err := a.Release(ctx)
	require.NoError(t, err)
	require.Zero(t, driftCount)

	state, err := a.load()
	require.NoError(t, err)
	require.False(t, state.Active)
}

func TestCompareFlagsMemoryVerdictChange(t *testing.T) {
	before := Baseline{Probe: probe.Report{RAM: probe.Memory{Verdict: probe.VerdictOK}}}
	after := Baseline{Probe: probe.Report{RAM: probe.Memory{Verdict: probe.VerdictCritical}}}

	diff := Compare(before, after)
	require.True(t, diff.DriftDetected)
}

// Re-saving the state file (e.g. an editor's trailing-newline normalization)
// must never flip a subsequent Check into TAMPERED, since verifyIntegrity
// recomputes the hash from the decoded struct, not the raw bytes on disk.
func TestCheckToleratesReserializedWhitespace(t *testing.T) {
	a, _ := newTestAnchor(t)
	ctx := context.Background()

	_, err := a.Anchor(ctx)
	require.NoError(t, err)

	state, err := a.load()
	require.NoError(t, err)
	indented, err := json.MarshalIndent(state, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(a.statePath, append(indented, '\n'), 0o644))

	diff, err := a.Check(ctx)
	require.NoError(t, err)
	require.False(t, diff.DriftDetected)
}

func TestCompareIgnoresMemoryPercentBelowThreshold(t *testing.T) {
	before := Baseline{Probe: probe.Report{RAM: probe.Memory{Verdict: probe.VerdictOK, Percent: 50}}}
	after := Baseline{Probe: probe.Report{RAM: probe.Memory{Verdict: probe.VerdictOK, Percent: 55}}}

	diff := Compare(before, after)
	require.False(t, diff.DriftDetected)
}
