package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/registry"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

func writeSleeperScript(t *testing.T, dir string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("sleeper script grounded on a POSIX shebang; supervisor's process handling is platform-split, tested on the unix side")
	}
	path := filepath.Join(dir, "sleeper.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nsleep 30\n"), 0o755))
	return path
}

func newTestSupervisor(t *testing.T) (*Supervisor, *registry.Registry, *stigmergy.Store) {
	t.Helper()
	t.Setenv("HFO_DAEMONS_ENABLED", "true")

	store, err := stigmergy.Open(stigmergy.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pub := stigmergy.NewPublisher(store, "supervisor", "gen91")
	reg := registry.New()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "supervisor.json")
	s := New(statePath, "gen91", reg, pub, store)
	s.settleDelay = 20 * time.Millisecond
	s.banishWait = 200 * time.Millisecond
	return s, reg, store
}

func TestSummonUnknownKeyFails(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	_, err := s.Summon(context.Background(), "nope", nil, false, false)
	require.Error(t, err)
}

func TestSummonFailsPreflightWhenScriptMissing(t *testing.T) {
	s, reg, _ := newTestSupervisor(t)
	require.NoError(t, reg.Register(registry.Spec{Key: "ghost", Script: "/no/such/binary"}))

	_, err := s.Summon(context.Background(), "ghost", nil, false, false)
	require.Error(t, err)
	require.Equal(t, herrors.KindPreflightFailed, herrors.KindOf(err))
}

func TestSummonFailsPreflightWhenDaemonDisabled(t *testing.T) {
	s, reg, _ := newTestSupervisor(t)
	dir := t.TempDir()
	script := writeSleeperScript(t, dir)
	require.NoError(t, reg.Register(registry.Spec{Key: "quiet", Script: script, IsPersistent: true}))

	t.Setenv("HFO_DAEMON_QUIET_ENABLED", "false")
	_, err := s.Summon(context.Background(), "quiet", nil, false, false)
	require.Error(t, err)
	require.Equal(t, herrors.KindPreflightFailed, herrors.KindOf(err))
}

func TestSummonDryRunDoesNotSpawn(t *testing.T) {
	s, reg, _ := newTestSupervisor(t)
	dir := t.TempDir()
	script := writeSleeperScript(t, dir)
	require.NoError(t, reg.Register(registry.Spec{Key: "dry", Script: script, IsPersistent: true}))

	receipt, err := s.Summon(context.Background(), "dry", nil, true, false)
	require.NoError(t, err)
	require.True(t, receipt.DryRun)
	require.Zero(t, receipt.PID)
}

func TestSummonScryingBanishLifecycle(t *testing.T) {
	s, reg, _ := newTestSupervisor(t)
	dir := t.TempDir()
	script := writeSleeperScript(t, dir)
	require.NoError(t, reg.Register(registry.Spec{Key: "alive-daemon", Script: script, IsPersistent: true}))

	ctx := context.Background()
	receipt, err := s.Summon(ctx, "alive-daemon", nil, false, false)
	require.NoError(t, err)
	require.True(t, receipt.Alive)
	require.Positive(t, receipt.PID)

	views, err := s.Scrying("alive-daemon")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.True(t, views[0].Alive)

	require.NoError(t, s.Banish(ctx, "alive-daemon", false))

	views, err = s.Scrying("alive-daemon")
	require.Error(t, err) // removed from state after banish
	require.Nil(t, views)
}

// T8: summoning an already-running daemon again without --force is
// rejected as PREFLIGHT_FAILED on the no_live_process check, leaves the
// original process recorded untouched, and spawns nothing new.
func TestSummonTwiceWithoutForceIsRejectedAsAlreadyRunning(t *testing.T) {
	s, reg, _ := newTestSupervisor(t)
	dir := t.TempDir()
	script := writeSleeperScript(t, dir)
	require.NoError(t, reg.Register(registry.Spec{Key: "twice", Script: script, IsPersistent: true}))

	ctx := context.Background()
	first, err := s.Summon(ctx, "twice", nil, false, false)
	require.NoError(t, err)
	require.True(t, first.Alive)

	second, err := s.Summon(ctx, "twice", nil, false, false)
	require.Error(t, err)
	require.Equal(t, herrors.KindPreflightFailed, herrors.KindOf(err))
	require.Zero(t, second.PID)
	require.Contains(t, err.Error(), "already has a live process")

	views, err := s.Scrying("twice")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, first.PID, views[0].PID)
	require.True(t, views[0].Alive)

	require.NoError(t, forceKill(first.PID))
}

func TestBanishAlreadyDeadIsNotAnError(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	require.NoError(t, s.Banish(context.Background(), "never-summoned", false))
}

func TestWatchdogTickResurrectsPersistentDeadDaemon(t *testing.T) {
	s, reg, _ := newTestSupervisor(t)
	dir := t.TempDir()
	script := writeSleeperScript(t, dir)
	require.NoError(t, reg.Register(registry.Spec{Key: "resurrectable", Script: script, IsPersistent: true}))

	ctx := context.Background()
	receipt, err := s.Summon(ctx, "resurrectable", nil, false, false)
	require.NoError(t, err)

	// Simulate the process dying without going through Banish.
	require.NoError(t, forceKill(receipt.PID))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, s.WatchdogTick(ctx, true))

	views, err := s.Scrying("resurrectable")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.True(t, views[0].Alive)
	require.NotEqual(t, receipt.PID, views[0].PID)
}
