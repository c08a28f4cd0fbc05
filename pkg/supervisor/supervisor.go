package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/registry"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// Supervisor owns one state file and its lock. Per §4.6 "Concurrency",
// multiple concurrent supervisor invocations are not supported across
// processes; the lock file enforces that, and the in-process mutex
// enforces it across goroutines within one process.
type Supervisor struct {
	statePath  string
	lockPath   string
	generation string

	mu sync.Mutex

	registry     *registry.Registry
	pub          *stigmergy.Publisher
	store        *stigmergy.Store
	modelChecker ModelChecker
	lookupEnv    func(string) (string, bool)

	settleDelay time.Duration
	banishWait  time.Duration
}

// Option configures optional Supervisor dependencies.
type Option func(*Supervisor)

// WithModelChecker wires model-reachability preflight checks to checker.
func WithModelChecker(checker ModelChecker) Option {
	return func(s *Supervisor) { s.modelChecker = checker }
}

// New constructs a Supervisor persisting state to statePath (and a
// sibling lock file), reading the daemon catalog from reg, publishing
// through pub, and checking store reachability against store.
func New(statePath, generation string, reg *registry.Registry, pub *stigmergy.Publisher, store *stigmergy.Store, opts ...Option) *Supervisor {
	s := &Supervisor{
		statePath:   statePath,
		lockPath:    statePath + ".lock",
		generation:  generation,
		registry:    reg,
		pub:         pub,
		store:       store,
		lookupEnv:   os.LookupEnv,
		settleDelay: 3 * time.Second,
		banishWait:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) eventType(action string) string {
	return stigmergy.NewTypeBuilder(s.generation, stigmergy.PortInfra, "supervisor").Type(action)
}

// publishError records a supervisor-level failure as its own error event
// (§8 Scenario 3: a failed preflight spawns no process but still publishes
// a single error event) rather than only surfacing through the returned
// error.
func (s *Supervisor) publishError(ctx context.Context, key string, kind herrors.Kind, detail string) {
	data := map[string]any{"daemon_key": key, "kind": string(kind), "detail": detail}
	if _, _, err := s.pub.Publish(ctx, s.eventType("error"), "daemon/"+key, data); err != nil {
		slog.Error("publish supervisor error event failed", "daemon", key, "error", err)
	}
}

func (s *Supervisor) lock() (unlock func(), err error) {
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindValidation, "supervisor already locked by another invocation", err)
	}
	_ = f.Close()
	return func() { _ = os.Remove(s.lockPath) }, nil
}

func (s *Supervisor) load() (State, error) {
	raw, err := os.ReadFile(s.statePath)
	if os.IsNotExist(err) {
		return newState(), nil
	}
	if err != nil {
		return State{}, herrors.Wrap(herrors.KindInternal, "read supervisor state", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, herrors.Wrap(herrors.KindInternal, "unmarshal supervisor state", err)
	}
	if state.Daemons == nil {
		state.Daemons = make(map[string]DaemonState)
	}
	return state, nil
}

// persist writes state atomically: write temp file, fsync, rename (§6.3).
func (s *Supervisor) persist(state State) error {
	state.LastUpdated = time.Now().UTC()
	raw, err := json.Marshal(state)
	if err != nil {
		return herrors.Wrap(herrors.KindInternal, "marshal supervisor state", err)
	}
	if err := renameio.WriteFile(s.statePath, raw, 0o644); err != nil {
		return herrors.Wrap(herrors.KindInternal, "persist supervisor state", err)
	}
	return nil
}

// Summon resolves key against the registry, runs preflight, and (unless
// dryRun) spawns the daemon, records it, and publishes SUMMON/INCARNATE
// events (§4.6 "summon").
func (s *Supervisor) Summon(ctx context.Context, key string, extraArgs []string, dryRun, force bool) (SummonReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return SummonReceipt{}, err
	}
	defer unlock()

	spec, err := s.registry.Require(key)
	if err != nil {
		return SummonReceipt{}, err
	}

	state, err := s.load()
	if err != nil {
		return SummonReceipt{}, err
	}

	if force {
		if existing, ok := state.Daemons[key]; ok && existing.Alive {
			if err := s.banishLocked(ctx, &state, key); err != nil {
				return SummonReceipt{}, err
			}
		}
	}

	result := s.preflight(ctx, spec, force, state)
	args := append(append([]string{}, spec.DefaultArgs...), extraArgs...)
	commandLine := commandLineOf(spec.Script, args)

	if !result.Passed {
		detail := preflightDetail(result)
		s.publishError(ctx, key, herrors.KindPreflightFailed, detail)
		return SummonReceipt{}, herrors.New(herrors.KindPreflightFailed, detail)
	}

	receipt := SummonReceipt{DaemonKey: key, CommandLine: commandLine, Preflight: result, DryRun: dryRun}
	if dryRun {
		return receipt, nil
	}

	logFile, err := s.openLogFile(key)
	if err != nil {
		return SummonReceipt{}, err
	}
	defer logFile.Close()

	cmd := exec.Command(spec.Script, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return SummonReceipt{}, herrors.Wrap(herrors.KindInternal, "spawn daemon process", err)
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }() // reap to avoid a zombie; we track liveness via PID probing

	ds := DaemonState{
		Name:       spec.DisplayName,
		PID:        pid,
		Port:       spec.Port,
		Commander:  spec.Commander,
		Script:     spec.Script,
		Args:       args,
		SummonedAt: time.Now().UTC(),
		Alive:      true,
		LogFile:    logFile.Name(),
		SpellCast:  commandLine,
		Model:      spec.RequiredModelID,
	}
	state.Daemons[key] = ds
	if err := s.persist(state); err != nil {
		return SummonReceipt{}, err
	}

	time.Sleep(s.settleDelay)
	isAlive := alive(pid)
	if !isAlive {
		ds.Alive = false
		state.Daemons[key] = ds
		if err := s.persist(state); err != nil {
			return SummonReceipt{}, err
		}
	}

	if _, _, err := s.pub.Publish(ctx, s.eventType("summon"), "daemon/"+key, map[string]any{"pid": pid, "command_line": commandLine}); err != nil {
		return SummonReceipt{}, err
	}
	if isAlive {
		if _, _, err := s.pub.Publish(ctx, s.eventType("incarnate"), "daemon/"+key, map[string]any{"pid": pid}); err != nil {
			return SummonReceipt{}, err
		}
	}

	receipt.PID = pid
	receipt.Alive = isAlive
	return receipt, nil
}

// Scrying returns one daemon's status, or the full fleet if key is empty
// (§4.6 "scrying").
func (s *Supervisor) Scrying(key string) ([]ScryingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	if key != "" {
		ds, ok := state.Daemons[key]
		if !ok {
			return nil, herrors.New(herrors.KindValidation, fmt.Sprintf("daemon key %q has no recorded state", key))
		}
		return []ScryingView{{DaemonState: ds, Key: key}}, nil
	}
	out := make([]ScryingView, 0, len(state.Daemons))
	for k, ds := range state.Daemons {
		out = append(out, ScryingView{DaemonState: ds, Key: k})
	}
	return out, nil
}

// Sending augments Scrying's fleet view with the last heartbeat-typed
// event per daemon (§4.6 "sending").
func (s *Supervisor) Sending(ctx context.Context) ([]SendingView, error) {
	views, err := s.Scrying("")
	if err != nil {
		return nil, err
	}
	out := make([]SendingView, 0, len(views))
	for _, v := range views {
		hbType := stigmergy.NewTypeBuilder(s.generation, v.Port, v.Key).Type("heartbeat")
		event, ok, err := s.store.ReadLastOfType(ctx, hbType)
		if err != nil {
			return nil, err
		}
		sv := SendingView{ScryingView: v}
		if ok {
			sv.LastHeartbeat = &event
		}
		out = append(out, sv)
	}
	return out, nil
}

// Banish terminates the recorded process for key, escalating to a hard
// kill if it survives the grace period (§4.6 "banish").
func (s *Supervisor) Banish(ctx context.Context, key string, dryRun bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	if dryRun {
		return nil
	}
	return s.banishLocked(ctx, &state, key)
}

// banishLocked implements §4.6 "banish" assuming the caller already holds
// both the in-process mutex and the file lock.
func (s *Supervisor) banishLocked(ctx context.Context, state *State, key string) error {
	ds, ok := state.Daemons[key]
	if !ok || !ds.Alive || !alive(ds.PID) {
		if _, _, err := s.pub.Publish(ctx, s.eventType("banish"), "daemon/"+key, map[string]any{"result": "ALREADY_DEAD"}); err != nil {
			return err
		}
		return nil
	}

	if err := terminate(ds.PID); err != nil {
		return herrors.Wrap(herrors.KindInternal, "send terminate signal", err)
	}

	deadline := time.Now().Add(s.banishWait)
	for time.Now().Before(deadline) {
		if !alive(ds.PID) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if alive(ds.PID) {
		if err := forceKill(ds.PID); err != nil {
			return herrors.Wrap(herrors.KindInternal, "force kill", err)
		}
	}

	delete(state.Daemons, key)
	if err := s.persist(*state); err != nil {
		return err
	}
	_, _, err := s.pub.Publish(ctx, s.eventType("banish"), "daemon/"+key, map[string]any{"result": "TERMINATED"})
	return err
}

// WatchdogTick checks every recorded daemon for liveness, publishes a
// death event for any that died, and resurrects persistent ones when
// autoResurrect is set (§4.6 "watchdog_tick").
func (s *Supervisor) WatchdogTick(ctx context.Context, autoResurrect bool) error {
	s.mu.Lock()
	state, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for key, ds := range state.Daemons {
		if !ds.Alive || alive(ds.PID) {
			continue
		}
		s.mu.Lock()
		ds.Alive = false
		state.Daemons[key] = ds
		persistErr := s.persist(state)
		s.mu.Unlock()
		if persistErr != nil {
			return persistErr
		}

		if _, _, err := s.pub.Publish(ctx, s.eventType("death"), "daemon/"+key, map[string]any{"pid": ds.PID}); err != nil {
			return err
		}

		spec, ok := s.registry.Get(key)
		if autoResurrect && ok && spec.IsPersistent {
			if _, err := s.Summon(ctx, key, nil, false, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Supervisor) openLogFile(key string) (*os.File, error) {
	dir := filepath.Dir(s.statePath)
	logsDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, herrors.Wrap(herrors.KindInternal, "create log directory", err)
	}
	path := filepath.Join(logsDir, key+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindInternal, "open daemon log file", err)
	}
	return f, nil
}

func commandLineOf(script string, args []string) string {
	out := script
	for _, a := range args {
		out += " " + a
	}
	return out
}

func preflightDetail(result PreflightResult) string {
	detail := ""
	for i, f := range result.Failures {
		if i > 0 {
			detail += "; "
		}
		detail += fmt.Sprintf("%s: %s", f.Check, f.Detail)
	}
	return detail
}
