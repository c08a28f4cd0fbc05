// Package supervisor implements the C6 Supervisor / Spell Gate: a
// registry-driven process lifecycle manager with preflight validation,
// atomic state persistence, and watchdog resurrection. See spec.md §4.6.
package supervisor

import (
	"time"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// DaemonState is one daemon's entry in the supervisor state file (§3
// "Supervisor state").
type DaemonState struct {
	Name        string         `json:"name"`
	PID         int            `json:"pid"`
	Port        stigmergy.Port `json:"port"`
	Commander   string         `json:"commander"`
	Script      string         `json:"script"`
	Args        []string       `json:"args"`
	SummonedAt  time.Time      `json:"summoned_at"`
	Alive       bool           `json:"alive"`
	LogFile     string         `json:"log_file"`
	SpellCast   string         `json:"spell_cast"` // human-readable command line, for scrying
	Model       string         `json:"model,omitempty"`
}

// State is the full on-disk supervisor state file.
type State struct {
	Daemons     map[string]DaemonState `json:"daemons"`
	LastUpdated time.Time              `json:"last_updated"`
}

func newState() State {
	return State{Daemons: make(map[string]DaemonState)}
}

// PreflightCheck names one ordered preflight step (§4.6 "summon" step 2).
type PreflightCheck string

const (
	CheckArtifactExists     PreflightCheck = "runnable_artifact_exists"
	CheckStoreReachable     PreflightCheck = "event_store_reachable"
	CheckModelReachable     PreflightCheck = "model_reachable"
	CheckEnvFlagsTruthy     PreflightCheck = "env_flags_truthy"
	CheckNoLiveProcess      PreflightCheck = "no_live_process"
)

// PreflightFailure records one failed check with detail, for the
// PREFLIGHT_FAILED error's "per-check detail" requirement.
type PreflightFailure struct {
	Check  PreflightCheck `json:"check"`
	Detail string         `json:"detail"`
}

// PreflightResult is the outcome of running every ordered check.
type PreflightResult struct {
	Passed   bool               `json:"passed"`
	Failures []PreflightFailure `json:"failures,omitempty"`
}

// SummonReceipt is returned by Summon on success or dry-run.
type SummonReceipt struct {
	DaemonKey  string          `json:"daemon_key"`
	CommandLine string         `json:"command_line"`
	Preflight  PreflightResult `json:"preflight"`
	DryRun     bool            `json:"dry_run"`
	PID        int             `json:"pid,omitempty"`
	Alive      bool            `json:"alive"`
}

// ScryingView is the status query response shape (§4.6 "scrying").
type ScryingView struct {
	DaemonState
	Key string `json:"key"`
}

// SendingView augments ScryingView with the last heartbeat-typed event
// (§4.6 "sending").
type SendingView struct {
	ScryingView
	LastHeartbeat *stigmergy.Event `json:"last_heartbeat,omitempty"`
}
