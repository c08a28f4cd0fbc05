package supervisor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/obsidian-forge/hfo/pkg/registry"
)

// ModelChecker abstracts "is this model id available from its provider"
// (§4.6 step 2c), implemented by pkg/models so this package stays free of
// HTTP concerns.
type ModelChecker interface {
	ModelAvailable(ctx context.Context, modelID string) (bool, error)
}

// preflight runs the ordered checks (a)-(e) of §4.6 step 2. All must pass;
// the first failing check still allows later checks to run, so a caller
// sees every failure reason at once rather than one at a time.
func (s *Supervisor) preflight(ctx context.Context, spec registry.Spec, force bool, state State) PreflightResult {
	var failures []PreflightFailure

	// (a) runnable artifact exists
	if spec.Script == "" {
		failures = append(failures, PreflightFailure{CheckArtifactExists, "daemon spec has no script path"})
	} else if _, err := os.Stat(spec.Script); err != nil {
		failures = append(failures, PreflightFailure{CheckArtifactExists, fmt.Sprintf("script %q not found: %v", spec.Script, err)})
	}

	// (b) event store reachable
	if s.store == nil {
		failures = append(failures, PreflightFailure{CheckStoreReachable, "no event store configured"})
	} else if _, err := s.store.Stats(ctx); err != nil {
		failures = append(failures, PreflightFailure{CheckStoreReachable, err.Error()})
	}

	// (c) model reachability, only if this daemon needs one
	if spec.NeedsCheapModel || spec.NeedsExpensiveModel {
		if s.modelChecker == nil {
			failures = append(failures, PreflightFailure{CheckModelReachable, "no model provider configured"})
		} else {
			ok, err := s.modelChecker.ModelAvailable(ctx, spec.RequiredModelID)
			if err != nil {
				failures = append(failures, PreflightFailure{CheckModelReachable, err.Error()})
			} else if !ok {
				failures = append(failures, PreflightFailure{CheckModelReachable, fmt.Sprintf("model %q not available", spec.RequiredModelID)})
			}
		}
	}

	// (d) required environment flags truthy
	if !s.daemonEnabled(spec.Key) {
		failures = append(failures, PreflightFailure{CheckEnvFlagsTruthy, fmt.Sprintf("HFO_DAEMON_%s_ENABLED is falsy", envKeySuffix(spec.Key))})
	}

	// (e) no live process already recorded, unless force
	if existing, ok := state.Daemons[spec.Key]; ok && existing.Alive && !force {
		failures = append(failures, PreflightFailure{CheckNoLiveProcess, fmt.Sprintf("daemon %q already has a live process (pid %d)", spec.Key, existing.PID)})
	}

	return PreflightResult{Passed: len(failures) == 0, Failures: failures}
}

// daemonEnabled applies §6.5's env-flag semantics: unset is truthy by
// default; "false"/"0"/"no" (case-insensitive) is falsy. The master
// HFO_DAEMONS_ENABLED toggle gates every daemon; the per-daemon
// HFO_DAEMON_<KEY>_ENABLED toggle gates only that one.
func (s *Supervisor) daemonEnabled(key string) bool {
	if !truthyEnv("HFO_DAEMONS_ENABLED", s.lookupEnv) {
		return false
	}
	return truthyEnv("HFO_DAEMON_"+envKeySuffix(key)+"_ENABLED", s.lookupEnv)
}

func truthyEnv(name string, lookup func(string) (string, bool)) bool {
	val, ok := lookup(name)
	if !ok {
		return true
	}
	switch strings.ToLower(val) {
	case "false", "0", "no":
		return false
	default:
		return true
	}
}

func envKeySuffix(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = c - 'a' + 'A'
		case c == '-':
			out[i] = '_'
		default:
			out[i] = c
		}
	}
	return string(out)
}
