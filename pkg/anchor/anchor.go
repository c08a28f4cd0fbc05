// Package anchor implements the C4 Dimensional Anchor: baseline capture,
// drift detection, and tamper detection layered over the C3 Resource Probe.
// See spec.md §4.4, §3 ("Anchor state").
package anchor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/renameio/v2"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/probe"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// GovernanceFileHash pairs a governance file's path with its content hash,
// captured as part of the baseline (§4.4 "governance-file hashes").
type GovernanceFileHash struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// Baseline is the resource probe snapshot plus the extra facts §4.4
// requires in an anchor: governance-file hashes, loaded-model set, and
// store sizes. AnchorHash is computed over the canonical serialization of
// everything else in Baseline.
type Baseline struct {
	Probe           probe.Report         `json:"probe"`
	GovernanceFiles []GovernanceFileHash `json:"governance_files"`
	LoadedModels    []string             `json:"loaded_models"`
	AnchorHash      string               `json:"anchor_hash"`
}

// State is the on-disk anchor state file shape (§3 "Anchor state").
type State struct {
	Baseline   Baseline  `json:"baseline"`
	Active     bool      `json:"active"`
	SetAt      time.Time `json:"set_at"`
	CheckCount int       `json:"check_count"`
	DriftCount int       `json:"drift_count"`
}

// Anchor owns one anchor state file and publishes set/check/release/tamper
// events to the stigmergy trail.
type Anchor struct {
	statePath  string
	generation string
	pub        *stigmergy.Publisher
	probeOpts  probe.Options
	govFiles   []string // paths hashed into every baseline
}

// New constructs an Anchor persisting to statePath, publishing through pub,
// probing with probeOpts, and including govFiles in every baseline's
// governance-file hash set. generation is the HFO_GENERATION tag used to
// build this anchor's event types (§6.6).
func New(statePath, generation string, pub *stigmergy.Publisher, probeOpts probe.Options, govFiles []string) *Anchor {
	return &Anchor{statePath: statePath, generation: generation, pub: pub, probeOpts: probeOpts, govFiles: govFiles}
}

// Probe runs a bare probe report and publishes it, without requiring (or
// touching) a prior anchor (§4.4 "probe()").
func (a *Anchor) Probe(ctx context.Context) (probe.Report, error) {
	report := probe.Probe(ctx, a.probeOpts)
	_, _, err := a.pub.Publish(ctx, a.eventType("probe_report"), "anchor/probe", map[string]any{"report": report})
	return report, err
}

// Anchor captures a fresh baseline, hashes it, persists it as the active
// anchor, and publishes a set-event (§4.4 "anchor()").
func (a *Anchor) Anchor(ctx context.Context) (Baseline, error) {
	baseline, err := a.captureBaseline(ctx)
	if err != nil {
		return Baseline{}, err
	}

	state := State{Baseline: baseline, Active: true, SetAt: time.Now().UTC()}
	if err := a.persist(state); err != nil {
		return Baseline{}, err
	}
	_, _, err = a.pub.Publish(ctx, a.eventType("set"), "anchor/baseline", map[string]any{"anchor_hash": baseline.AnchorHash})
	return baseline, err
}

// Check re-captures the current state, verifies the persisted anchor's
// integrity hash, diffs across the 10 named dimensions, and publishes
// either ANCHORED or DRIFT_DETECTED (§4.4 "check()").
func (a *Anchor) Check(ctx context.Context) (Diff, error) {
	state, err := a.load()
	if err != nil {
		return Diff{}, err
	}
	if !state.Active {
		return Diff{}, herrors.New(herrors.KindValidation, "no active anchor to check against")
	}

	if !a.verifyIntegrity(state.Baseline) {
		_, _, pubErr := a.pub.Publish(ctx, a.eventType("tampered"), "anchor/baseline", nil)
		if pubErr != nil {
			return Diff{}, pubErr
		}
		return Diff{}, herrors.New(herrors.KindTampered, "stored anchor hash does not match recomputed hash")
	}

	current, err := a.captureBaseline(ctx)
	if err != nil {
		return Diff{}, err
	}

	diff := Compare(state.Baseline, current)

	state.CheckCount++
	if diff.DriftDetected {
		state.DriftCount++
	}
	if err := a.persist(state); err != nil {
		return Diff{}, err
	}

	eventName := "anchored"
	if diff.DriftDetected {
		eventName = "drift_detected"
	}
	_, _, err = a.pub.Publish(ctx, a.eventType(eventName), "anchor/baseline", map[string]any{"diff": diff})
	return diff, err
}

// Release deactivates the anchor and publishes a release event with the
// cumulative drift count (§4.4 "release()").
func (a *Anchor) Release(ctx context.Context) (int, error) {
	state, err := a.load()
	if err != nil {
		return 0, err
	}
	state.Active = false
	if err := a.persist(state); err != nil {
		return 0, err
	}
	_, _, err = a.pub.Publish(ctx, a.eventType("release"), "anchor/baseline", map[string]any{"drift_count": state.DriftCount})
	return state.DriftCount, err
}

// Status returns the persisted anchor state without probing or mutating it
// (§4.4/§6.4 "status()").
func (a *Anchor) Status(ctx context.Context) (State, error) {
	return a.load()
}

func (a *Anchor) eventType(action string) string {
	return stigmergy.NewTypeBuilder(a.generation, stigmergy.PortInfra, "anchor").Type(action)
}

func (a *Anchor) captureBaseline(ctx context.Context) (Baseline, error) {
	report := probe.Probe(ctx, a.probeOpts)

	files := make([]GovernanceFileHash, 0, len(a.govFiles))
	for _, path := range a.govFiles {
		hash, err := hashFile(path)
		if err != nil {
			return Baseline{}, herrors.Wrap(herrors.KindInternal, fmt.Sprintf("hash governance file %s", path), err)
		}
		files = append(files, GovernanceFileHash{Path: path, Hash: hash})
	}

	models := make([]string, 0, len(report.GPU.LoadedModels))
	for _, m := range report.GPU.LoadedModels {
		models = append(models, m.Name)
	}

	baseline := Baseline{Probe: report, GovernanceFiles: files, LoadedModels: models}
	hash, err := canonicalHash(baseline)
	if err != nil {
		return Baseline{}, err
	}
	baseline.AnchorHash = hash
	return baseline, nil
}

// verifyIntegrity recomputes stored.AnchorHash over a canonical
// serialization excluding the stored hash itself, so insignificant
// whitespace differences introduced by re-reading the persisted JSON can
// never trigger a spurious TAMPERED verdict (§9 resolution).
func (a *Anchor) verifyIntegrity(stored Baseline) bool {
	check := stored
	check.AnchorHash = ""
	recomputed, err := canonicalHash(check)
	if err != nil {
		return false
	}
	return recomputed == stored.AnchorHash
}

func canonicalHash(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	canon, err := marshalSorted(generic)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

func marshalSorted(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := []byte("{")
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, _ := json.Marshal(k)
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := marshalSorted(val[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		out = append(out, '}')
		return out, nil
	case []any:
		out := []byte("[")
		for i, item := range val {
			if i > 0 {
				out = append(out, ',')
			}
			vb, err := marshalSorted(item)
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		out = append(out, ']')
		return out, nil
	default:
		return json.Marshal(val)
	}
}

func (a *Anchor) persist(state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return herrors.Wrap(herrors.KindInternal, "marshal anchor state", err)
	}
	if err := renameio.WriteFile(a.statePath, raw, 0o644); err != nil {
		return herrors.Wrap(herrors.KindInternal, "persist anchor state", err)
	}
	return nil
}

func (a *Anchor) load() (State, error) {
	raw, err := readFile(a.statePath)
	if err != nil {
		return State{}, herrors.Wrap(herrors.KindInternal, "read anchor state", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, herrors.Wrap(herrors.KindInternal, "unmarshal anchor state", err)
	}
	return state, nil
}
