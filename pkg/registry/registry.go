// Package registry implements the C5 Daemon Registry: the process-local,
// read-after-load catalog of every spawnable daemon and its runtime
// contract. See spec.md §4.5, §3 ("Daemon specification").
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// Spec is one daemon's static configuration (§3 "Daemon specification").
// Never mutated after Load — the registry is read-only once populated.
type Spec struct {
	Key                  string           `toml:"key"`
	DisplayName          string           `toml:"display_name"`
	Port                 stigmergy.Port   `toml:"port"`
	Commander            string           `toml:"commander"`
	Script               string           `toml:"script"`
	DefaultArgs          []string         `toml:"default_args"`
	NeedsCheapModel      bool             `toml:"needs_cheap_model"`
	NeedsExpensiveModel  bool             `toml:"needs_expensive_model"`
	RequiredModelID      string           `toml:"required_model_id"`
	MinMemoryBudgetGB    float64          `toml:"min_memory_budget_gb"`
	CycleInterval        time.Duration    `toml:"cycle_interval"`
	Priority             int              `toml:"priority"` // 1 is highest
	IsPersistent         bool             `toml:"is_persistent"`
}

// Registry is the populated, read-only catalog. Safe for concurrent reads;
// Register is expected to complete during startup before any daemon is
// summoned.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// New returns an empty registry, ready for Register calls.
func New() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds spec to the catalog, keyed by spec.Key. Registering the
// same key twice replaces the prior entry — callers are expected to call
// Register once per daemon key during startup, in source order (built-in
// catalog first, then overrides), mirroring the teacher's built-in+override
// merge pattern.
func (r *Registry) Register(spec Spec) error {
	if spec.Key == "" {
		return herrors.New(herrors.KindValidation, "daemon spec missing key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Key] = spec
	return nil
}

// Get returns the spec for key, or ok=false if key is not registered.
func (r *Registry) Get(key string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[key]
	return spec, ok
}

// All returns every registered spec, sorted by key for deterministic CLI
// output (§6.4 "list").
func (r *Registry) All() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Persistent returns every registered spec with IsPersistent set — the
// watchdog's resurrection targets (§4.6 "watchdog_tick").
func (r *Registry) Persistent() []Spec {
	all := r.All()
	out := make([]Spec, 0, len(all))
	for _, spec := range all {
		if spec.IsPersistent {
			out = append(out, spec)
		}
	}
	return out
}

// Require looks up key and returns a typed error if it is not a member of
// the registry — summon() must refuse unknown keys (§4.5).
func (r *Registry) Require(key string) (Spec, error) {
	spec, ok := r.Get(key)
	if !ok {
		return Spec{}, herrors.New(herrors.KindValidation, fmt.Sprintf("daemon key %q is not registered", key))
	}
	return spec, nil
}
