package registry

import (
	"time"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// Builtin is the default daemon catalog shipped with the binary — five
// daemons (supervisor, adversarial, governance, prospector, strange-loop)
// wired to their worker package mains. A site-specific TOML catalog (LoadFile) can override any
// entry by repeating its key.
func Builtin() []Spec {
	return []Spec{
		{
			Key:          "supervisor",
			DisplayName:  "Supervisor",
			Port:         stigmergy.PortInfra,
			Commander:    "hfo/core",
			Script:       "cmd/hfo",
			Priority:     1,
			IsPersistent: true,
		},
		{
			Key:                 "adversarial",
			DisplayName:         "Adversarial Worker",
			Port:                stigmergy.PortP1,
			Commander:           "hfo/core",
			Script:              "cmd/hfo",
			DefaultArgs:         []string{"adversarial"},
			NeedsCheapModel:     false,
			CycleInterval:       30 * time.Second,
			Priority:            3,
			IsPersistent:        true,
		},
		{
			Key:                 "governance",
			DisplayName:         "Governance Worker",
			Port:                stigmergy.PortP2,
			Commander:           "hfo/core",
			Script:              "cmd/hfo",
			DefaultArgs:         []string{"governance"},
			CycleInterval:       60 * time.Second,
			Priority:            2,
			IsPersistent:        true,
		},
		{
			Key:                 "prospector",
			DisplayName:         "Prospector Worker",
			Port:                stigmergy.PortP3,
			Commander:           "hfo/core",
			Script:              "cmd/hfo",
			DefaultArgs:         []string{"prospector"},
			NeedsCheapModel:     true,
			MinMemoryBudgetGB:   2,
			CycleInterval:       120 * time.Second,
			Priority:            4,
			IsPersistent:        true,
		},
		{
			Key:                 "strange-loop",
			DisplayName:         "Strange-Loop Worker",
			Port:                stigmergy.PortP4,
			Commander:           "hfo/core",
			Script:              "cmd/hfo",
			DefaultArgs:         []string{"strange-loop"},
			NeedsCheapModel:     true,
			NeedsExpensiveModel: true,
			MinMemoryBudgetGB:   4,
			CycleInterval:       90 * time.Second,
			Priority:            3,
			IsPersistent:        true,
		},
	}
}

// RegisterBuiltins registers every Builtin() spec into r.
func RegisterBuiltins(r *Registry) error {
	for _, spec := range Builtin() {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
