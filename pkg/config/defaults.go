package config

import "time"

// Builtin returns hfo's coded defaults, merged under whatever hfo.yaml
// supplies (§6.5: every value here has a sane unconfigured default).
func Builtin() *Config {
	return &Config{
		Generation: "dev",
		Models: map[string]ModelEndpoint{
			"cheap": {
				BaseURL: "http://localhost:11434",
				Model:   "llama3.2",
				Mode:    "secondary",
				Timeout: 30 * time.Second,
			},
			"expensive": {
				BaseURL: "http://localhost:11434",
				Model:   "llama3.2:70b",
				Mode:    "primary",
				Timeout: 120 * time.Second,
			},
		},
		ComputeQueue: ComputeQueueConfig{
			CheapRatePerSecond:     2,
			CheapBurst:             4,
			ExpensiveRatePerSecond: 0.5,
			ExpensiveBurst:         1,
		},
		Governance: GovernanceConfig{
			ValidateEvery: 10,
		},
		StrangeLoop: StrangeLoopConfig{
			LookbackEvents: 200,
		},
		Paths: Paths{
			StateDir:       ".hfo/state",
			DaemonsCatalog: ".hfo/daemons.toml",
			PipelineState:  ".hfo/pipelines",
		},
	}
}
