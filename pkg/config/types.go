// Package config loads hfo.yaml, layers it over built-in defaults, and
// resolves the §6.5 environment variable toggles. Grounded on
// pkg/config/loader.go's Initialize/load shape, trimmed to hfo's own
// configuration surface.
package config

import "time"

// ModelEndpoint configures one OpenAI-compatible model provider (§1
// "out of scope... concrete AI model providers", wired here only as
// connection config — pkg/models does the talking).
type ModelEndpoint struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Mode    string `yaml:"mode,omitempty"` // "primary" or "secondary"
	APIKey  string `yaml:"api_key,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ComputeQueueConfig configures the C12 Compute Queue's per-lane rate
// gating (§5 "models are rate-limited resources").
type ComputeQueueConfig struct {
	CheapRatePerSecond     float64 `yaml:"cheap_rate_per_second,omitempty"`
	CheapBurst             int     `yaml:"cheap_burst,omitempty"`
	ExpensiveRatePerSecond float64 `yaml:"expensive_rate_per_second,omitempty"`
	ExpensiveBurst         int     `yaml:"expensive_burst,omitempty"`
}

// GovernanceConfig configures the C9 Governance Worker's self-validation
// cadence.
type GovernanceConfig struct {
	ValidateEvery int `yaml:"validate_every,omitempty"`
}

// StrangeLoopConfig configures the C11 Strange-Loop Worker.
type StrangeLoopConfig struct {
	LookbackEvents int `yaml:"lookback_events,omitempty"`
}

// Paths configures where hfo's on-disk state lives, all relative to the
// root marker unless absolute.
type Paths struct {
	StateDir       string `yaml:"state_dir,omitempty"`
	DaemonsCatalog string `yaml:"daemons_catalog,omitempty"` // optional TOML override catalog, see pkg/registry.LoadFile
	PipelineState  string `yaml:"pipeline_state,omitempty"`
}

// Config is the fully resolved configuration every command and worker
// reads from.
type Config struct {
	Generation   string                   `yaml:"generation,omitempty"`
	Models       map[string]ModelEndpoint `yaml:"models,omitempty"`
	ComputeQueue ComputeQueueConfig       `yaml:"compute_queue,omitempty"`
	Governance   GovernanceConfig         `yaml:"governance,omitempty"`
	StrangeLoop  StrangeLoopConfig        `yaml:"strange_loop,omitempty"`
	Paths        Paths                    `yaml:"paths,omitempty"`

	configDir string
}

// ConfigDir returns the directory Config was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }
