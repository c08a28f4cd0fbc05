package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// FileName is the user-editable config file's name, resolved relative to
// the project root.
const FileName = "hfo.yaml"

// GenerationEnvOverride is the environment variable that, when set, wins
// over both hfo.yaml's generation field and the built-in default (§6.5).
const GenerationEnvOverride = "HFO_GENERATION"

// Load reads FileName from configDir (if present), layers it over Builtin
// via mergo.WithOverride, resolves the HFO_GENERATION override, and
// returns a ready-to-use Config.
func Load(configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)

	cfg := Builtin()

	path := filepath.Join(configDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		data = ExpandEnv(data)
		var user Config
		if err := yaml.Unmarshal(data, &user); err != nil {
			return nil, herrors.Wrap(herrors.KindParseFailed, fmt.Sprintf("parse %s", path), err)
		}
		if err := mergo.Merge(cfg, &user, mergo.WithOverride); err != nil {
			return nil, herrors.Wrap(herrors.KindInternal, "merge user config over defaults", err)
		}
	case os.IsNotExist(err):
		log.Debug("no hfo.yaml found, using built-in defaults")
	default:
		return nil, herrors.Wrap(herrors.KindInternal, fmt.Sprintf("read %s", path), err)
	}

	if gen := os.Getenv(GenerationEnvOverride); gen != "" {
		cfg.Generation = gen
	}
	cfg.configDir = configDir

	if err := resolvePaths(cfg, configDir); err != nil {
		return nil, err
	}

	log.Info("configuration loaded", "generation", cfg.Generation)
	return cfg, nil
}

// resolvePaths makes every Paths entry absolute, rooted at configDir when
// given as a relative path, and ensures each directory exists.
func resolvePaths(cfg *Config, root string) error {
	for _, dir := range []*string{&cfg.Paths.StateDir, &cfg.Paths.PipelineState} {
		if !filepath.IsAbs(*dir) {
			*dir = filepath.Join(root, *dir)
		}
		if err := os.MkdirAll(*dir, 0o755); err != nil {
			return herrors.Wrap(herrors.KindInternal, fmt.Sprintf("create %s", *dir), err)
		}
	}
	if !filepath.IsAbs(cfg.Paths.DaemonsCatalog) {
		cfg.Paths.DaemonsCatalog = filepath.Join(root, cfg.Paths.DaemonsCatalog)
	}
	return nil
}
