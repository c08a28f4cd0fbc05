package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithNoConfigFileUsesBuiltinDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Generation)
	assert.Equal(t, 2.0, cfg.ComputeQueue.CheapRatePerSecond)
	assert.Equal(t, dir, cfg.ConfigDir())
}

func TestLoadMergesUserYAMLOverBuiltinDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
generation: gen42
compute_queue:
  cheap_rate_per_second: 9
models:
  expensive:
    base_url: http://example.internal/v1
    model: big-model
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "gen42", cfg.Generation)
	assert.Equal(t, 9.0, cfg.ComputeQueue.CheapRatePerSecond)
	// untouched built-in field on the same struct survives the merge
	assert.Equal(t, 4, cfg.ComputeQueue.CheapBurst)
	assert.Equal(t, "big-model", cfg.Models["expensive"].Model)
}

func TestLoadExpandsEnvironmentVariablesBeforeParsing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HFO_TEST_MODEL_KEY", "sk-test-123")
	writeFile(t, dir, FileName, `
models:
  cheap:
    base_url: http://localhost:11434/v1
    model: llama3.2
    api_key: ${HFO_TEST_MODEL_KEY}
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.Models["cheap"].APIKey)
}

func TestGenerationEnvOverrideWinsOverYAMLAndDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "generation: gen-from-yaml\n")
	t.Setenv(GenerationEnvOverride, "gen-from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "gen-from-env", cfg.Generation)
}

func TestLoadResolvesRelativeStatePathsUnderConfigDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.Paths.StateDir))
	assert.DirExists(t, cfg.Paths.StateDir)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
