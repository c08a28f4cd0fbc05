package rootmarker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveFromFindsMarkerInAncestor(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, MarkerFile), []byte(""), 0o644))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := ResolveFrom(nested)
	require.NoError(t, err)
	require.Equal(t, root, got)
}

func TestResolveFromReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolveFrom(dir)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveHonorsEnvOverride(t *testing.T) {
	override := t.TempDir()
	t.Setenv(EnvOverride, override)

	got, err := Resolve()
	require.NoError(t, err)
	require.Equal(t, filepath.Clean(override), got)
}

func TestStateDirAndLogDirCreateDirectories(t *testing.T) {
	root := t.TempDir()

	stateDir, err := StateDir(root)
	require.NoError(t, err)
	require.DirExists(t, stateDir)

	logDir, err := LogDir(root)
	require.NoError(t, err)
	require.DirExists(t, logDir)
}
