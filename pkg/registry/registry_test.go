package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

func TestRegisterAndGet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Spec{Key: "prospector", DisplayName: "Prospector"}))

	spec, ok := r.Get("prospector")
	require.True(t, ok)
	require.Equal(t, "Prospector", spec.DisplayName)
}

func TestRegisterWithoutKeyFails(t *testing.T) {
	r := New()
	err := r.Register(Spec{DisplayName: "no key"})
	require.Error(t, err)
	require.Equal(t, herrors.KindValidation, herrors.KindOf(err))
}

func TestRequireUnknownKeyFails(t *testing.T) {
	r := New()
	_, err := r.Require("nonexistent")
	require.Error(t, err)
	require.Equal(t, herrors.KindValidation, herrors.KindOf(err))
}

func TestAllIsSortedByKey(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Spec{Key: "zeta"}))
	require.NoError(t, r.Register(Spec{Key: "alpha"}))

	all := r.All()
	require.Len(t, all, 2)
	require.Equal(t, "alpha", all[0].Key)
	require.Equal(t, "zeta", all[1].Key)
}

func TestPersistentFiltersNonPersistent(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Spec{Key: "a", IsPersistent: true}))
	require.NoError(t, r.Register(Spec{Key: "b", IsPersistent: false}))

	persistent := r.Persistent()
	require.Len(t, persistent, 1)
	require.Equal(t, "a", persistent[0].Key)
}

func TestRegisterBuiltinsPopulatesAllPorts(t *testing.T) {
	r := New()
	require.NoError(t, RegisterBuiltins(r))
	require.Len(t, r.All(), len(Builtin()))
}

func TestLoadFileOverridesBuiltin(t *testing.T) {
	r := New()
	require.NoError(t, RegisterBuiltins(r))

	path := filepath.Join(t.TempDir(), "catalog.toml")
	doc := `
[[daemon]]
key = "prospector"
display_name = "Custom Prospector"
port = "p3"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	require.NoError(t, r.LoadFile(path))

	spec, ok := r.Get("prospector")
	require.True(t, ok)
	require.Equal(t, "Custom Prospector", spec.DisplayName)
}
