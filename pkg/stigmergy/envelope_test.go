package stigmergy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeFillsRequiredFields(t *testing.T) {
	env := NewEnvelope("hfo.gen91.p0.anchor.drift_detected", "anchor/baseline", "anchor-worker", nil)

	require.Equal(t, SpecVersion, env.SpecVersion)
	require.NotEmpty(t, env.ID)
	require.Equal(t, "hfo.gen91.p0.anchor.drift_detected", env.Type)
	require.Equal(t, "anchor-worker", env.Source)
	require.Equal(t, "anchor/baseline", env.Subject)
	require.NotEmpty(t, env.Time)
	require.NotEmpty(t, env.Timestamp)
	require.Equal(t, DataContentType, env.DataContentType)
	require.NotEmpty(t, env.TraceParent)
	require.NotNil(t, env.Data)
}

func TestCanonicalizeSortsKeysRecursively(t *testing.T) {
	env := NewEnvelope("hfo.gen91.p0.x.y", "subj", "src", map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"b": 2, "a": 1},
	})
	canon, err := Canonicalize(env)
	require.NoError(t, err)

	// "alpha" must precede "data"'s other sibling keys and "zeta"; within
	// alpha, "a" must precede "b". Sorted-key order is deterministic so a
	// substring check is enough to catch accidental map-iteration drift.
	require.Contains(t, string(canon), `"a":1,"b":2`)

	idxAlpha := indexOf(string(canon), `"alpha"`)
	idxZeta := indexOf(string(canon), `"zeta"`)
	require.Less(t, idxAlpha, idxZeta)
}

func TestContentHashIsStableAcrossCalls(t *testing.T) {
	env := NewEnvelope("hfo.gen91.p0.x.y", "subj", "src", map[string]any{"k": "v"})
	h1, err := ContentHash(env)
	require.NoError(t, err)
	h2, err := ContentHash(env)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64) // hex-encoded sha256
}

func TestContentHashIgnoresKeyOrderInSourceMap(t *testing.T) {
	envA := NewEnvelope("hfo.gen91.p0.x.y", "subj", "src", map[string]any{"a": 1, "b": 2})
	envB := NewEnvelope("hfo.gen91.p0.x.y", "subj", "src", map[string]any{"b": 2, "a": 1})
	// Force identical non-random fields so only Data ordering differs.
	envB.ID = envA.ID
	envB.Time = envA.Time
	envB.Timestamp = envA.Timestamp
	envB.TraceParent = envA.TraceParent

	h1, err := ContentHash(envA)
	require.NoError(t, err)
	h2, err := ContentHash(envB)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
