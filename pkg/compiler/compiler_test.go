package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsidian-forge/hfo/pkg/models"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

func newTestCompiler(t *testing.T) (*Compiler, *stigmergy.Store) {
	t.Helper()
	store, err := stigmergy.Open(stigmergy.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	pub := stigmergy.NewPublisher(store, "compiler", "gen91")
	return New(store, pub, "gen91", nil, t.TempDir()), store
}

func TestCompileDryRunReachesGranted(t *testing.T) {
	c, _ := newTestCompiler(t)

	p, err := c.Compile(context.Background(), "wish-1", "add a retry budget to the model client", true)
	require.NoError(t, err)
	require.Equal(t, StatusGranted, p.Status)
	require.Len(t, p.TaskCards, 2)
	require.Len(t, p.Verdicts, 2)
	for _, v := range p.Verdicts {
		require.Equal(t, VerdictGranted, v.Verdict)
	}
	require.NotEmpty(t, p.ReceiptArtifact)
}

func TestCompileRejectsEmptyIntent(t *testing.T) {
	c, _ := newTestCompiler(t)

	_, err := c.Compile(context.Background(), "wish-2", "   ", true)
	require.Error(t, err)
}

func TestCompileAuditsEveryPassBoundary(t *testing.T) {
	c, store := newTestCompiler(t)

	_, err := c.Compile(context.Background(), "wish-3", "teach the forge a new trick", true)
	require.NoError(t, err)

	entries, err := store.CountByPattern(context.Background(), "hfo.gen91.p6.compiler.entry", 0)
	require.NoError(t, err)
	require.Equal(t, 5, entries)

	exits, err := store.CountByPattern(context.Background(), "hfo.gen91.p6.compiler.exit", 0)
	require.NoError(t, err)
	require.Equal(t, 5, exits)
}

func TestResumeReentersAtRequestedPass(t *testing.T) {
	c, _ := newTestCompiler(t)

	_, err := c.Compile(context.Background(), "wish-4", "wire a new lane into the queue", true)
	require.NoError(t, err)

	resumed, err := c.Resume(context.Background(), "wish-4", 4)
	require.NoError(t, err)
	require.Equal(t, StatusGranted, resumed.Status)
}

type fakeDeniedModel struct{}

func (f *fakeDeniedModel) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	return "# Feature: incomplete\n\n## Scenario: only one\n- Given: a thing\n- When: it happens\n- Then: something\n", nil
}

func TestCompileRejectsFewerThanTwoScenarios(t *testing.T) {
	c, _ := newTestCompiler(t)
	c.model = &fakeDeniedModel{}

	p, err := c.Compile(context.Background(), "wish-5", "do a thing", false)
	require.Error(t, err)
	require.Equal(t, StatusRejected, p.Status)
	require.Equal(t, "FAIL", p.PassResults[1].Verdict)
}

func TestPredicateNameForIsDeterministicAndSafe(t *testing.T) {
	a := predicateNameFor("wish-7-t01")
	b := predicateNameFor("wish-7-t01")
	require.Equal(t, a, b)
	require.Equal(t, "granted_wish_7_t01", a)
}
