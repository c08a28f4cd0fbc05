package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

func TestRegisterBuiltinsFlagsRepeatedErrorsAboveThreshold(t *testing.T) {
	w, store, _ := newTestWorker(t)
	ctx := context.Background()
	require.NoError(t, RegisterBuiltins(w))
	w.rules[0].Cooldown = 0

	adversarialPub := stigmergy.NewPublisher(store, "adversarial", "gen91")
	for i := 0; i < 5; i++ {
		_, _, err := adversarialPub.Publish(ctx, "hfo.gen91.p1.adversarial.error", "adversarial", map[string]any{})
		require.NoError(t, err)
	}

	_, err := w.Cycle(ctx)
	require.NoError(t, err)

	count, err := store.CountByPattern(ctx, "hfo.gen91.infra.governance.violation", 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRegisterBuiltinsSelfValidationCriterionPasses(t *testing.T) {
	w, _, _ := newTestWorker(t)
	require.NoError(t, RegisterBuiltins(w))
	require.Len(t, w.criteria, 1)

	result, detail := w.evaluateCriterion(context.Background(), w.criteria[0])
	require.Equal(t, ResultPass, result)
	require.Empty(t, detail)
}
