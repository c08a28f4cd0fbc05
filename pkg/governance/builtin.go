package governance

import (
	"context"
	"time"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// RegisterBuiltins wires the default subscription/rule/criterion set every
// generation ships with: a fan-in publishing a rollup of recent worker
// errors, a rule alerting on repeated errors, the medallion-tier-skip rule
// (rules_builtin.go), and a self-validation criterion confirming the event
// store is still readable (§4.9).
func RegisterBuiltins(w *Worker) error {
	w.AddSubscription(Subscription{
		Name:         "worker-error-fanin",
		EventPattern: "hfo.*.*.*.error",
		MinInterval:  10 * time.Second,
		Action: func(ctx context.Context, pub *stigmergy.Publisher, matches []stigmergy.Event) error {
			_, _, err := pub.Publish(ctx, "hfo.governance.fanin.worker_errors", "governance/fanin", map[string]any{
				"count": len(matches),
			})
			return err
		},
	})

	if err := w.AddRule(Rule{
		ID:                 "repeated-worker-errors",
		Name:               "Repeated worker errors",
		ConditionPredicate: "error_event",
		ConditionArity:     3,
		ViolationThreshold: 5,
		ActionOnViolation:  ActionAlert,
		Cooldown:           5 * time.Minute,
		Enabled:            true,
	}); err != nil {
		return err
	}

	if err := registerMedallionRule(w); err != nil {
		return err
	}

	w.AddCriterion(Criterion{
		Name:  "store is readable",
		Given: "the event store is open",
		When:  "a governance cycle runs",
		Then:  "a stats query against the store succeeds",
		Predicate: func(ctx context.Context, store *stigmergy.Store) (CriterionResult, error) {
			if _, err := store.Stats(ctx); err != nil {
				return ResultFail, err
			}
			return ResultPass, nil
		},
	})

	return nil
}
