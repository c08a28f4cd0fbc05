package governance

import "context"

// runSelfValidation evaluates every registered criterion and publishes one
// aggregate event (§4.9: "aggregate results are published as a single
// event").
func (w *Worker) runSelfValidation(ctx context.Context) error {
	outcomes := make([]outcome, 0, len(w.criteria))
	for _, c := range w.criteria {
		result, detail := w.evaluateCriterion(ctx, c)
		outcomes = append(outcomes, outcome{Name: c.Name, Result: result, Detail: detail})
	}

	rows := make([]map[string]any, len(outcomes))
	for i, o := range outcomes {
		rows[i] = map[string]any{"name": o.Name, "result": o.Result, "detail": o.Detail}
	}

	_, _, err := w.pub.Publish(ctx, w.eventType("self_validation"), "governance/self-validation", map[string]any{
		"cycle":      w.cycleNum,
		"criteria":   rows,
		"pass_count": countResult(outcomes, ResultPass),
		"fail_count": countResult(outcomes, ResultFail),
	})
	return err
}

func (w *Worker) evaluateCriterion(ctx context.Context, c Criterion) (CriterionResult, string) {
	if c.Predicate == nil {
		return ResultSkip, "no predicate registered"
	}
	result, err := c.Predicate(ctx, w.store)
	if err != nil {
		return ResultError, err.Error()
	}
	return result, ""
}

func countResult(outcomes []outcome, want CriterionResult) int {
	n := 0
	for _, o := range outcomes {
		if o.Result == want {
			n++
		}
	}
	return n
}
