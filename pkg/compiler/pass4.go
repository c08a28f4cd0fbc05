package compiler

import (
	"context"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// runPass4 projects recent events into the shared engine's `event` facts,
// then invokes every registered predicate and records its verdict
// (§4.13 Pass 4). denied is true if any predicate is non-GRANTED.
func (c *Compiler) runPass4(ctx context.Context, p *Pipeline) (denied bool, err error) {
	if err := c.projectEvents(ctx); err != nil {
		return false, err
	}

	verdicts := make([]PredicateVerdict, 0, len(p.TaskCards))
	for _, card := range p.TaskCards {
		rows, qerr := c.engine.Query(card.Predicate, 1)
		if qerr != nil {
			return false, herrors.Wrap(herrors.KindInternal, "pass 4 predicate query", qerr)
		}
		v := PredicateVerdict{Predicate: card.Predicate, TaskID: card.TaskID}
		if len(rows) > 0 {
			v.Verdict = VerdictGranted
		} else {
			v.Verdict = VerdictDenied
			v.Violations = []string{"predicate produced no derivations against the live event store"}
			denied = true
		}
		verdicts = append(verdicts, v)
	}

	p.Verdicts = verdicts
	return denied, nil
}

// projectEvents mirrors the governance worker's event→fact projection
// (pkg/governance), feeding the compiler's own datalog engine from the
// live store rather than a cooldown-gated subscription set.
func (c *Compiler) projectEvents(ctx context.Context) error {
	events, err := c.store.QueryByPattern(ctx, "hfo.*", 0, 500)
	if err != nil {
		return herrors.Wrap(herrors.KindUnreachable, "pass 4 event projection", err)
	}
	for _, e := range events {
		if err := c.engine.AddFact("event", e.EventType, e.Subject, e.ID); err != nil {
			return herrors.Wrap(herrors.KindInternal, "pass 4 fact projection", err)
		}
	}
	return nil
}
