package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// runPass3 registers one stub predicate per task card under its
// deterministic name, observable by Pass 4 (§4.13 Pass 3). The stub rule
// holds for any subject with at least one recorded event; real
// domain-specific conditions replace this later.
func (c *Compiler) runPass3(ctx context.Context, p *Pipeline) error {
	if len(p.TaskCards) == 0 {
		return herrors.New(herrors.KindValidation, "pass 3: no task cards to register")
	}

	var src strings.Builder
	for _, card := range p.TaskCards {
		fmt.Fprintf(&src, "Decl %s(Subject).\n", card.Predicate)
		fmt.Fprintf(&src, "%s(Subject) :- event(Type, Subject, Id).\n", card.Predicate)
	}

	if err := c.engine.LoadRules(src.String()); err != nil {
		return herrors.Wrap(herrors.KindInternal, "pass 3 predicate registration", err)
	}
	return nil
}
