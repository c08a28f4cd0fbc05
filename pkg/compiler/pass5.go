package compiler

import (
	"context"
	"fmt"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// runPass5 stubs a deployment receipt. It only runs when Pass 4 produced
// all-GRANTED verdicts; the guard here is a safety net in case a caller
// ever invokes Resume directly at pass 5 against stale persisted state
// (§4.13 Pass 5).
func (c *Compiler) runPass5(ctx context.Context, p *Pipeline) error {
	if len(p.Verdicts) == 0 {
		return herrors.New(herrors.KindValidation, "pass 5: no pass 4 verdicts on record")
	}
	for _, v := range p.Verdicts {
		if v.Verdict != VerdictGranted {
			return herrors.New(herrors.KindValidation, "pass 5: invoked without all-GRANTED pass 4 verdicts")
		}
	}
	p.ReceiptArtifact = fmt.Sprintf("receipt-%s-%d-cards", p.WishID, len(p.TaskCards))
	return nil
}
