package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// runPass2 extracts each scenario in p.ScenarioText into a structured task
// card (§4.13 Pass 2).
func (c *Compiler) runPass2(ctx context.Context, p *Pipeline) error {
	_, scenarios, err := parseStructuredText([]byte(p.ScenarioText))
	if err != nil {
		return herrors.Wrap(herrors.KindParseFailed, "pass 2 structured text parse", err)
	}
	if len(scenarios) == 0 {
		return herrors.New(herrors.KindValidation, "pass 2: zero scenarios extracted")
	}

	cards := make([]TaskCard, 0, len(scenarios))
	for i, s := range scenarios {
		taskID := fmt.Sprintf("%s-t%02d", p.WishID, i+1)
		cards = append(cards, TaskCard{
			TaskID:       taskID,
			ScenarioName: s.Name,
			Precondition: s.Precondition,
			Trigger:      s.Trigger,
			Outcome:      s.Outcome,
			Predicate:    predicateNameFor(taskID),
		})
	}
	p.TaskCards = cards
	return nil
}

// predicateNameFor derives a deterministic, Datalog-safe predicate name
// from a task_id.
func predicateNameFor(taskID string) string {
	replaced := strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(taskID)
	return "granted_" + strings.ToLower(replaced)
}
