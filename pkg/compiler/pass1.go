package compiler

import (
	"context"
	"fmt"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/models"
)

// runPass1 turns the intent into structured scenario text and validates
// it syntactically (§4.13 Pass 1).
func (c *Compiler) runPass1(ctx context.Context, p *Pipeline, dryRun bool) error {
	var scenarioText string
	if dryRun || c.model == nil {
		scenarioText = dryRunScenarioText(p.IntentText)
	} else {
		resp, err := c.model.Complete(ctx, []models.ChatMessage{
			{Role: "system", Content: "Translate the intent into Markdown with one '# Feature:' heading and at least two '## Scenario:' headings, each followed by '- Given:', '- When:', and '- Then:' clause lines."},
			{Role: "user", Content: p.IntentText},
		})
		if err != nil {
			return herrors.Wrap(herrors.KindUnreachable, "pass 1 model call", err)
		}
		scenarioText = resp
	}

	featureCount, scenarios, err := parseStructuredText([]byte(scenarioText))
	if err != nil {
		return herrors.Wrap(herrors.KindParseFailed, "pass 1 structured text parse", err)
	}
	if featureCount < 1 {
		return herrors.New(herrors.KindValidation, "pass 1: no Feature: section found")
	}
	if len(scenarios) < 2 {
		return herrors.New(herrors.KindValidation, fmt.Sprintf("pass 1: need at least 2 scenarios, found %d", len(scenarios)))
	}
	for _, s := range scenarios {
		if s.Precondition == "" || s.Trigger == "" || s.Outcome == "" {
			return herrors.New(herrors.KindValidation, fmt.Sprintf("pass 1: scenario %q missing a precondition/trigger/outcome clause", s.Name))
		}
	}

	p.ScenarioText = scenarioText
	return nil
}
