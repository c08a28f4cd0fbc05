package compiler

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseStructuredText walks scenarioText as Markdown, looking for
// "Feature:" headings and "Scenario:" headings each followed by Given/
// When/Then clause lines (§4.13 Pass 1's syntactic validation, reused by
// Pass 2's extraction).
func parseStructuredText(source []byte) (featureCount int, scenarios []parsedScenario, err error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var current *parsedScenario
	var body strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Precondition = extractClause(body.String(), "Given:")
		current.Trigger = extractClause(body.String(), "When:")
		current.Outcome = extractClause(body.String(), "Then:")
		scenarios = append(scenarios, *current)
		current = nil
		body.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			title := collectText(h, source)
			switch {
			case strings.HasPrefix(title, "Feature:"):
				flush()
				featureCount++
			case strings.HasPrefix(title, "Scenario:"):
				flush()
				current = &parsedScenario{Name: strings.TrimSpace(strings.TrimPrefix(title, "Scenario:"))}
			default:
				flush()
			}
			continue
		}
		if current != nil {
			body.WriteString(collectText(n, source))
			body.WriteString("\n")
		}
	}
	flush()

	return featureCount, scenarios, nil
}

// collectText concatenates every text segment under n, in document order.
func collectText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			buf.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// extractClause finds the first line in body starting with marker and
// returns the text after it.
func extractClause(body, marker string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker))
		}
	}
	return ""
}
