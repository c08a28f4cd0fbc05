package prospector

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// parseResponse tolerantly extracts proposed items from a model response
// (§4.10 step 3): strips markdown code fences, then extracts the first
// JSON array or a bare sequence of JSON objects.
func parseResponse(raw string) ([]ProposedItem, error) {
	body := stripFences(raw)
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, herrors.New(herrors.KindParseFailed, "empty model response")
	}

	result := gjson.Parse(body)
	if !result.Exists() {
		return nil, herrors.New(herrors.KindParseFailed, "response is not valid JSON")
	}

	var rows []gjson.Result
	switch {
	case result.IsArray():
		rows = result.Array()
	case result.IsObject():
		rows = []gjson.Result{result}
	default:
		return nil, herrors.New(herrors.KindParseFailed, "response is neither a JSON array nor object")
	}

	items := make([]ProposedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ProposedItem{
			Name:      row.Get("name").String(),
			Category:  Category(row.Get("category").String()),
			Score:     row.Get("score").Float(),
			Rationale: row.Get("rationale").String(),
		})
	}
	return items, nil
}

// stripFences removes a leading/trailing ``` or ```json code fence, if
// present, leaving the inner body untouched.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(s[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return s
}

func isLanguageTag(s string) bool {
	switch strings.ToLower(s) {
	case "json", "js", "javascript":
		return true
	default:
		return false
	}
}
