package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/obsidian-forge/hfo/pkg/models"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/strangeloop"
)

// EventEntityPool treats distinct event subjects as the strange-loop's
// "entities" (§4.11) — the one identifier space this system actually has,
// in place of the out-of-scope document corpus.
type EventEntityPool struct {
	Store *stigmergy.Store
}

// RandomCandidates returns up to n distinct subjects from the most recent
// events, used as the strange-loop's fallback when a discovery names
// nothing to prioritize.
func (p EventEntityPool) RandomCandidates(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	events, err := p.Store.QueryByPattern(ctx, "*", 0, n*4)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, e := range events {
		if e.Subject == "" || seen[e.Subject] {
			continue
		}
		seen[e.Subject] = true
		out = append(out, e.Subject)
		if len(out) >= n {
			break
		}
	}
	return out, nil
}

// ClusteringCheapAgent is the strange-loop's cheap sub-agent: a pure local
// grouping of referenced entity ids by their leading path segment — the
// cheap "re-index/cluster scan" operation (§4.11). No model call
// involved, deliberately, so the cheap lane stays cheap.
type ClusteringCheapAgent struct{}

// Run groups referencedIDs (truncated to batchSize) by the segment before
// their first "/" or "." separator; groups with more than one member are
// clusters, singletons are outliers.
func (ClusteringCheapAgent) Run(ctx context.Context, referencedIDs []string, batchSize int) (strangeloop.Discovery, error) {
	if batchSize > 0 && batchSize < len(referencedIDs) {
		referencedIDs = referencedIDs[:batchSize]
	}
	groups := map[string][]string{}
	for _, id := range referencedIDs {
		groups[clusterKey(id)] = append(groups[clusterKey(id)], id)
	}
	var clusters, outliers []string
	for key, members := range groups {
		if len(members) > 1 {
			clusters = append(clusters, key)
		} else {
			outliers = append(outliers, members[0])
		}
	}
	return strangeloop.Discovery{
		Clusters:   clusters,
		Outliers:   outliers,
		TouchedIDs: referencedIDs,
	}, nil
}

func clusterKey(id string) string {
	for _, sep := range []string{"/", "."} {
		if i := strings.Index(id, sep); i > 0 {
			return id[:i]
		}
	}
	return id
}

// ModelExpensiveAgent is the strange-loop's expensive sub-agent: it asks
// a model to summarize the prioritized ids (the "summarization,
// extraction" operation, §4.11).
type ModelExpensiveAgent struct {
	Model ExpensiveModelClient
}

// ExpensiveModelClient is the narrow model contract this agent calls.
type ExpensiveModelClient interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

func (a ModelExpensiveAgent) Run(ctx context.Context, prioritizedIDs []string, batchSize int) (strangeloop.Enrichment, error) {
	if batchSize > 0 && batchSize < len(prioritizedIDs) {
		prioritizedIDs = prioritizedIDs[:batchSize]
	}
	if len(prioritizedIDs) == 0 || a.Model == nil {
		return strangeloop.Enrichment{}, nil
	}
	prompt := fmt.Sprintf("Summarize what these entities have in common: %s", strings.Join(prioritizedIDs, ", "))
	if _, err := a.Model.Complete(ctx, []models.ChatMessage{{Role: "user", Content: prompt}}); err != nil {
		return strangeloop.Enrichment{}, err
	}
	return strangeloop.Enrichment{AffectedIDs: prioritizedIDs}, nil
}
