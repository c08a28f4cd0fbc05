// Package prospector implements the C10 Prospector Worker: it mines the
// source document corpus for novel structured items by prompting a model
// and validating its tolerant-parsed output. See spec.md §4.10.
package prospector

import (
	"context"

	"github.com/obsidian-forge/hfo/pkg/models"
)

// Document is the narrow view of a corpus document the Prospector needs.
// Document ingestion into the store is out of scope (spec.md §1); this
// package only specifies the read contract it consumes.
type Document struct {
	ID        string
	Title     string
	Summary   string
	Content   string // partial content only; full text is not required
	WordCount int
}

// DocumentStore is the read-only corpus contract. consideredIDs lists
// documents this worker has already processed (across restarts, via its
// persisted state) so the store can exclude them server-side if it wants
// to, though the Prospector re-filters locally regardless.
type DocumentStore interface {
	UnconsideredDocuments(ctx context.Context, consideredIDs map[string]bool) ([]Document, error)
}

// KnownItems answers "is this item name already known" (already proposed
// historically, by any source) so a cycle can dedup against it (§4.10 step
// 2, step 4).
type KnownItems interface {
	Contains(ctx context.Context, name string) (bool, error)
}

// ModelClient is the narrow model contract the Prospector calls for
// extraction prompts.
type ModelClient interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// Category is the fixed enum validated items must fall within. The source
// spec leaves the concrete category vocabulary open; these four are
// grounded in the "knowledge forge" domain's glossary (technique/artifact/
// hazard/lore) and recorded as an Open Question resolution in DESIGN.md.
type Category string

const (
	CategoryTechnique Category = "technique"
	CategoryArtifact  Category = "artifact"
	CategoryHazard    Category = "hazard"
	CategoryLore      Category = "lore"
)

func validCategory(c Category) bool {
	switch c {
	case CategoryTechnique, CategoryArtifact, CategoryHazard, CategoryLore:
		return true
	default:
		return false
	}
}

// ProposedItem is one candidate structured item extracted from a model
// response, prior to validation.
type ProposedItem struct {
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	Score     float64  `json:"score"`
	Rationale string   `json:"rationale,omitempty"`
}

// MinScore is the minimum validation threshold (§4.10 step 4: "score ≥
// minimum threshold").
const MinScore = 0.5
