// Package corpus supplies the concrete collaborators the C8, C10, and C11
// workers need to actually run a cycle, over the one substrate this system
// has: the stigmergy event log. Document ingestion into the store is
// explicitly out of scope (spec.md §1), so the document-shaped contracts
// (prospector.DocumentStore, prospector.KnownItems,
// adversarial.DocumentScanner) are satisfied here by no-op stand-ins rather
// than a real corpus; the strange-loop's entity-shaped contracts
// (strangeloop.CheapAgent, ExpensiveAgent, EntityPool) are NOT document
// concerns and get a genuine event-log-backed implementation below.
package corpus

import (
	"context"

	"github.com/obsidian-forge/hfo/pkg/adversarial"
	"github.com/obsidian-forge/hfo/pkg/prospector"
)

// NullDocumentStore reports zero unconsidered documents, always.
type NullDocumentStore struct{}

func (NullDocumentStore) UnconsideredDocuments(ctx context.Context, consideredIDs map[string]bool) ([]prospector.Document, error) {
	return nil, nil
}

// NullKnownItems reports every item as unknown, always.
type NullKnownItems struct{}

func (NullKnownItems) Contains(ctx context.Context, name string) (bool, error) {
	return false, nil
}

// NullDocumentScanner reports no structural indicators, always. The
// adversarial worker's own event-pattern classification (§4.8 step 2)
// still runs; this only disables the document-corpus-derived signals
// step 3 describes as optional.
type NullDocumentScanner struct{}

func (NullDocumentScanner) ScanStructuralIndicators(ctx context.Context) ([]adversarial.Classification, error) {
	return nil, nil
}
