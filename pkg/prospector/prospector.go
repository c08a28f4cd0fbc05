package prospector

import (
	"context"
	"fmt"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/models"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

// Worker runs the prospector cycle.
type Worker struct {
	docs       DocumentStore
	known      KnownItems
	model      ModelClient
	pub        *stigmergy.Publisher
	generation string
	statePath  string
	batchSize  int

	state           consideredState
	proposedThisRun map[string]bool
}

// New constructs a prospector Worker. statePath may be empty to keep the
// considered-set in-memory only (tests, dry runs).
func New(docs DocumentStore, known KnownItems, model ModelClient, pub *stigmergy.Publisher, generation, statePath string, batchSize int) (*Worker, error) {
	state, err := loadConsideredState(statePath)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Worker{
		docs:            docs,
		known:           known,
		model:           model,
		pub:             pub,
		generation:      generation,
		statePath:       statePath,
		batchSize:       batchSize,
		state:           state,
		proposedThisRun: map[string]bool{},
	}, nil
}

// Build wraps Cycle in a worker.Worker using the shared skeleton (§4.7).
func (w *Worker) Build(opts worker.Options) *worker.Worker {
	return worker.New(opts, w.pub, w.Cycle)
}

// Cycle implements one prospecting pass (§4.10 steps 1-5, and the
// full-pass restart rule).
func (w *Worker) Cycle(ctx context.Context) (worker.Tally, error) {
	candidates, err := w.docs.UnconsideredDocuments(ctx, w.state.IDs)
	if err != nil {
		return worker.Tally{}, herrors.Wrap(herrors.KindUnreachable, "list unconsidered documents", err)
	}

	if len(candidates) == 0 {
		if err := w.runFullPassReset(ctx); err != nil {
			return worker.Tally{}, err
		}
		return worker.Tally{Extra: map[string]any{"pass_complete": true}}, nil
	}

	batch := sampleWeighted(candidates, w.batchSize)
	proposed := 0

	for _, doc := range batch {
		items, err := w.processDocument(ctx, doc)
		if err != nil {
			return worker.Tally{}, err
		}
		for _, item := range items {
			if err := w.emitProposal(ctx, doc, item); err != nil {
				return worker.Tally{}, err
			}
			proposed++
		}
		w.state.IDs[doc.ID] = true
	}

	if err := persistConsideredState(w.statePath, w.state); err != nil {
		return worker.Tally{}, err
	}

	return worker.Tally{Extra: map[string]any{
		"batch_size": len(batch),
		"proposed":   proposed,
	}}, nil
}

func (w *Worker) processDocument(ctx context.Context, doc Document) ([]ProposedItem, error) {
	prompt := composePrompt(doc, w.state.IDs)
	raw, err := w.model.Complete(ctx, prompt)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindUnreachable, "call model for document "+doc.ID, err)
	}

	candidates, err := parseResponse(raw)
	if err != nil {
		// A malformed response is this document's problem, not a worker
		// fault: skip it rather than failing the whole cycle.
		return nil, nil
	}

	valid := make([]ProposedItem, 0, len(candidates))
	for _, item := range candidates {
		ok, err := w.validate(ctx, item)
		if err != nil {
			return nil, err
		}
		if ok {
			valid = append(valid, item)
			w.proposedThisRun[item.Name] = true
		}
	}
	return valid, nil
}

func (w *Worker) validate(ctx context.Context, item ProposedItem) (bool, error) {
	if item.Name == "" || !validCategory(item.Category) {
		return false, nil
	}
	if item.Score < MinScore {
		return false, nil
	}
	if w.proposedThisRun[item.Name] {
		return false, nil
	}
	if w.known != nil {
		known, err := w.known.Contains(ctx, item.Name)
		if err != nil {
			return false, herrors.Wrap(herrors.KindUnreachable, "check known items", err)
		}
		if known {
			return false, nil
		}
	}
	return true, nil
}

func (w *Worker) emitProposal(ctx context.Context, doc Document, item ProposedItem) error {
	_, _, err := w.pub.Publish(ctx, w.eventType("proposal"), "prospector/"+doc.ID, map[string]any{
		"document_id": doc.ID,
		"name":        item.Name,
		"category":    item.Category,
		"score":       item.Score,
		"rationale":   item.Rationale,
	})
	return err
}

// runFullPassReset implements the full-pass rule (§4.10): clear the
// considered set, nudge sampling temperature, publish pass_complete.
func (w *Worker) runFullPassReset(ctx context.Context) error {
	w.state.IDs = map[string]bool{}
	w.state.PassCount++
	w.state.Temperature = nextTemperature(w.state.Temperature)
	w.proposedThisRun = map[string]bool{}

	if err := persistConsideredState(w.statePath, w.state); err != nil {
		return err
	}

	_, _, err := w.pub.Publish(ctx, w.eventType("pass_complete"), "prospector/pass", map[string]any{
		"pass_count":  w.state.PassCount,
		"temperature": w.state.Temperature,
	})
	return err
}

func nextTemperature(t float64) float64 {
	next := t + 0.1
	if next > 1.0 {
		next = defaultTemperature
	}
	return next
}

func composePrompt(doc Document, known map[string]bool) []models.ChatMessage {
	names := make([]string, 0, len(known))
	for n := range known {
		names = append(names, n)
	}
	body := fmt.Sprintf(
		"Title: %s\nSummary: %s\nContent (partial): %s\nAlready known items: %v\n\n"+
			"Return a JSON array of newly discovered items as objects with fields "+
			"name, category (technique|artifact|hazard|lore), score (0-1), rationale.",
		doc.Title, doc.Summary, truncate(doc.Content, 2000), names,
	)
	return []models.ChatMessage{{Role: "user", Content: body}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (w *Worker) eventType(action string) string {
	return stigmergy.NewTypeBuilder(w.generation, stigmergy.PortP2, "prospector").Type(action)
}
