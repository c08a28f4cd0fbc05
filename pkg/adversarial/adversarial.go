// Package adversarial implements the C8 Adversarial Worker: it classifies
// recent events as failure-indicating ("strife") or success-indicating
// ("splendor") and writes enriched derivative events back. See spec.md
// §4.8.
package adversarial

import (
	"context"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

// Signal is the strife/splendor classification (§4.8 step 1).
type Signal string

const (
	SignalStrife   Signal = "strife"
	SignalSplendor Signal = "splendor"
)

// PatternSet maps a glob pattern to the signal it indicates and the
// archetype label looked up for matches (§4.8 step 2's "small static
// lookup table keyed on the matched pattern").
type PatternSet struct {
	Pattern   string
	Signal    Signal
	Archetype string
}

// DefaultPatternSets is the fixed strife/splendor pattern table. Patterns
// match against event_type in-process via globMatch (SQLite GLOB semantics).
var DefaultPatternSets = []PatternSet{
	{Pattern: "hfo.*.*.*.error", Signal: SignalStrife, Archetype: "faltering_rite"},
	{Pattern: "hfo.*.infra.supervisor.death", Signal: SignalStrife, Archetype: "fallen_sentinel"},
	{Pattern: "hfo.*.*.anchor.tampered", Signal: SignalStrife, Archetype: "broken_seal"},
	{Pattern: "hfo.*.*.anchor.drift_detected", Signal: SignalStrife, Archetype: "shifting_ground"},
	{Pattern: "hfo.*.*.prospector.proposal", Signal: SignalSplendor, Archetype: "fresh_harvest"},
	{Pattern: "hfo.*.*.strangeloop.enrichment", Signal: SignalSplendor, Archetype: "deepened_insight"},
	{Pattern: "hfo.*.infra.supervisor.incarnate", Signal: SignalSplendor, Archetype: "rising_sentinel"},
}

// DocumentScanner abstracts structural indicators over the document store
// (§4.8 step 3) — e.g. "all documents at lowest quality tier" (strife) or
// "total words beyond threshold" (splendor). Out of scope per spec.md §1
// ("document ingestion into the store"); nil is a valid no-op scanner.
type DocumentScanner interface {
	ScanStructuralIndicators(ctx context.Context) ([]Classification, error)
}

// Classification is one derivative event's payload (§4.8 step 2).
type Classification struct {
	Signal          Signal `json:"signal"`
	SourceEventID   int64  `json:"source_event_id"`
	SourceEventType string `json:"source_event_type"`
	Song            string `json:"song"`
	TokenType       string `json:"token_type"`
	ArchetypeLabel  string `json:"archetype_label"`
}

// Worker runs the adversarial classification cycle.
type Worker struct {
	store         *stigmergy.Store
	pub           *stigmergy.Publisher
	generation    string
	patterns      []PatternSet
	scanner       DocumentScanner
	highWater     int64
	requestHigh   int64
	strifeCount   int
	splendorCount int
}

// New constructs an adversarial Worker.
func New(store *stigmergy.Store, pub *stigmergy.Publisher, generation string, scanner DocumentScanner) *Worker {
	return &Worker{store: store, pub: pub, generation: generation, patterns: DefaultPatternSets, scanner: scanner}
}

// Build wraps this worker's cycle in a worker.Worker using the shared
// skeleton (§4.7).
func (w *Worker) Build(opts worker.Options) *worker.Worker {
	return worker.New(opts, w.pub, w.Cycle)
}

// Cycle implements one adversarial pass (§4.8 steps 1-5).
func (w *Worker) Cycle(ctx context.Context) (worker.Tally, error) {
	classified := 0

	events, err := w.store.ReadByIDRange(ctx, w.highWater, 200)
	if err != nil {
		return worker.Tally{}, err
	}

	for _, event := range events {
		if event.ID > w.highWater {
			w.highWater = event.ID
		}
		for _, ps := range w.patterns {
			if !globMatch(ps.Pattern, event.EventType) {
				continue
			}
			c := Classification{
				Signal:          ps.Signal,
				SourceEventID:   event.ID,
				SourceEventType: event.EventType,
				Song:            songFor(ps.Signal),
				TokenType:       "event",
				ArchetypeLabel:  ps.Archetype,
			}
			if err := w.emit(ctx, c); err != nil {
				return worker.Tally{}, err
			}
			classified++
			if ps.Signal == SignalStrife {
				w.strifeCount++
			} else {
				w.splendorCount++
			}
			break // one classification per event, first matching pattern wins
		}
	}

	if w.scanner != nil {
		structural, err := w.scanner.ScanStructuralIndicators(ctx)
		if err != nil {
			return worker.Tally{}, herrors.Wrap(herrors.KindInternal, "scan structural indicators", err)
		}
		for _, c := range structural {
			if err := w.emit(ctx, c); err != nil {
				return worker.Tally{}, err
			}
			classified++
		}
	}

	if err := w.processRequests(ctx); err != nil {
		return worker.Tally{}, err
	}

	if err := w.publishHealthSnapshot(ctx); err != nil {
		return worker.Tally{}, err
	}

	return worker.Tally{Extra: map[string]any{"classified": classified}}, nil
}

// emit publishes one classification record. It supplies its own "signal"
// value (strife/splendor), which preempts Publisher's default provenance
// injection under that same key; source_event_id/source_event_type already
// carry provenance here.
func (w *Worker) emit(ctx context.Context, c Classification) error {
	_, _, err := w.pub.Publish(ctx, w.eventType("classification"), "adversarial/"+string(c.Signal), map[string]any{
		"signal":            c.Signal,
		"source_event_id":   c.SourceEventID,
		"source_event_type": c.SourceEventType,
		"song":              c.Song,
		"token_type":        c.TokenType,
		"archetype_label":   c.ArchetypeLabel,
	})
	return err
}

// processRequests scans for requests addressed to this worker, embedded in
// events of type "...perceive-yield..." (§4.8 step 5).
func (w *Worker) processRequests(ctx context.Context) error {
	pattern := "hfo.*.*.*.perceive-yield"
	events, err := w.store.ReadByIDRange(ctx, w.requestHigh, 50)
	if err != nil {
		return err
	}
	for _, event := range events {
		if event.ID > w.requestHigh {
			w.requestHigh = event.ID
		}
		if !globMatch(pattern, event.EventType) {
			continue
		}
		if _, _, err := w.pub.Publish(ctx, w.eventType("acknowledgment"), "adversarial/request", map[string]any{"source_event_id": event.ID}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) publishHealthSnapshot(ctx context.Context) error {
	_, _, err := w.pub.Publish(ctx, w.eventType("health"), "adversarial/health", map[string]any{
		"strife_count":   w.strifeCount,
		"splendor_count": w.splendorCount,
		"high_water":     w.highWater,
	})
	return err
}

func (w *Worker) eventType(action string) string {
	return stigmergy.NewTypeBuilder(w.generation, stigmergy.PortP1, "adversarial").Type(action)
}

func songFor(s Signal) string {
	if s == SignalStrife {
		return "dirge"
	}
	return "paean"
}

// globMatch implements the same '*'/'?' glob semantics as SQLite's GLOB,
// applied in-process against an already-fetched event so the high-water
// range scan doesn't need N separate pattern queries.
func globMatch(pattern, s string) bool {
	return globMatchRunes([]rune(pattern), []rune(s))
}

func globMatchRunes(pattern, s []rune) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		if globMatchRunes(pattern[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if globMatchRunes(pattern[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	}
}
