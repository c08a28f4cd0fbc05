package governance

import (
	"context"
	"time"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// MedallionTier is a quality tier label carried on documents and promotion
// events (GLOSSARY: Medallion). Tiers rank bronze < silver < gold.
type MedallionTier string

const (
	MedallionBronze MedallionTier = "bronze"
	MedallionSilver MedallionTier = "silver"
	MedallionGold   MedallionTier = "gold"
)

var medallionRank = map[MedallionTier]int{
	MedallionBronze: 0,
	MedallionSilver: 1,
	MedallionGold:   2,
}

// medallionGap returns to's rank minus from's rank, in tier steps.
func medallionGap(from, to MedallionTier) (int, error) {
	f, ok := medallionRank[from]
	if !ok {
		return 0, herrors.New(herrors.KindValidation, "unknown medallion tier "+string(from))
	}
	t, ok := medallionRank[to]
	if !ok {
		return 0, herrors.New(herrors.KindValidation, "unknown medallion tier "+string(to))
	}
	return t - f, nil
}

// PublishMedallionPromotion records a document's medallion-tier change.
// Whatever curates documents (out of scope here; §1) calls this when it
// reclassifies one; the governance cycle picks the event up on its next
// pass and checks it against the one-tier-per-cycle rule below.
func (w *Worker) PublishMedallionPromotion(ctx context.Context, docID string, from, to MedallionTier) (int64, string, error) {
	return w.pub.Publish(ctx, w.eventType("medallion_promotion"), "document/"+docID, map[string]any{
		"from_tier": string(from),
		"to_tier":   string(to),
	})
}

// assertMedallionFact decodes a medallion_promotion event and, when the
// promotion skipped more than one tier, asserts medallion_violation —
// mirroring how error_event is asserted alongside the generic event fact in
// Cycle, so the rule below can count violations without Datalog-side tier
// arithmetic. A malformed or unrecognized-tier envelope is skipped rather
// than failing the whole cycle.
func (w *Worker) assertMedallionFact(e stigmergy.Event) error {
	env, err := stigmergy.DecodeEnvelope(e.DataJSON)
	if err != nil {
		return nil
	}
	from, _ := env.Data["from_tier"].(string)
	to, _ := env.Data["to_tier"].(string)
	gap, err := medallionGap(MedallionTier(from), MedallionTier(to))
	if err != nil || gap <= 1 {
		return nil
	}
	return w.engine.AddFact("medallion_violation", e.Subject, from, to, e.ID)
}

// registerMedallionRule wires the one concrete FORBIDDANCE-style rule the
// glossary's Medallion entry references: no document may be promoted more
// than one tier in a single governance cycle (§4.9). ViolationThreshold 1
// means a single skip trips it immediately rather than waiting for a count.
func registerMedallionRule(w *Worker) error {
	return w.AddRule(Rule{
		ID:                 "medallion-tier-skip",
		Name:               "Medallion tier skip",
		ConditionPredicate: "medallion_violation",
		ConditionArity:     4,
		ViolationThreshold: 1,
		ActionOnViolation:  ActionBlock,
		Cooldown:           time.Minute,
		Enabled:            true,
	})
}
