package governance

import (
	"context"
	"time"
)

// StructuralProposal is a two-phase structural change (§4.9): proposed now,
// enacted only once its cooldown has elapsed. Enactment delegates the
// actual action to the Supervisor's public operations — this package never
// calls into pkg/supervisor directly, it emits an event the operator (or a
// future automation) consumes.
type StructuralProposal struct {
	ID               string
	Action           string
	Target           string
	Reason           string
	EvidenceEventIDs []int64
	ProposedAt       time.Time
	Cooldown         time.Duration

	enacted bool
}

// due reports whether enough time has elapsed since proposal to enact it.
func (p *StructuralProposal) due(now time.Time) bool {
	return !p.enacted && now.Sub(p.ProposedAt) >= p.Cooldown
}

// enactDueProposals enacts every pending proposal whose cooldown has
// elapsed, publishing one ENACTED event per proposal, and returns how many
// were enacted.
func (w *Worker) enactDueProposals(ctx context.Context) (int, error) {
	enacted := 0
	now := time.Now()
	for i := range w.proposals {
		p := &w.proposals[i]
		if !p.due(now) {
			continue
		}
		if _, _, err := w.pub.Publish(ctx, w.eventType("enacted"), "governance/proposal/"+p.ID, map[string]any{
			"proposal_id":        p.ID,
			"action":             p.Action,
			"target":             p.Target,
			"reason":             p.Reason,
			"evidence_event_ids": p.EvidenceEventIDs,
		}); err != nil {
			return enacted, err
		}
		p.enacted = true
		enacted++
	}
	// Drop enacted proposals; the ENACTED event is now their durable record.
	remaining := w.proposals[:0]
	for _, p := range w.proposals {
		if !p.enacted {
			remaining = append(remaining, p)
		}
	}
	w.proposals = remaining
	return enacted, nil
}

// Propose records a new structural proposal, publishing its PROPOSED event
// immediately. It is not enacted until a later cycle observes its cooldown
// has elapsed.
func (w *Worker) Propose(ctx context.Context, p StructuralProposal) error {
	if p.ProposedAt.IsZero() {
		p.ProposedAt = time.Now()
	}
	w.proposals = append(w.proposals, p)
	_, _, err := w.pub.Publish(ctx, w.eventType("proposed"), "governance/proposal/"+p.ID, map[string]any{
		"proposal_id":        p.ID,
		"action":             p.Action,
		"target":             p.Target,
		"reason":             p.Reason,
		"evidence_event_ids": p.EvidenceEventIDs,
		"cooldown_seconds":   p.Cooldown.Seconds(),
	})
	return err
}
