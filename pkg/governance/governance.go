// Package governance implements the C9 Governance Worker, the "Meadows
// engine": information-flow subscriptions, threshold rule evaluation over a
// Datalog-derived condition, two-phase structural proposals, and periodic
// self-validation. See spec.md §4.9.
package governance

import (
	"context"
	"strings"
	"time"

	"github.com/obsidian-forge/hfo/pkg/datalog"
	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

// Worker runs the governance cycle.
type Worker struct {
	store      *stigmergy.Store
	pub        *stigmergy.Publisher
	generation string
	engine     *datalog.Engine

	subs      []Subscription
	rules     []Rule
	proposals []StructuralProposal
	criteria  []Criterion

	validateEvery  int64
	cycleNum       int64
	highWater      int64
	throttledUntil time.Time
}

// New constructs a governance Worker with an empty engine; use AddRule to
// register rules (each loads its DatalogSource into the shared engine).
func New(store *stigmergy.Store, pub *stigmergy.Publisher, generation string, validateEvery int64) *Worker {
	return &Worker{
		store:         store,
		pub:           pub,
		generation:    generation,
		engine:        datalog.New(),
		validateEvery: validateEvery,
	}
}

// Build wraps Cycle in a worker.Worker using the shared skeleton (§4.7).
func (w *Worker) Build(opts worker.Options) *worker.Worker {
	return worker.New(opts, w.pub, w.Cycle)
}

// AddSubscription registers an information-flow subscription.
func (w *Worker) AddSubscription(s Subscription) {
	w.subs = append(w.subs, s)
}

// AddRule registers a rule and loads its condition predicate's Datalog
// source into the shared engine (decls must be idempotent to reload; the
// engine only accumulates, it never unloads).
func (w *Worker) AddRule(r Rule) error {
	if r.DatalogSource != "" {
		if err := w.engine.LoadRules(r.DatalogSource); err != nil {
			return herrors.Wrap(herrors.KindValidation, "load rule "+r.ID+" datalog source", err)
		}
	}
	w.rules = append(w.rules, r)
	return nil
}

// AddCriterion registers a self-validation acceptance criterion.
func (w *Worker) AddCriterion(c Criterion) {
	w.criteria = append(w.criteria, c)
}

// Cycle implements one governance pass: subscriptions, rule evaluation,
// proposal enactment, and (every Nth cycle) self-validation.
func (w *Worker) Cycle(ctx context.Context) (worker.Tally, error) {
	w.cycleNum++
	now := time.Now()
	if now.Before(w.throttledUntil) {
		if _, _, err := w.pub.Publish(ctx, w.eventType("throttled"), "governance/throttle", map[string]any{
			"until": w.throttledUntil.Format(time.RFC3339Nano),
		}); err != nil {
			return worker.Tally{}, err
		}
		return worker.Tally{Extra: map[string]any{"throttled": true}}, nil
	}

	events, err := w.store.ReadByIDRange(ctx, w.highWater, 500)
	if err != nil {
		return worker.Tally{}, err
	}
	for _, e := range events {
		if e.ID > w.highWater {
			w.highWater = e.ID
		}
		if err := w.engine.AddFact("event", e.EventType, e.Subject, e.ID); err != nil {
			return worker.Tally{}, err
		}
		// error_event is asserted separately from the generic event fact so
		// rule conditions can count just the errors without needing a
		// string-suffix builtin in the Datalog source (§4.9).
		if strings.HasSuffix(e.EventType, ".error") {
			if err := w.engine.AddFact("error_event", e.EventType, e.Subject, e.ID); err != nil {
				return worker.Tally{}, err
			}
		}
		if strings.HasSuffix(e.EventType, ".medallion_promotion") {
			if err := w.assertMedallionFact(e); err != nil {
				return worker.Tally{}, err
			}
		}
	}

	fired, err := w.runSubscriptions(ctx, now)
	if err != nil {
		return worker.Tally{}, err
	}

	violations, err := w.evaluateRules(ctx, now)
	if err != nil {
		return worker.Tally{}, err
	}

	enacted, err := w.enactDueProposals(ctx)
	if err != nil {
		return worker.Tally{}, err
	}

	if w.validateEvery > 0 && w.cycleNum%w.validateEvery == 0 {
		if err := w.runSelfValidation(ctx); err != nil {
			return worker.Tally{}, err
		}
	}

	return worker.Tally{Extra: map[string]any{
		"subscriptions_fired": fired,
		"violations":          violations,
		"proposals_enacted":   enacted,
	}}, nil
}

// runSubscriptions invokes every subscription whose cooldown has elapsed
// against matching recent events (§4.9 "Information-flow subscriptions").
func (w *Worker) runSubscriptions(ctx context.Context, now time.Time) (int, error) {
	fired := 0
	for i := range w.subs {
		s := &w.subs[i]
		if now.Sub(s.lastFired) < s.MinInterval {
			continue
		}
		matches, err := w.store.QueryByPattern(ctx, s.EventPattern, 0, 100)
		if err != nil {
			return fired, err
		}
		if len(matches) == 0 {
			continue
		}
		if s.Action != nil {
			if err := s.Action(ctx, w.pub, matches); err != nil {
				return fired, err
			}
		}
		s.lastFired = now
		fired++
	}
	return fired, nil
}

// evaluateRules checks each enabled, off-cooldown rule's condition
// predicate fact count against its threshold (§4.9 "Rule evaluation").
func (w *Worker) evaluateRules(ctx context.Context, now time.Time) (int, error) {
	violations := 0
	for i := range w.rules {
		r := &w.rules[i]
		if !r.Enabled || now.Sub(r.lastFired) < r.Cooldown {
			continue
		}
		count, err := w.engine.Count(r.ConditionPredicate, r.ConditionArity)
		if err != nil {
			return violations, herrors.Wrap(herrors.KindInternal, "evaluate rule "+r.ID, err)
		}
		if count < r.ViolationThreshold {
			continue
		}
		r.lastFired = now
		violations++
		if _, _, err := w.pub.Publish(ctx, w.eventType("violation"), "governance/rule/"+r.ID, map[string]any{
			"rule_id":    r.ID,
			"rule_name":  r.Name,
			"count":      count,
			"threshold":  r.ViolationThreshold,
			"action":     r.ActionOnViolation,
		}); err != nil {
			return violations, err
		}
		if r.ActionOnViolation == ActionBlock {
			w.throttledUntil = now.Add(r.Cooldown)
		}
	}
	return violations, nil
}

func (w *Worker) eventType(action string) string {
	return stigmergy.NewTypeBuilder(w.generation, stigmergy.PortInfra, "governance").Type(action)
}
