package strangeloop

import (
	"context"
	"encoding/json"

	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
	"github.com/obsidian-forge/hfo/pkg/worker"
)

// Worker pairs a cheap and an expensive sub-agent within one process. The
// two never share in-process memory; each reads the other's prior event
// output from the store (§4.11's strange-loop invariant).
type Worker struct {
	store      *stigmergy.Store
	pub        *stigmergy.Publisher
	generation string
	cheap      CheapAgent
	expensive  ExpensiveAgent
	pool       EntityPool
	sensor     Sensor

	lookbackN int
}

// New constructs a strange-loop Worker. sensor chooses the pressure
// reading for each tick; pool is optional (nil disables random fallback,
// degrading it to an empty prioritized list).
func New(store *stigmergy.Store, pub *stigmergy.Publisher, generation string, cheap CheapAgent, expensive ExpensiveAgent, pool EntityPool, sensor Sensor) *Worker {
	return &Worker{
		store:      store,
		pub:        pub,
		generation: generation,
		cheap:      cheap,
		expensive:  expensive,
		pool:       pool,
		sensor:     sensor,
		lookbackN:  20,
	}
}

// Build wraps Cycle in a worker.Worker using the shared skeleton (§4.7).
func (w *Worker) Build(opts worker.Options) *worker.Worker {
	return worker.New(opts, w.pub, w.Cycle)
}

// Cycle runs one full tick: cheap sub-agent, then expensive sub-agent,
// then a combined pulse event (§4.11).
func (w *Worker) Cycle(ctx context.Context) (worker.Tally, error) {
	pressure := PressureNominal
	if w.sensor != nil {
		pressure = w.sensor(ctx)
	}
	sizes := batchSizesFor(pressure)

	discovery, err := w.runCheap(ctx, sizes.Cheap)
	if err != nil {
		return worker.Tally{}, err
	}

	enrichment, err := w.runExpensive(ctx, discovery, sizes.Expensive)
	if err != nil {
		return worker.Tally{}, err
	}

	if _, _, err := w.pub.Publish(ctx, w.eventType("pulse"), "strangeloop/tick", map[string]any{
		"pressure":        pressure,
		"cheap_batch":     sizes.Cheap,
		"expensive_batch": sizes.Expensive,
		"touched_ids":     discovery.TouchedIDs,
		"enriched_ids":    enrichment.AffectedIDs,
	}); err != nil {
		return worker.Tally{}, err
	}

	return worker.Tally{Extra: map[string]any{
		"pressure": string(pressure),
		"touched":  len(discovery.TouchedIDs),
		"enriched": len(enrichment.AffectedIDs),
	}}, nil
}

// runCheap reads the expensive sub-agent's recent output and runs the
// cheap agent against the referenced entities. On a cold restart with no
// prior enrichment events, referencedIDs is empty and the cheap agent
// still runs correctly against nothing (§4.11 "degenerate but correct").
func (w *Worker) runCheap(ctx context.Context, batchSize int) (Discovery, error) {
	if batchSize <= 0 || w.cheap == nil {
		return Discovery{}, w.publishDiscovery(ctx, Discovery{})
	}

	referenced, err := w.recentEnrichmentIDs(ctx)
	if err != nil {
		return Discovery{}, err
	}

	discovery, err := w.cheap.Run(ctx, referenced, batchSize)
	if err != nil {
		return Discovery{}, herrors.Wrap(herrors.KindInternal, "cheap sub-agent", err)
	}
	return discovery, w.publishDiscovery(ctx, discovery)
}

func (w *Worker) publishDiscovery(ctx context.Context, d Discovery) error {
	_, _, err := w.pub.Publish(ctx, w.eventType("discovery"), "strangeloop/discovery", map[string]any{
		"clusters":    d.Clusters,
		"outliers":    d.Outliers,
		"touched_ids": d.TouchedIDs,
	})
	return err
}

func (w *Worker) recentEnrichmentIDs(ctx context.Context) ([]string, error) {
	events, err := w.store.QueryByPattern(ctx, w.eventType("enrichment"), 0, w.lookbackN)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindUnreachable, "read recent enrichment events", err)
	}
	seen := map[string]bool{}
	var ids []string
	for _, e := range events {
		env, err := stigmergy.DecodeEnvelope(e.DataJSON)
		if err != nil {
			continue
		}
		var payload struct {
			AffectedIDs []string `json:"affected_ids"`
		}
		raw, err := json.Marshal(env.Data)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		for _, id := range payload.AffectedIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// runExpensive reads the most recent discovery event, prioritizes clusters
// first, outliers second, random fallback last, and runs the expensive
// agent over up to batchSize ids (§4.11).
func (w *Worker) runExpensive(ctx context.Context, _ Discovery, batchSize int) (Enrichment, error) {
	if batchSize <= 0 || w.expensive == nil {
		return Enrichment{}, w.publishEnrichment(ctx, Enrichment{})
	}

	var discovery Discovery
	last, found, err := w.store.ReadLastOfType(ctx, w.eventType("discovery"))
	if err != nil {
		return Enrichment{}, err
	}
	if found {
		if env, derr := stigmergy.DecodeEnvelope(last.DataJSON); derr == nil {
			if raw, merr := json.Marshal(env.Data); merr == nil {
				_ = json.Unmarshal(raw, &discovery)
			}
		}
	}

	prioritized, err := w.prioritize(ctx, discovery, batchSize)
	if err != nil {
		return Enrichment{}, err
	}

	enrichment, err := w.expensive.Run(ctx, prioritized, batchSize)
	if err != nil {
		return Enrichment{}, herrors.Wrap(herrors.KindInternal, "expensive sub-agent", err)
	}
	return enrichment, w.publishEnrichment(ctx, enrichment)
}

func (w *Worker) publishEnrichment(ctx context.Context, e Enrichment) error {
	_, _, err := w.pub.Publish(ctx, w.eventType("enrichment"), "strangeloop/enrichment", map[string]any{
		"affected_ids": e.AffectedIDs,
	})
	return err
}

func (w *Worker) prioritize(ctx context.Context, fresh Discovery, n int) ([]string, error) {
	picked := make([]string, 0, n)
	picked = appendUpTo(picked, fresh.Clusters, n)
	picked = appendUpTo(picked, fresh.Outliers, n)
	if len(picked) >= n {
		return picked[:n], nil
	}

	if w.pool != nil {
		fallback, err := w.pool.RandomCandidates(ctx, n-len(picked))
		if err != nil {
			return nil, herrors.Wrap(herrors.KindUnreachable, "random fallback candidates", err)
		}
		picked = appendUpTo(picked, fallback, n)
	}
	return picked, nil
}

func appendUpTo(dst []string, src []string, n int) []string {
	for _, s := range src {
		if len(dst) >= n {
			break
		}
		dst = append(dst, s)
	}
	return dst
}

func (w *Worker) eventType(action string) string {
	return stigmergy.NewTypeBuilder(w.generation, stigmergy.PortP4, "strangeloop").Type(action)
}
