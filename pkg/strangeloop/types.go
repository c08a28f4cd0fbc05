// Package strangeloop implements the C11 Strange-Loop Worker: a cheap and
// an expensive sub-agent that communicate only through the event log, never
// shared in-process memory. See spec.md §4.11.
package strangeloop

import "context"

// Pressure is the strange-loop's own load classification, distinct from
// pkg/probe's Verdict/Status vocabulary — it drives the batch-size table
// (§4.11), not a resource-gate decision.
type Pressure string

const (
	PressureIdle      Pressure = "IDLE"
	PressureNominal   Pressure = "NOMINAL"
	PressureElevated  Pressure = "ELEVATED"
	PressureThrottled Pressure = "THROTTLED"
	PressureCritical  Pressure = "CRITICAL"
)

// BatchSizes is one row of the pressure table.
type BatchSizes struct {
	Cheap     int
	Expensive int
}

// Sensor reports the current pressure reading for one tick.
type Sensor func(ctx context.Context) Pressure

// Discovery is the cheap sub-agent's output (§4.11 "discovery event").
type Discovery struct {
	Clusters   []string `json:"clusters"`
	Outliers   []string `json:"outliers"`
	TouchedIDs []string `json:"touched_ids"`
}

// Enrichment is the expensive sub-agent's output (§4.11 "enrichment
// event").
type Enrichment struct {
	AffectedIDs []string `json:"affected_ids"`
}

// CheapAgent performs the cheap per-entity operation (re-index, re-embed,
// cluster scan) over the referenced entity ids and summarizes the result.
type CheapAgent interface {
	Run(ctx context.Context, referencedIDs []string, batchSize int) (Discovery, error)
}

// ExpensiveAgent performs the expensive operation (summarization,
// extraction) over the prioritized entity ids.
type ExpensiveAgent interface {
	Run(ctx context.Context, prioritizedIDs []string, batchSize int) (Enrichment, error)
}

// EntityPool supplies random candidates when a discovery has nothing to
// prioritize (§4.11 "random fallback last").
type EntityPool interface {
	RandomCandidates(ctx context.Context, n int) ([]string, error)
}
