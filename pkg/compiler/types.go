// Package compiler implements the C13 Pipeline Compiler: a five-pass,
// fail-closed transformation from a free-text intent to a set of verdicts
// backed by the live event store. See spec.md §4.13.
package compiler

// Status is a pipeline's current position in the CREATED → PASS_1..5 →
// GRANTED/REJECTED/DENIED state machine.
type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusPass1    Status = "PASS_1"
	StatusPass2    Status = "PASS_2"
	StatusPass3    Status = "PASS_3"
	StatusPass4    Status = "PASS_4"
	StatusPass5    Status = "PASS_5"
	StatusGranted  Status = "GRANTED"
	StatusRejected Status = "REJECTED"
	StatusDenied   Status = "DENIED"
)

// Verdict is a single registered predicate's Pass-4 outcome.
type Verdict string

const (
	VerdictGranted Verdict = "GRANTED"
	VerdictDenied  Verdict = "DENIED"
)

// parsedScenario is one Given/When/Then scenario extracted from Pass 1's
// structured text (§4.13 passes 1 and 2 share this extraction).
type parsedScenario struct {
	Name         string
	Precondition string
	Trigger      string
	Outcome      string
}

// TaskCard is Pass 2's structured record per scenario.
type TaskCard struct {
	TaskID         string `json:"task_id"`
	ScenarioName   string `json:"scenario_name"`
	Precondition   string `json:"precondition"`
	Trigger        string `json:"trigger"`
	Outcome        string `json:"outcome"`
	PortMapping    string `json:"port_mapping,omitempty"`
	TargetArtifact string `json:"target_artifact,omitempty"`
	// Predicate is the deterministic name Pass 3 registers this card's
	// stub predicate under (derived from TaskID).
	Predicate string `json:"predicate"`
}

// PredicateVerdict is Pass 4's per-predicate outcome.
type PredicateVerdict struct {
	Predicate  string   `json:"predicate"`
	TaskID     string   `json:"task_id"`
	Verdict    Verdict  `json:"verdict"`
	Violations []string `json:"violations,omitempty"`
}

// PassResult is the audit record stored for one completed pass.
type PassResult struct {
	Pass    int    `json:"pass"`
	Verdict string `json:"verdict"`
	Detail  string `json:"detail,omitempty"`
}

// Pipeline is the persisted state of one wish's compilation run.
type Pipeline struct {
	WishID      string             `json:"wish_id"`
	IntentText  string             `json:"intent_text"`
	CurrentPass int                `json:"current_pass"`
	Status      Status             `json:"status"`
	PassResults map[int]PassResult `json:"pass_results"`

	ScenarioText    string             `json:"scenario_text,omitempty"`
	TaskCards       []TaskCard         `json:"task_cards,omitempty"`
	Verdicts        []PredicateVerdict `json:"verdicts,omitempty"`
	ReceiptArtifact string             `json:"receipt_artifact,omitempty"`
}
