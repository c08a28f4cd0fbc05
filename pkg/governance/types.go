package governance

import (
	"context"
	"time"

	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// Subscription is an information-flow rule: whenever its cooldown has
// elapsed, matching recent events are fetched and Action is invoked with
// them. Actions only emit derivative events; they never mutate state
// directly (§4.9).
type Subscription struct {
	Name         string
	EventPattern string
	MinInterval  time.Duration
	Action       func(ctx context.Context, pub *stigmergy.Publisher, matches []stigmergy.Event) error

	lastFired time.Time
}

// ViolationAction is the action a Rule takes when its condition crosses
// threshold.
type ViolationAction string

const (
	ActionAdvisory ViolationAction = "ADVISORY"
	ActionAlert    ViolationAction = "ALERT"
	ActionBlock    ViolationAction = "BLOCK"
)

// Rule evaluates a Datalog condition predicate's fact count against a
// threshold every cycle it is enabled and off cooldown (§4.9).
type Rule struct {
	ID                 string
	Name               string
	ConditionPredicate string
	ConditionArity     int
	DatalogSource      string // decl + rule clauses defining ConditionPredicate
	ViolationThreshold int
	ActionOnViolation  ViolationAction
	Cooldown           time.Duration
	Enabled            bool

	lastFired time.Time
}

// CriterionResult is the outcome of one self-validation acceptance
// criterion.
type CriterionResult string

const (
	ResultPass  CriterionResult = "PASS"
	ResultFail  CriterionResult = "FAIL"
	ResultSkip  CriterionResult = "SKIP"
	ResultError CriterionResult = "ERROR"
)

// Criterion is a Given/When/Then acceptance check evaluated against the
// event log and store on every Nth cycle (§4.9 "Self-validation").
type Criterion struct {
	Name      string
	Given     string
	When      string
	Then      string
	Predicate func(ctx context.Context, store *stigmergy.Store) (CriterionResult, error)
}

// outcome is one criterion's recorded result, folded into the aggregate
// self-validation event.
type outcome struct {
	Name   string          `json:"name"`
	Result CriterionResult `json:"result"`
	Detail string          `json:"detail,omitempty"`
}
