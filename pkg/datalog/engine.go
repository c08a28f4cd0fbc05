// Package datalog is a small wrapper around google/mangle's fact store and
// fixed-point evaluator, used by pkg/governance (rule condition queries)
// and pkg/compiler (Pass 3/4 predicate registration and verdicts).
package datalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// Engine accumulates Datalog source (decls + rules) and base facts, and
// re-evaluates to a fixed point whenever either changes.
type Engine struct {
	mu          sync.Mutex
	source      strings.Builder
	store       factstore.FactStore
	programInfo *analysis.ProgramInfo
}

// New returns an empty engine with no rules loaded.
func New() *Engine {
	return &Engine{store: factstore.NewSimpleInMemoryStore()}
}

// LoadRules appends decl/rule source to the program and recompiles.
func (e *Engine) LoadRules(source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source.WriteString(source)
	e.source.WriteString("\n")
	return e.recompileLocked()
}

func (e *Engine) recompileLocked() error {
	unit, err := parse.Unit(strings.NewReader(e.source.String()))
	if err != nil {
		return herrors.Wrap(herrors.KindValidation, "parse datalog source", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return herrors.Wrap(herrors.KindValidation, "analyze datalog program", err)
	}
	if _, err := engine.EvalProgramWithStats(info, e.store); err != nil {
		return herrors.Wrap(herrors.KindInternal, "evaluate datalog program", err)
	}
	e.programInfo = info
	return nil
}

// AddFact asserts one base fact and re-evaluates to a fixed point so any
// derived predicates depending on it stay current.
func (e *Engine) AddFact(predicate string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	terms := make([]ast.BaseTerm, len(args))
	for i, a := range args {
		t, err := toTerm(a)
		if err != nil {
			return herrors.Wrap(herrors.KindValidation, fmt.Sprintf("fact %s arg %d", predicate, i), err)
		}
		terms[i] = t
	}
	atom := ast.NewAtom(predicate, terms...)
	e.store.Add(atom)

	if e.programInfo == nil {
		return nil
	}
	if _, err := engine.EvalProgramWithStats(e.programInfo, e.store); err != nil {
		return herrors.Wrap(herrors.KindInternal, "re-evaluate datalog program", err)
	}
	return nil
}

// Query returns every binding row currently held for predicate/arity,
// including rows derived by rules, not just asserted base facts.
func (e *Engine) Query(predicate string, arity int) ([][]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sym := ast.PredicateSym{Symbol: predicate, Arity: arity}
	var rows [][]any
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		row := make([]any, len(atom.Args))
		for i, arg := range atom.Args {
			row[i] = fromTerm(arg)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, herrors.Wrap(herrors.KindInternal, "query datalog store", err)
	}
	return rows, nil
}

// Count is a convenience for rule condition queries that compare a scalar
// fact count against a threshold.
func (e *Engine) Count(predicate string, arity int) (int, error) {
	rows, err := e.Query(predicate, arity)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func toTerm(v any) (ast.BaseTerm, error) {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "/") {
			return ast.Name(val)
		}
		return ast.String(val), nil
	case int:
		return ast.Number(int64(val)), nil
	case int64:
		return ast.Number(val), nil
	case float64:
		return ast.Float64(val), nil
	case bool:
		if val {
			return ast.TrueConstant, nil
		}
		return ast.FalseConstant, nil
	default:
		return nil, fmt.Errorf("unsupported fact argument type %T", v)
	}
}

func fromTerm(term ast.BaseTerm) any {
	switch t := term.(type) {
	case ast.Constant:
		switch t.Type {
		case ast.NameType, ast.StringType:
			return t.Symbol
		case ast.NumberType:
			return t.NumValue
		case ast.Float64Type:
			return t.Float64Value
		default:
			return t.String()
		}
	default:
		return fmt.Sprintf("%v", term)
	}
}
