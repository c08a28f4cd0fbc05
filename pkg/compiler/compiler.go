package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/obsidian-forge/hfo/pkg/datalog"
	"github.com/obsidian-forge/hfo/pkg/herrors"
	"github.com/obsidian-forge/hfo/pkg/models"
	"github.com/obsidian-forge/hfo/pkg/stigmergy"
)

// ModelClient is the narrow model contract Pass 1 calls when not running
// dry_run.
type ModelClient interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// errPipelineDenied marks a Pass-4 outcome with any predicate not GRANTED, distinguishing
// it from a syntactic/internal failure that terminates in REJECTED.
var errPipelineDenied = errors.New("pipeline denied")

// Compiler runs wishes through the five-pass pipeline, persisting state
// between passes and auditing every pass boundary.
type Compiler struct {
	store      *stigmergy.Store
	pub        *stigmergy.Publisher
	generation string
	model      ModelClient
	engine     *datalog.Engine
	stateDir   string
}

// New constructs a Compiler. model may be nil (dry_run only). stateDir
// holds one persisted pipeline JSON file per wish_id.
func New(store *stigmergy.Store, pub *stigmergy.Publisher, generation string, model ModelClient, stateDir string) *Compiler {
	engine := datalog.New()
	// Base declaration every Pass-3 predicate's body refers to; loaded once
	// so per-pipeline LoadRules calls only ever add new predicate names.
	_ = engine.LoadRules("Decl event(Type, Subject, Id).\n")

	return &Compiler{
		store:      store,
		pub:        pub,
		generation: generation,
		model:      model,
		engine:     engine,
		stateDir:   stateDir,
	}
}

// Compile starts a fresh pipeline for wishID from Pass 1.
func (c *Compiler) Compile(ctx context.Context, wishID, intentText string, dryRun bool) (*Pipeline, error) {
	if strings.TrimSpace(intentText) == "" {
		return nil, herrors.New(herrors.KindValidation, "intent must be non-empty")
	}
	p := &Pipeline{
		WishID:      wishID,
		IntentText:  intentText,
		Status:      StatusCreated,
		PassResults: map[int]PassResult{},
	}
	return c.runFrom(ctx, p, 1, 5, dryRun)
}

// CompilePass1 runs only Pass 1 (intent to structured scenario text) and
// persists the pipeline at PASS_1, without continuing on to Pass 2-5. It
// is the `compiler pass1` CLI verb (§6.4): a cheap preview of how an
// intent will be read before committing to the full five-pass run.
func (c *Compiler) CompilePass1(ctx context.Context, wishID, intentText string, dryRun bool) (*Pipeline, error) {
	if strings.TrimSpace(intentText) == "" {
		return nil, herrors.New(herrors.KindValidation, "intent must be non-empty")
	}
	p := &Pipeline{
		WishID:      wishID,
		IntentText:  intentText,
		Status:      StatusCreated,
		PassResults: map[int]PassResult{},
	}
	return c.runFrom(ctx, p, 1, 1, dryRun)
}

// Resume re-enters a persisted pipeline at fromPass (§4.13
// "resume(wish_id, from_pass)").
func (c *Compiler) Resume(ctx context.Context, wishID string, fromPass int) (*Pipeline, error) {
	p, err := loadPipeline(c.stateDir, wishID)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindInternal, "resume: load persisted pipeline", err)
	}
	if fromPass < 1 || fromPass > 5 {
		return nil, herrors.New(herrors.KindValidation, fmt.Sprintf("resume: from_pass %d out of range", fromPass))
	}
	return c.runFrom(ctx, p, fromPass, 5, false)
}

// Status loads a persisted pipeline without running any pass.
func (c *Compiler) Status(wishID string) (*Pipeline, error) {
	p, err := loadPipeline(c.stateDir, wishID)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindInternal, "status: load persisted pipeline", err)
	}
	return p, nil
}

// List returns every wish_id with a persisted pipeline (§6.4 "compiler
// list").
func (c *Compiler) List() ([]string, error) {
	return listPipelines(c.stateDir)
}

func (c *Compiler) runFrom(ctx context.Context, p *Pipeline, fromPass, toPass int, dryRun bool) (*Pipeline, error) {
	for pass := fromPass; pass <= toPass; pass++ {
		c.auditEvent(ctx, p, pass, "entry", "")

		verdict, detail, err := c.runPass(ctx, p, pass, dryRun)

		p.PassResults[pass] = PassResult{Pass: pass, Verdict: verdict, Detail: detail}
		c.auditEvent(ctx, p, pass, "verdict", verdict)
		c.auditEvent(ctx, p, pass, "exit", verdict)

		if err != nil {
			if errors.Is(err, errPipelineDenied) {
				p.Status = StatusDenied
			} else {
				p.Status = StatusRejected
			}
			_ = c.persist(p)
			return p, err
		}

		p.CurrentPass = pass
		p.Status = Status(fmt.Sprintf("PASS_%d", pass))
		if perr := c.persist(p); perr != nil {
			return p, perr
		}
	}

	if toPass < 5 {
		return p, nil
	}
	p.Status = StatusGranted
	_ = c.persist(p)
	return p, nil
}

// runPass dispatches to the pass's implementation and normalizes its
// outcome into (verdict string, detail string, error).
func (c *Compiler) runPass(ctx context.Context, p *Pipeline, pass int, dryRun bool) (string, string, error) {
	switch pass {
	case 1:
		err := c.runPass1(ctx, p, dryRun)
		return okOrFail(err)
	case 2:
		err := c.runPass2(ctx, p)
		return okOrFail(err)
	case 3:
		err := c.runPass3(ctx, p)
		return okOrFail(err)
	case 4:
		denied, err := c.runPass4(ctx, p)
		if err != nil {
			return "FAIL", err.Error(), err
		}
		if denied {
			return string(VerdictDenied), "", errPipelineDenied
		}
		return string(VerdictGranted), "", nil
	case 5:
		err := c.runPass5(ctx, p)
		return okOrFail(err)
	default:
		err := herrors.New(herrors.KindInternal, fmt.Sprintf("unknown pass %d", pass))
		return "FAIL", err.Error(), err
	}
}

func okOrFail(err error) (string, string, error) {
	if err != nil {
		return "FAIL", err.Error(), err
	}
	return "OK", "", nil
}

func (c *Compiler) auditEvent(ctx context.Context, p *Pipeline, pass int, kind, verdict string) {
	if c.pub == nil {
		return
	}
	subject := fmt.Sprintf("compiler/%s/pass%d", p.WishID, pass)
	data := map[string]any{"wish_id": p.WishID, "pass": pass}
	if verdict != "" {
		data["verdict"] = verdict
	}
	_, _, _ = c.pub.Publish(ctx, c.eventType(kind), subject, data)
}

func (c *Compiler) eventType(action string) string {
	return stigmergy.NewTypeBuilder(c.generation, stigmergy.PortP6, "compiler").Type(action)
}
