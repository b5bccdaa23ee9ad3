// Package workflow moves documents through a fixed publication workflow:
//
//	draft -> moderating -> validating -> valid -> published -> archived
//
// A workflow document exists twice. The draft is edited by the workflow roles, and
// publishing copies it to its target address, where the published copy is read-only.
// Draft and published copy point at the same target.
//
// Transitions return false if the document is not in a state which allows them.
// Errors are returned only if the backing store fails.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wansing/pubflow/core"
)

// ErrNotSupported is returned by operations which would have to synthesize a draft from a published document.
var ErrNotSupported = errors.New("creating a draft from a published document is not supported")

type Engine struct {
	db    *core.CoreDB
	locks refLocks // per target
	log   zerolog.Logger
}

func NewEngine(db *core.CoreDB, log zerolog.Logger) *Engine {
	return &Engine{
		db:  db,
		log: log.With().Str("component", "workflow").Logger(),
	}
}

// GetWorkflowConfig returns the named configuration, or nil if the name is empty or the configuration does not exist.
func (e *Engine) GetWorkflowConfig(ctx context.Context, name string) (*core.Config, error) {
	return e.db.WorkflowConfig(ctx, name)
}

// GetWorkflowConfigForDocument returns nil if the document takes part in no workflow.
func (e *Engine) GetWorkflowConfigForDocument(ctx context.Context, doc *core.Document) (*core.Config, error) {
	var wf = doc.GetWorkflow()
	if wf == nil {
		return nil, nil
	}
	return e.GetWorkflowConfig(ctx, wf.ConfigRef)
}

// GetDraftDocument returns the first draft whose target is the given ref, or nil. If wiki is empty, all wikis are searched.
func (e *Engine) GetDraftDocument(ctx context.Context, target core.Ref, wiki string) (*core.Document, error) {

	refs, err := e.db.FindDocuments(ctx, core.Query{
		Wiki:     wiki,
		Target:   target,
		IsTarget: core.Bool(false),
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}

	draft, err := e.db.LoadDocument(ctx, refs[0])
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil // removed in the meantime
	}
	return draft, err
}

func IsWorkflowDocument(doc *core.Document) bool {
	return doc.GetWorkflow() != nil
}

// StartWorkflow makes the document at ref a draft for target.
// It returns false if target has a draft already, if the configuration does not exist, if ref equals target,
// or if the document takes part in a workflow already.
func (e *Engine) StartWorkflow(ctx context.Context, u core.DBUser, ref core.Ref, configName string, target core.Ref) (bool, error) {

	const op = "start workflow"

	ref, target = ref.Canonical(), target.Canonical()
	if target.IsZero() || ref.Equal(target) {
		return false, nil
	}

	defer e.locks.lock(target.String())()

	existing, err := e.GetDraftDocument(ctx, target, "")
	if err != nil {
		return false, wrap(op, target, err)
	}
	if existing != nil {
		e.log.Debug().Str("op", op).Stringer("target", target).Stringer("draft", existing.Ref).Msg("target has a draft already")
		return false, nil
	}

	config, err := e.GetWorkflowConfig(ctx, configName)
	if err != nil {
		return false, wrap(op, ref, err)
	}
	if config == nil {
		return false, nil
	}

	doc, err := e.db.LoadDocument(ctx, ref)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, wrap(op, ref, err)
	}
	if IsWorkflowDocument(doc) {
		e.log.Debug().Str("op", op).Stringer("ref", ref).Msg("document takes part in a workflow already")
		return false, nil
	}

	doc.SetWorkflow(&core.Workflow{
		ConfigRef: config.Name,
		Target:    target,
		Status:    core.StatusDraft,
		IsTarget:  false,
	})
	draftRights(doc, config)

	if err := e.db.SaveDocument(ctx, u, doc); err != nil {
		return false, wrap(op, ref, err)
	}

	e.logTransition(op, u, doc)
	return true, nil
}

// StartWorkflowAsTarget marks an existing document as the published copy of itself, without creating a draft.
// If includeChildren is true, documents below target are marked as well, unless they take part in a workflow already.
// It returns false if the target takes part in a workflow already or if the configuration does not exist.
func (e *Engine) StartWorkflowAsTarget(ctx context.Context, u core.DBUser, target core.Ref, configName string, includeChildren bool) (bool, error) {

	const op = "start workflow as target"

	config, err := e.GetWorkflowConfig(ctx, configName)
	if err != nil {
		return false, wrap(op, target, err)
	}
	if config == nil {
		return false, nil
	}

	doc, err := e.db.LoadDocument(ctx, target)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, wrap(op, target, err)
	}

	if IsWorkflowDocument(doc) {
		return false, nil
	}

	if err := e.markAsTarget(ctx, u, doc, config); err != nil {
		return false, wrap(op, target, err)
	}
	e.logTransition(op, u, doc)

	if !includeChildren {
		return true, nil
	}

	children, err := e.db.FindDocuments(ctx, core.Query{
		Below: doc.Ref,
	})
	if err != nil {
		return true, wrap(op, target, err)
	}

	for _, childRef := range children {
		child, err := e.db.LoadDocument(ctx, childRef)
		if err != nil {
			return true, wrap(op, childRef, err)
		}
		if IsWorkflowDocument(child) {
			continue
		}
		if err := e.markAsTarget(ctx, u, child, config); err != nil {
			return true, wrap(op, childRef, err)
		}
		e.logTransition(op, u, child)
	}

	return true, nil
}

func (e *Engine) markAsTarget(ctx context.Context, u core.DBUser, doc *core.Document, config *core.Config) error {
	doc.SetWorkflow(&core.Workflow{
		ConfigRef: config.Name,
		Target:    doc.Ref,
		Status:    core.StatusPublished,
		IsTarget:  true,
	})
	publishedRights(doc, config)
	return e.db.SaveDocument(ctx, u, doc)
}

// CreateDraftDocument would create a draft for a published document which has none.
// The location and name of such a draft are not defined yet.
func (e *Engine) CreateDraftDocument(ctx context.Context, u core.DBUser, target core.Ref) (core.Ref, error) {
	return core.Ref{}, ErrNotSupported
}

func wrap(op string, ref core.Ref, err error) error {
	return fmt.Errorf("%s %s: %w", op, ref, err)
}

func (e *Engine) logTransition(op string, u core.DBUser, doc *core.Document) {
	var ev = e.log.Info().Str("op", op).Str("user", core.UserName(u)).Stringer("ref", doc.Ref)
	if wf := doc.GetWorkflow(); wf != nil {
		ev = ev.Str("status", string(wf.Status)).Stringer("target", wf.Target)
	}
	ev.Msg("workflow transition")
}
