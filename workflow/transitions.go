package workflow

import (
	"context"
	"errors"

	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/upload"
)

const (
	draftCopy     = false
	publishedCopy = true
)

// load returns the document at ref and its configuration if it passes the guard, else nil.
// The guard requires workflow metadata, one of the given statuses (any if none is given), the expected copy and an existing configuration.
func (e *Engine) load(ctx context.Context, op string, ref core.Ref, isTarget bool, statuses ...core.Status) (*core.Document, *core.Config, error) {

	doc, err := e.db.LoadDocument(ctx, ref)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, wrap(op, ref, err)
	}

	var wf = doc.GetWorkflow()
	if wf == nil || wf.IsTarget != isTarget {
		return nil, nil, nil
	}
	if len(statuses) > 0 && !wf.Status.In(statuses...) {
		return nil, nil, nil
	}

	config, err := e.GetWorkflowConfig(ctx, wf.ConfigRef)
	if err != nil {
		return nil, nil, wrap(op, ref, err)
	}
	if config == nil {
		e.log.Warn().Str("op", op).Stringer("ref", ref).Str("config", wf.ConfigRef).Msg("workflow config not found")
		return nil, nil, nil
	}

	return doc, config, nil
}

// transition runs a guarded transition which changes the document only.
func (e *Engine) transition(ctx context.Context, op string, u core.DBUser, ref core.Ref, isTarget bool, statuses []core.Status, change func(*core.Document, *core.Config)) (bool, error) {

	doc, config, err := e.load(ctx, op, ref, isTarget, statuses...)
	if doc == nil || err != nil {
		return false, err
	}

	change(doc, config)

	if err := e.db.SaveDocument(ctx, u, doc); err != nil {
		return false, wrap(op, ref, err)
	}

	e.logTransition(op, u, doc)
	return true, nil
}

// SubmitForModeration moves a draft to moderation. If the configuration has no moderators, it calls SubmitForValidation instead.
func (e *Engine) SubmitForModeration(ctx context.Context, u core.DBUser, ref core.Ref) (bool, error) {

	doc, config, err := e.load(ctx, "submit for moderation", ref, draftCopy, core.StatusDraft)
	if doc == nil || err != nil {
		return false, err
	}

	if config.Moderators.IsEmpty() {
		return e.SubmitForValidation(ctx, u, ref)
	}

	return e.transition(ctx, "submit for moderation", u, ref, draftCopy, []core.Status{core.StatusDraft}, func(doc *core.Document, config *core.Config) {
		doc.Workflow.Status = core.StatusModerating
		moderatingRights(doc, config)
	})
}

func (e *Engine) RefuseModeration(ctx context.Context, u core.DBUser, ref core.Ref) (bool, error) {
	return e.transition(ctx, "refuse moderation", u, ref, draftCopy, []core.Status{core.StatusModerating}, func(doc *core.Document, config *core.Config) {
		doc.Workflow.Status = core.StatusDraft
		draftRights(doc, config)
	})
}

func (e *Engine) SubmitForValidation(ctx context.Context, u core.DBUser, ref core.Ref) (bool, error) {
	return e.transition(ctx, "submit for validation", u, ref, draftCopy, []core.Status{core.StatusDraft, core.StatusModerating}, func(doc *core.Document, config *core.Config) {
		doc.Workflow.Status = core.StatusValidating
		validatingRights(doc, config)
	})
}

func (e *Engine) RefuseValidation(ctx context.Context, u core.DBUser, ref core.Ref) (bool, error) {
	return e.transition(ctx, "refuse validation", u, ref, draftCopy, []core.Status{core.StatusValidating}, func(doc *core.Document, config *core.Config) {
		doc.Workflow.Status = core.StatusDraft
		draftRights(doc, config)
	})
}

// Validate marks a draft as ready for publishing. Rights stay as they are.
func (e *Engine) Validate(ctx context.Context, u core.DBUser, ref core.Ref) (bool, error) {
	return e.transition(ctx, "validate", u, ref, draftCopy, []core.Status{core.StatusValidating}, func(doc *core.Document, _ *core.Config) {
		doc.Workflow.Status = core.StatusValid
	})
}

// EditDraft sets a draft in any status back to draft.
func (e *Engine) EditDraft(ctx context.Context, u core.DBUser, ref core.Ref) (bool, error) {
	return e.transition(ctx, "edit draft", u, ref, draftCopy, nil, func(doc *core.Document, config *core.Config) {
		doc.Workflow.Status = core.StatusDraft
		draftRights(doc, config)
	})
}

// Archive hides a published document.
func (e *Engine) Archive(ctx context.Context, u core.DBUser, ref core.Ref) (bool, error) {
	return e.transition(ctx, "archive", u, ref, publishedCopy, []core.Status{core.StatusPublished}, func(doc *core.Document, _ *core.Config) {
		doc.Workflow.Status = core.StatusArchived
		doc.Hidden = true
	})
}

func (e *Engine) PublishFromArchive(ctx context.Context, u core.DBUser, ref core.Ref) (bool, error) {
	return e.transition(ctx, "publish from archive", u, ref, publishedCopy, []core.Status{core.StatusArchived}, func(doc *core.Document, _ *core.Config) {
		doc.Workflow.Status = core.StatusPublished
		doc.Hidden = false
	})
}

// Publish copies a valid or validating draft to its target, replacing any document there, and returns the target.
//
// The published copy is stored first and DocumentPublished is emitted, then the draft is saved.
// If saving the draft fails, the published copy stays and Publish can be called again.
func (e *Engine) Publish(ctx context.Context, u core.DBUser, ref core.Ref) (core.Ref, bool, error) {

	const op = "publish"

	draft, config, err := e.load(ctx, op, ref, draftCopy, core.StatusValidating, core.StatusValid)
	if draft == nil || err != nil {
		return core.Ref{}, false, err
	}

	var target = draft.Workflow.Target.Canonical()
	if target.IsZero() || target.Equal(draft.Ref) {
		return core.Ref{}, false, nil
	}

	defer e.locks.lock(target.String())()

	// the target must not be claimed by another draft
	claimant, err := e.GetDraftDocument(ctx, target, "")
	if err != nil {
		return core.Ref{}, false, wrap(op, target, err)
	}
	if claimant != nil && !claimant.Ref.Equal(draft.Ref) {
		e.log.Warn().Str("op", op).Stringer("ref", draft.Ref).Stringer("target", target).Stringer("claimant", claimant.Ref).Msg("target is claimed by another draft")
		return core.Ref{}, false, nil
	}

	published, err := e.db.Overwrite(ctx, draft, target, func(published *core.Document) {
		published.Hidden = false
		published.SetWorkflow(&core.Workflow{
			ConfigRef: draft.Workflow.ConfigRef,
			Target:    target,
			Status:    core.StatusPublished,
			IsTarget:  true,
		})
		publishedRights(published, config)
	})
	if err != nil {
		return core.Ref{}, false, wrap(op, target, err)
	}

	if err := e.db.Events.Emit(ctx, &core.Event{
		Kind:     core.DocumentPublished,
		User:     u,
		Document: published,
	}); err != nil {
		return core.Ref{}, false, wrap(op, target, err)
	}

	draft.Workflow.Status = core.StatusPublished
	publishedDraftRights(draft, config)

	if err := e.db.SaveDocument(ctx, u, draft); err != nil {
		return core.Ref{}, false, wrap(op, draft.Ref, err)
	}

	e.logTransition(op, u, draft)
	return target, true, nil
}

// Unpublish sets the draft of a published or archived document back to draft and removes the published copy.
// If force is true, the draft gets the content and attachments of the published copy.
// It returns the draft, or ErrNotSupported if the published copy has no draft.
func (e *Engine) Unpublish(ctx context.Context, u core.DBUser, ref core.Ref, force bool) (core.Ref, bool, error) {
	return e.unpublish(ctx, "unpublish", u, ref, force, core.StatusPublished, core.StatusArchived)
}

// Unarchive is Unpublish for archived documents.
func (e *Engine) Unarchive(ctx context.Context, u core.DBUser, ref core.Ref, force bool) (core.Ref, bool, error) {
	return e.unpublish(ctx, "unarchive", u, ref, force, core.StatusArchived)
}

func (e *Engine) unpublish(ctx context.Context, op string, u core.DBUser, ref core.Ref, force bool, statuses ...core.Status) (core.Ref, bool, error) {

	published, config, err := e.load(ctx, op, ref, publishedCopy, statuses...)
	if published == nil || err != nil {
		return core.Ref{}, false, err
	}

	draft, err := e.GetDraftDocument(ctx, published.Ref, "")
	if err != nil {
		return core.Ref{}, false, wrap(op, published.Ref, err)
	}
	if draft == nil {
		return core.Ref{}, false, wrap(op, published.Ref, ErrNotSupported)
	}

	draft.Workflow.Status = core.StatusDraft
	draftRights(draft, config)

	if force {
		draft.Class = published.Class
		draft.Content = published.Content
		if e.db.Attachments != nil {
			if err := upload.CopyFolder(e.db.Attachments.Folder(draft.ID), e.db.Attachments.Folder(published.ID)); err != nil {
				return core.Ref{}, false, wrap(op, draft.Ref, err)
			}
		}
	}

	if err := e.db.SaveDocument(ctx, u, draft); err != nil {
		return core.Ref{}, false, wrap(op, draft.Ref, err)
	}

	if err := e.db.DeleteDocument(ctx, u, published.Ref); err != nil {
		return core.Ref{}, false, wrap(op, published.Ref, err)
	}

	e.logTransition(op, u, draft)
	return draft.Ref, true, nil
}
