package workflow

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/wansing/pubflow/auth"
	"github.com/wansing/pubflow/core"
)

// Retarget computes the new target of a draft which has been moved from oldDraft to newDraft.
//
// The common trailing segments of oldDraft and oldTarget are the part which both share. The segments before
// are the roots of the draft and of the target. The new target is the target root followed by what follows the
// draft root in newDraft. If oldDraft and oldTarget share no trailing segment, the last segment of oldTarget is
// replaced by the last segment of newDraft.
//
// It returns false if no new target can be computed.
func Retarget(oldDraft, newDraft, oldTarget core.Ref) (core.Ref, bool) {
	newTarget, _, ok := retarget(oldDraft, newDraft, oldTarget)
	return newTarget, ok
}

// retarget reports whether the repair for an inconsistent old state was applied.
func retarget(oldDraft, newDraft, oldTarget core.Ref) (newTarget core.Ref, repaired bool, ok bool) {

	var d0 = oldDraft.Canonical().Segments
	var d1 = newDraft.Canonical().Segments
	var t0 = oldTarget.Canonical().Segments

	if len(d0) == 0 || len(d1) == 0 || len(t0) == 0 {
		return core.Ref{}, false, false
	}

	// common suffix, the target root keeps at least one segment
	var k = 0
	for k < len(d0) && k < len(t0)-1 && d0[len(d0)-1-k] == t0[len(t0)-1-k] {
		k++
	}

	var segments []string

	if k == 0 {
		segments = append(copyOf(t0[:len(t0)-1]), d1[len(d1)-1])
		repaired = true
	} else {
		var draftRoot = d0[:len(d0)-k]
		var targetRoot = t0[:len(t0)-k]
		switch {
		case hasPrefix(d1, draftRoot):
			segments = append(copyOf(targetRoot), d1[len(draftRoot):]...)
		case len(d1) >= k:
			segments = append(copyOf(targetRoot), d1[len(d1)-k:]...)
		default:
			return core.Ref{}, false, false
		}
	}

	if len(segments) == 0 {
		return core.Ref{}, repaired, false
	}

	newTarget = core.NewRef(oldTarget.Wiki, segments...)
	if newTarget.IsZero() || newTarget.Equal(newDraft) {
		return core.Ref{}, repaired, false
	}
	return newTarget, repaired, true
}

func copyOf(s []string) []string {
	return append(make([]string, 0, len(s)+1), s...)
}

func hasPrefix(s, prefix []string) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Reconciler moves the published copy when its draft is moved.
type Reconciler struct {
	engine *Engine
	roles  *auth.Resolver
	log    zerolog.Logger
}

type move struct {
	from core.Ref
	doc  *core.Document
}

// OnMoved handles the moved document and all documents below it. It logs errors and never returns them.
func (rc *Reconciler) OnMoved(ctx context.Context, ev *core.Event) error {

	var moves = []move{{from: ev.From, doc: ev.Document}}

	below, err := rc.engine.db.FindDocuments(ctx, core.Query{
		Below: ev.Document.Ref,
	})
	if err != nil {
		rc.log.Warn().Err(err).Stringer("ref", ev.Document.Ref).Msg("finding moved documents")
		return nil
	}
	for _, ref := range below {
		doc, err := rc.engine.db.LoadDocument(ctx, ref)
		if err != nil {
			rc.log.Warn().Err(err).Stringer("ref", ref).Msg("loading moved document")
			continue
		}
		var suffix = ref.Canonical().Segments[len(ev.Document.Ref.Canonical().Segments):]
		moves = append(moves, move{
			from: core.NewRef(ev.From.Wiki, append(copyOf(ev.From.Canonical().Segments), suffix...)...),
			doc:  doc,
		})
	}

	// deepest first, so published children are moved before their parent takes them along
	sort.SliceStable(moves, func(i, j int) bool {
		return len(moves[i].doc.Ref.Segments) > len(moves[j].doc.Ref.Segments)
	})

	for _, m := range moves {
		rc.reconcile(ctx, ev.User, m.from, m.doc)
	}
	return nil
}

func (rc *Reconciler) reconcile(ctx context.Context, u core.DBUser, from core.Ref, draft *core.Document) {

	var wf = draft.GetWorkflow()
	if wf == nil || wf.IsTarget || wf.Status != core.StatusPublished {
		return
	}

	var log = rc.log.With().Stringer("ref", draft.Ref).Stringer("from", from).Stringer("target", wf.Target).Logger()

	published, err := rc.engine.db.LoadDocument(ctx, wf.Target)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Debug().Msg("published document not found")
		} else {
			log.Warn().Err(err).Msg("loading published document")
		}
		return
	}
	if pwf := published.GetWorkflow(); pwf == nil || !pwf.IsTarget {
		return
	}

	if !rc.roles.CanValidate(ctx, u, draft) {
		log.Debug().Str("user", core.UserName(u)).Msg("not moving published document, user is no validator")
		return
	}

	newTarget, repaired, ok := retarget(from, draft.Ref, wf.Target)
	if !ok {
		log.Warn().Msg("can't compute the new target, published document stays at target")
		return
	}
	if repaired {
		log.Debug().Stringer("new_target", newTarget).Msg("draft and target were not aligned")
	}
	if newTarget.Equal(wf.Target) {
		return
	}

	defer rc.engine.locks.lock(newTarget.String())()

	if _, err := rc.engine.db.LoadDocument(ctx, newTarget); err == nil {
		log.Warn().Stringer("new_target", newTarget).Msg("new target exists already, published document stays")
		return
	} else if !errors.Is(err, core.ErrNotFound) {
		log.Warn().Err(err).Stringer("new_target", newTarget).Msg("checking new target")
		return
	}

	published, err = rc.engine.db.MoveDocument(ctx, u, wf.Target, newTarget)
	if err != nil {
		log.Warn().Err(err).Stringer("new_target", newTarget).Msg("moving published document")
		return
	}

	published.Workflow.Target = newTarget
	if err := rc.engine.db.SaveDocument(ctx, u, published); err != nil {
		log.Warn().Err(err).Msg("saving published document")
		return
	}

	draft.Workflow.Target = newTarget
	if err := rc.engine.db.SaveDocument(ctx, u, draft); err != nil {
		log.Warn().Err(err).Msg("saving draft")
		return
	}

	log.Info().Stringer("new_target", newTarget).Msg("moved published document along with its draft")
}
