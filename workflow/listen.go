package workflow

import (
	"context"

	"github.com/wansing/pubflow/auth"
	"github.com/wansing/pubflow/core"
)

// Listen subscribes the reference rewriter, the rename reconciler and the copy listener to the event bus of the engine's CoreDB.
func (e *Engine) Listen(roles *auth.Resolver) {

	if e.db.Events == nil {
		e.db.Events = core.NewBus()
	}

	var rewriter = &Rewriter{
		engine: e,
		log:    e.log.With().Str("listener", "rewrite").Logger(),
	}
	var reconciler = &Reconciler{
		engine: e,
		roles:  roles,
		log:    e.log.With().Str("listener", "rename").Logger(),
	}

	e.db.Events.Subscribe(core.DocumentPublished, rewriter.OnPublished)
	e.db.Events.Subscribe(core.DocumentMoved, reconciler.OnMoved)
	e.db.Events.Subscribe(core.DocumentCopied, e.onCopied)
}

// A copy must not share the workflow of the original.
func (e *Engine) onCopied(ctx context.Context, ev *core.Event) error {
	var doc = ev.Document
	if !IsWorkflowDocument(doc) {
		return nil
	}
	doc.SetWorkflow(nil)
	return e.db.SaveDocument(ctx, ev.User, doc)
}
