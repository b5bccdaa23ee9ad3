package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/upload"
)

// Rewriter replaces references to drafts in published content by references to the targets of the drafts.
type Rewriter struct {
	engine *Engine
	log    zerolog.Logger
}

// OnPublished rewrites the content of the published copy and saves it if the content has changed.
func (rw *Rewriter) OnPublished(ctx context.Context, ev *core.Event) error {

	var published = ev.Document

	// relative references were written at the location of the draft
	var base = published.Ref
	draft, err := rw.engine.GetDraftDocument(ctx, published.Ref, "")
	if err != nil {
		return err
	}
	if draft != nil {
		base = draft.Ref
	}

	content, err := rw.Rewrite(ctx, published, base)
	if err != nil {
		return err
	}
	if content == published.Content {
		return nil
	}

	published.Content = content
	return rw.engine.db.SaveDocument(ctx, ev.User, published)
}

// Rewrite returns the content of doc with every reference to a draft replaced by the target of that draft.
// Relative references are resolved against base. Attachment references keep their filename.
func (rw *Rewriter) Rewrite(ctx context.Context, doc *core.Document, base core.Ref) (string, error) {

	class, err := rw.engine.db.Class(doc)
	if err != nil {
		return "", err
	}

	var storeErr error

	content, err := class.RewriteRefs(doc.Content, func(kind core.RefKind, value string) (string, bool) {

		if storeErr != nil {
			return "", false
		}

		var fragment string
		if i := strings.IndexAny(value, "#?"); i != -1 {
			value, fragment = value[:i], value[i:]
		}

		docPart, filename, isAttachment := upload.SplitRef(value)
		if !isAttachment {
			if kind == core.ImageRef {
				return "", false // attachment of the document itself
			}
			docPart = value
		}

		ref, err := core.ResolveRef(docPart, base)
		if err != nil {
			return "", false // not a document reference
		}

		linked, err := rw.engine.db.LoadDocument(ctx, ref)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				storeErr = err
			}
			return "", false
		}

		var wf = linked.GetWorkflow()
		if wf == nil || wf.IsTarget || wf.Target.IsZero() {
			return "", false
		}

		var replacement = wf.Target.Local(doc.Ref.Wiki)
		if isAttachment {
			replacement = upload.JoinRef(replacement, filename)
		}

		rw.log.Debug().Stringer("ref", doc.Ref).Str("from", value).Str("to", replacement).Msg("rewriting reference")
		return replacement + fragment, true
	})
	if storeErr != nil {
		return "", storeErr
	}
	return content, err
}
