package backend

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/pubflow/core"
)

type documentResponse struct {
	Ref       string `json:"ref"`
	Class     string `json:"class"`
	Content   string `json:"content"`
	Hidden    bool   `json:"hidden"`
	Version   int    `json:"version"`
	TsChanged int64  `json:"ts_changed"`
}

func newDocumentResponse(doc *core.Document) documentResponse {
	return documentResponse{
		Ref:       doc.Ref.String(),
		Class:     doc.Class,
		Content:   doc.Content,
		Hidden:    doc.Hidden,
		Version:   doc.Version,
		TsChanged: doc.TsChanged,
	}
}

// require returns core.ErrUnauthorized if the user lacks the level. If doc is nil, the rules of the wiki decide.
func (b *Backend) require(r *request, level core.Level, wiki string, doc *core.Document) error {
	ok, err := b.db.HasAccess(r.ctx, level, r.user, wiki, doc)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}
	return nil
}

func (b *Backend) viewable(r *request, params httprouter.Params) (*core.Document, error) {
	ref, err := b.parseRef(params.ByName("ref"))
	if err != nil {
		return nil, err
	}
	doc, err := b.db.LoadDocument(r.ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := b.require(r, core.View, ref.Wiki, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *Backend) getDocument(w http.ResponseWriter, r *request, params httprouter.Params) error {
	doc, err := b.viewable(r, params)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newDocumentResponse(doc))
}

// saveDocument creates or updates a document from the form values "class" and "content".
// Workflow metadata and rights of an existing document are kept.
func (b *Backend) saveDocument(w http.ResponseWriter, r *request, params httprouter.Params) error {

	ref, err := b.parseRef(params.ByName("ref"))
	if err != nil {
		return err
	}

	doc, err := b.db.LoadDocument(r.ctx, ref)
	switch {
	case errors.Is(err, core.ErrNotFound):
		if err := b.require(r, core.Edit, ref.Wiki, nil); err != nil {
			return err
		}
		doc = core.NewDocument(ref, r.req.PostFormValue("class"), "")
	case err != nil:
		return err
	default:
		if err := b.require(r, core.Edit, ref.Wiki, doc); err != nil {
			return err
		}
	}

	if class := r.req.PostFormValue("class"); class != "" {
		doc.Class = class
	}
	if _, ok := b.db.ClassRegistry.Get(doc.Class); !ok {
		return badRequest("unknown class: %q", doc.Class)
	}
	doc.Content = r.req.PostFormValue("content")

	if err := b.db.SaveDocument(r.ctx, r.user, doc); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newDocumentResponse(doc))
}

func (b *Backend) deleteDocument(w http.ResponseWriter, r *request, params httprouter.Params) error {

	ref, err := b.parseRef(params.ByName("ref"))
	if err != nil {
		return err
	}

	doc, err := b.db.LoadDocument(r.ctx, ref)
	if err != nil {
		return err
	}

	if err := b.require(r, core.Delete, ref.Wiki, doc); err != nil {
		return err
	}

	if err := b.db.DeleteDocument(r.ctx, r.user, ref); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// copyDocument copies the document to the form value "to". The copy takes part in no workflow.
func (b *Backend) copyDocument(w http.ResponseWriter, r *request, params httprouter.Params) error {

	src, err := b.viewable(r, params)
	if err != nil {
		return err
	}

	dst, err := b.parseRef(r.req.PostFormValue("to"))
	if err != nil {
		return err
	}

	if err := b.require(r, core.Edit, dst.Wiki, nil); err != nil {
		return err
	}

	copied, err := b.db.CopyDocument(r.ctx, r.user, src.Ref, dst)
	if err != nil {
		return err
	}

	// the copy listener has changed the stored copy
	copied, err = b.db.LoadDocument(r.ctx, copied.Ref)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newDocumentResponse(copied))
}

// moveDocument moves the document and the documents below it into the space given by the form value "parent".
// The form value "name" renames the document. It is normalized, so a title like "Über uns" can be used.
func (b *Backend) moveDocument(w http.ResponseWriter, r *request, params httprouter.Params) error {

	ref, err := b.parseRef(params.ByName("ref"))
	if err != nil {
		return err
	}

	doc, err := b.db.LoadDocument(r.ctx, ref)
	if err != nil {
		return err
	}

	if err := b.require(r, core.Delete, ref.Wiki, doc); err != nil {
		return err
	}

	var name = ref.Name()
	if title := r.req.PostFormValue("name"); title != "" {
		name = core.NormalizeSegment(title)
		if name == "" {
			return badRequest("invalid name: %q", title)
		}
	}

	var to core.Ref
	if parent := r.req.PostFormValue("parent"); parent != "" {
		parentRef, err := b.parseRef(parent)
		if err != nil {
			return err
		}
		to = parentRef.Child(name)
	} else if parent := ref.Parent(); !parent.IsZero() {
		to = parent.Child(name)
	} else {
		to = core.NewRef(ref.Wiki, name)
	}

	if err := b.require(r, core.Edit, to.Wiki, nil); err != nil {
		return err
	}

	moved, err := b.db.MoveDocument(r.ctx, r.user, ref, to)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newDocumentResponse(moved))
}
