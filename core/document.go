package core

import (
	"context"
	"errors"
)

var (
	ErrExists       = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

type Document struct {
	ID        int // assigned by the DocumentDB, zero if not stored yet
	Ref       Ref
	Class     string // content format code, see ClassRegistry
	Content   string
	Hidden    bool
	Rights    []Rights
	Workflow  *Workflow // nil if the document does not take part in a workflow
	Version   int
	TsChanged int64
}

// NewDocument creates an unsaved document.
func NewDocument(ref Ref, class, content string) *Document {
	return &Document{
		Ref:     ref.Canonical(),
		Class:   class,
		Content: content,
	}
}

// GetWorkflow returns the workflow metadata, or nil.
func (d *Document) GetWorkflow() *Workflow {
	if d == nil {
		return nil
	}
	return d.Workflow
}

func (d *Document) SetWorkflow(w *Workflow) {
	d.Workflow = w
}

// Clone returns a deep copy which is stored at another ref. ID and Version are reset.
func (d *Document) Clone(ref Ref) *Document {
	var clone = *d
	clone.ID = 0
	clone.Version = 0
	clone.Ref = ref.Canonical()
	clone.Rights = make([]Rights, len(d.Rights))
	for i, r := range d.Rights {
		clone.Rights[i] = Rights{
			Levels: append([]Level(nil), r.Levels...),
			Groups: append([]string(nil), r.Groups...),
			Users:  append([]string(nil), r.Users...),
			Allow:  r.Allow,
		}
	}
	if d.Workflow != nil {
		var wf = *d.Workflow
		clone.Workflow = &wf
	}
	return &clone
}

// Bool is a helper for optional booleans in a Query.
func Bool(b bool) *bool {
	return &b
}

// A Query selects documents by location and workflow metadata. Zero fields match everything.
type Query struct {
	Wiki     string
	Below    Ref   // strict descendants of this ref
	Target   Ref   // workflow target
	IsTarget *bool // workflow IsTarget, requires workflow metadata
	Limit    int
}

// A DocumentDB is the backing document store.
type DocumentDB interface {
	FindDocuments(ctx context.Context, q Query) ([]Ref, error)
	LoadDocument(ctx context.Context, ref Ref) (*Document, error) // ErrNotFound if it does not exist
	RemoveDocument(ctx context.Context, ref Ref) error
	RenameDocument(ctx context.Context, from, to Ref) error
	StoreDocument(ctx context.Context, doc *Document) error // inserts or replaces the document at doc.Ref, sets ID, Version and TsChanged
}
