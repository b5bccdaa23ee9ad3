package memdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wansing/pubflow/core"
)

func key(ref core.Ref) string {
	return ref.Canonical().String()
}

// stored returns a deep copy which keeps ID and Version.
func stored(doc *core.Document) *core.Document {
	var c = doc.Clone(doc.Ref)
	c.ID = doc.ID
	c.Version = doc.Version
	return c
}

func matches(doc *core.Document, q core.Query) bool {
	if q.Wiki != "" && doc.Ref.Wiki != q.Wiki {
		return false
	}
	if !q.Below.IsZero() && !doc.Ref.IsBelow(q.Below) {
		return false
	}
	if !q.Target.IsZero() && (doc.Workflow == nil || !doc.Workflow.Target.Equal(q.Target)) {
		return false
	}
	if q.IsTarget != nil && (doc.Workflow == nil || doc.Workflow.IsTarget != *q.IsTarget) {
		return false
	}
	return true
}

// FindDocuments returns the matching refs in lexical order of their string representation.
func (db *DB) FindDocuments(ctx context.Context, q core.Query) ([]core.Ref, error) {

	db.mu.RLock()
	defer db.mu.RUnlock()

	var keys = make([]string, 0, len(db.documents))
	for k := range db.documents {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result []core.Ref
	for _, k := range keys {
		var doc = db.documents[k]
		if !matches(doc, q) {
			continue
		}
		result = append(result, doc.Ref)
		if q.Limit > 0 && len(result) >= q.Limit {
			break
		}
	}
	return result, nil
}

func (db *DB) LoadDocument(ctx context.Context, ref core.Ref) (*core.Document, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	doc, ok := db.documents[key(ref)]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", ref, core.ErrNotFound)
	}
	return stored(doc), nil
}

func (db *DB) RemoveDocument(ctx context.Context, ref core.Ref) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.documents[key(ref)]; !ok {
		return fmt.Errorf("document %s: %w", ref, core.ErrNotFound)
	}
	delete(db.documents, key(ref))
	return nil
}

// RenameDocument moves the document and all documents below it.
func (db *DB) RenameDocument(ctx context.Context, from, to core.Ref) error {

	db.mu.Lock()
	defer db.mu.Unlock()

	from, to = from.Canonical(), to.Canonical()

	if _, ok := db.documents[key(from)]; !ok {
		return fmt.Errorf("document %s: %w", from, core.ErrNotFound)
	}

	// compute all new refs first, so a conflict leaves the store unchanged
	var moved = make(map[string]core.Ref) // old key -> new ref
	for k, doc := range db.documents {
		switch {
		case doc.Ref.Equal(from):
			moved[k] = to
		case doc.Ref.IsBelow(from):
			moved[k] = core.Ref{
				Wiki:     to.Wiki,
				Segments: append(append([]string{}, to.Segments...), doc.Ref.Canonical().Segments[len(from.Segments):]...),
			}
		}
	}

	for _, ref := range moved {
		var k = key(ref)
		if _, ok := db.documents[k]; !ok {
			continue
		}
		if _, vacated := moved[k]; !vacated {
			return fmt.Errorf("document %s: %w", ref, core.ErrExists)
		}
	}

	var docs = make(map[string]*core.Document, len(moved))
	for k := range moved {
		docs[k] = db.documents[k]
		delete(db.documents, k)
	}
	for k, ref := range moved {
		docs[k].Ref = ref
		db.documents[key(ref)] = docs[k]
	}
	return nil
}

// StoreDocument replaces the document at doc.Ref and keeps its ID, or inserts a new one.
func (db *DB) StoreDocument(ctx context.Context, doc *core.Document) error {

	db.mu.Lock()
	defer db.mu.Unlock()

	doc.Ref = doc.Ref.Canonical()

	if existing, ok := db.documents[key(doc.Ref)]; ok {
		doc.ID = existing.ID
		doc.Version = existing.Version + 1
	} else {
		doc.ID = db.newID()
		doc.Version = 1
	}
	doc.TsChanged = time.Now().Unix()

	db.documents[key(doc.Ref)] = stored(doc)
	return nil
}
