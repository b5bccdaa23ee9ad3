package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/wansing/pubflow/upload"
)

type CoreDB struct {
	AccessDB
	ClassRegistry
	ConfigDB
	DocumentDB
	GroupDB
	UserDB
	Attachments upload.Store // can be nil
	Events      *Bus
}

// SaveDocument stores the document and emits DocumentCreated or DocumentUpdated.
func (c *CoreDB) SaveDocument(ctx context.Context, u DBUser, doc *Document) error {

	if _, ok := c.ClassRegistry.Get(doc.Class); !ok {
		return fmt.Errorf("class %s not found", doc.Class)
	}

	var kind = DocumentUpdated
	if doc.ID == 0 {
		kind = DocumentCreated
	}

	if err := c.StoreDocument(ctx, doc); err != nil {
		return err
	}

	return c.Events.Emit(ctx, &Event{
		Kind:     kind,
		User:     u,
		Document: doc,
	})
}

// Overwrite stores a copy of src at dst, replacing any document there, and copies the attachments.
// It checks no rights, so it is for the workflow engine only.
// If prepare is not nil, it is called on the copy before it is stored. Overwrite emits no event.
func (c *CoreDB) Overwrite(ctx context.Context, src *Document, dst Ref, prepare func(*Document)) (*Document, error) {

	var copied = src.Clone(dst)
	if prepare != nil {
		prepare(copied)
	}

	if err := c.StoreDocument(ctx, copied); err != nil {
		return nil, err
	}

	if c.Attachments != nil && src.ID != 0 {
		if err := upload.CopyFolder(c.Attachments.Folder(copied.ID), c.Attachments.Folder(src.ID)); err != nil {
			return nil, err
		}
	}

	return copied, nil
}

// CopyDocument copies a document including its attachments and emits DocumentCopied.
// It returns ErrExists if there is a document at dst.
func (c *CoreDB) CopyDocument(ctx context.Context, u DBUser, src, dst Ref) (*Document, error) {

	if src.Equal(dst) {
		return nil, errors.New("can't copy a document onto itself")
	}

	original, err := c.LoadDocument(ctx, src)
	if err != nil {
		return nil, err
	}

	switch _, err := c.LoadDocument(ctx, dst); {
	case err == nil:
		return nil, fmt.Errorf("document %s: %w", dst, ErrExists)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	copied, err := c.Overwrite(ctx, original, dst, nil)
	if err != nil {
		return nil, err
	}

	return copied, c.Events.Emit(ctx, &Event{
		Kind:     DocumentCopied,
		User:     u,
		Document: copied,
		Source:   original,
	})
}

// MoveDocument renames a document and emits DocumentMoved.
func (c *CoreDB) MoveDocument(ctx context.Context, u DBUser, from, to Ref) (*Document, error) {

	if from.Equal(to) {
		return nil, errors.New("can't move a document onto itself")
	}

	if to.IsBelow(from) {
		return nil, errors.New("can't move a document below itself")
	}

	if err := c.RenameDocument(ctx, from, to); err != nil {
		return nil, err
	}

	moved, err := c.LoadDocument(ctx, to)
	if err != nil {
		return nil, err
	}

	return moved, c.Events.Emit(ctx, &Event{
		Kind:     DocumentMoved,
		User:     u,
		Document: moved,
		From:     from.Canonical(),
	})
}

// DeleteDocument removes a document and its attachments and emits DocumentDeleted.
func (c *CoreDB) DeleteDocument(ctx context.Context, u DBUser, ref Ref) error {

	doc, err := c.LoadDocument(ctx, ref)
	if err != nil {
		return err
	}

	if err := c.RemoveDocument(ctx, ref); err != nil {
		return err
	}

	if c.Attachments != nil {
		if err := c.Attachments.RemoveFolder(doc.ID); err != nil {
			return err
		}
	}

	return c.Events.Emit(ctx, &Event{
		Kind:     DocumentDeleted,
		User:     u,
		Document: doc,
	})
}

// Class returns the class of the document, or an error if it is not registered.
func (c *CoreDB) Class(doc *Document) (Class, error) {
	class, ok := c.ClassRegistry.Get(doc.Class)
	if !ok {
		return nil, fmt.Errorf("class %s not found", doc.Class)
	}
	return class, nil
}

// WorkflowConfig returns the named workflow configuration, or nil if name is empty or no such configuration exists.
func (c *CoreDB) WorkflowConfig(ctx context.Context, name string) (*Config, error) {
	if name == "" {
		return nil, nil
	}
	config, err := c.ConfigDB.GetConfig(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return config, err
}
