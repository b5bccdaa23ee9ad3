package memdb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/pubflow/core"
)

func TestStoreDocument(t *testing.T) {

	var ctx = context.Background()
	var db = New()

	var doc = core.NewDocument(core.MustParseRef("main:A"), "raw", "one")
	require.NoError(t, db.StoreDocument(ctx, doc))
	assert.Equal(t, 1, doc.Version)

	var replacement = core.NewDocument(core.MustParseRef("main:A.default"), "raw", "two")
	require.NoError(t, db.StoreDocument(ctx, replacement))
	assert.Equal(t, doc.ID, replacement.ID)
	assert.Equal(t, 2, replacement.Version)

	loaded, err := db.LoadDocument(ctx, doc.Ref)
	require.NoError(t, err)
	assert.Equal(t, "two", loaded.Content)

	// loaded documents are copies
	loaded.Content = "changed"
	again, err := db.LoadDocument(ctx, doc.Ref)
	require.NoError(t, err)
	assert.Equal(t, "two", again.Content)

	require.NoError(t, db.RemoveDocument(ctx, doc.Ref))
	_, err = db.LoadDocument(ctx, doc.Ref)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestFindAndRename(t *testing.T) {

	var ctx = context.Background()
	var db = New()

	for _, ref := range []string{"main:B", "main:A.B", "main:A", "main:A.B.C", "other:A.B"} {
		require.NoError(t, db.StoreDocument(ctx, core.NewDocument(core.MustParseRef(ref), "raw", "")))
	}

	var draft = core.NewDocument(core.MustParseRef("main:D"), "raw", "")
	draft.Workflow = &core.Workflow{Target: core.MustParseRef("main:B"), Status: core.StatusDraft}
	require.NoError(t, db.StoreDocument(ctx, draft))

	all, err := db.FindDocuments(ctx, core.Query{Wiki: "main"})
	require.NoError(t, err)
	assert.Equal(t, []core.Ref{
		core.MustParseRef("main:A"),
		core.MustParseRef("main:A.B"),
		core.MustParseRef("main:A.B.C"),
		core.MustParseRef("main:B"),
		core.MustParseRef("main:D"),
	}, all)

	drafts, err := db.FindDocuments(ctx, core.Query{Target: core.MustParseRef("main:B"), IsTarget: core.Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, []core.Ref{core.MustParseRef("main:D")}, drafts)

	assert.ErrorIs(t, db.RenameDocument(ctx, core.MustParseRef("main:A"), core.MustParseRef("main:B")), core.ErrExists)

	require.NoError(t, db.RenameDocument(ctx, core.MustParseRef("main:A"), core.MustParseRef("main:X.Y")))
	below, err := db.FindDocuments(ctx, core.Query{Below: core.MustParseRef("main:X")})
	require.NoError(t, err)
	assert.Equal(t, []core.Ref{
		core.MustParseRef("main:X.Y"),
		core.MustParseRef("main:X.Y.B"),
		core.MustParseRef("main:X.Y.B.C"),
	}, below)

	_, err = db.LoadDocument(ctx, core.MustParseRef("other:A.B"))
	assert.NoError(t, err)
}

func TestRenameConflictBelow(t *testing.T) {

	var ctx = context.Background()
	var db = New()

	for _, ref := range []string{"main:A", "main:A.X", "main:B.X"} {
		require.NoError(t, db.StoreDocument(ctx, core.NewDocument(core.MustParseRef(ref), "raw", "")))
	}

	err := db.RenameDocument(ctx, core.MustParseRef("main:A"), core.MustParseRef("main:B"))
	assert.ErrorIs(t, err, core.ErrExists)

	// nothing has moved
	all, err := db.FindDocuments(ctx, core.Query{Wiki: "main"})
	require.NoError(t, err)
	assert.Equal(t, []core.Ref{
		core.MustParseRef("main:A"),
		core.MustParseRef("main:A.X"),
		core.MustParseRef("main:B.X"),
	}, all)

	doc, err := db.LoadDocument(ctx, core.MustParseRef("main:A.X"))
	require.NoError(t, err)
	assert.Equal(t, core.MustParseRef("main:A.X"), doc.Ref)
}
