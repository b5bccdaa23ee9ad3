package auth

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/pubflow/classes"
	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/memdb"
)

type fixture struct {
	db                                     *core.CoreDB
	resolver                               *Resolver
	admin, contrib, mod, val, editor, none core.DBUser
	logs                                   *bytes.Buffer
}

func setup(t *testing.T) *fixture {
	t.Helper()

	var ctx = context.Background()
	var mem = memdb.New()
	var f = &fixture{
		db:   mem.CoreDB(classes.DefaultRegistry, nil),
		logs: &bytes.Buffer{},
	}
	f.resolver = NewResolver(f.db, "main", zerolog.New(f.logs))

	var user = func(name string, groups ...string) core.DBUser {
		u, err := mem.InsertUser(ctx, name)
		require.NoError(t, err)
		for _, name := range groups {
			g, err := mem.GetGroupByName(ctx, name)
			if err != nil {
				g, err = mem.InsertGroup(ctx, name)
				require.NoError(t, err)
			}
			require.NoError(t, mem.Join(ctx, g, u))
		}
		return u
	}

	f.admin = user("admin", "Admins")
	f.contrib = user("carol", "Authors")
	f.mod = user("mike", "Moderators")
	f.val = user("vera")
	f.editor = user("eddie", "Editors")
	f.none = user("nobody")

	require.NoError(t, mem.InsertAccessRule(ctx, "main", "Admins", core.Admin))
	require.NoError(t, mem.InsertAccessRule(ctx, "main", "Editors", core.Edit))

	require.NoError(t, mem.SaveConfig(ctx, &core.Config{
		Name:         "news",
		Contributors: core.Principals{Groups: []string{"Authors"}},
		Moderators:   core.Principals{Groups: []string{"Moderators"}},
		Validators:   core.Principals{Users: []string{"vera"}},
	}))

	return f
}

func workflowDoc(config string) *core.Document {
	var doc = core.NewDocument(core.MustParseRef("main:Drafts.Topic"), "html", "")
	doc.SetWorkflow(&core.Workflow{
		ConfigRef: config,
		Target:    core.MustParseRef("main:Public.Topic"),
		Status:    core.StatusDraft,
	})
	return doc
}

func TestRoles(t *testing.T) {
	var f = setup(t)
	var ctx = context.Background()
	var doc = workflowDoc("news")

	tests := []struct {
		user                           core.DBUser
		contribute, moderate, validate bool
	}{
		{f.admin, true, true, true},
		{f.contrib, true, false, false},
		{f.mod, true, true, false},
		{f.val, true, true, true},
		{f.editor, false, false, false},
		{f.none, false, false, false},
		{nil, false, false, false},
	}

	for _, test := range tests {
		var name = core.UserName(test.user)
		assert.Equal(t, test.contribute, f.resolver.CanContribute(ctx, test.user, doc), "contribute %s", name)
		assert.Equal(t, test.moderate, f.resolver.CanModerate(ctx, test.user, doc), "moderate %s", name)
		assert.Equal(t, test.validate, f.resolver.CanValidate(ctx, test.user, doc), "validate %s", name)
	}
}

func TestRolesWithoutConfig(t *testing.T) {
	var f = setup(t)
	var ctx = context.Background()

	for _, doc := range []*core.Document{nil, core.NewDocument(core.MustParseRef("main:Plain"), "html", ""), workflowDoc("missing")} {
		assert.True(t, f.resolver.CanValidate(ctx, f.editor, doc))
		assert.True(t, f.resolver.CanContribute(ctx, f.editor, doc))
		assert.False(t, f.resolver.CanModerate(ctx, f.contrib, doc))
		assert.True(t, f.resolver.CanModerate(ctx, f.admin, doc))
	}
}

func TestRolesNestedGroups(t *testing.T) {
	var f = setup(t)
	var ctx = context.Background()

	staff, err := f.db.InsertGroup(ctx, "Staff")
	require.NoError(t, err)
	moderators, err := f.db.GetGroupByName(ctx, "Moderators")
	require.NoError(t, err)
	require.NoError(t, f.db.Nest(ctx, moderators, staff))
	require.NoError(t, f.db.Join(ctx, staff, f.none))

	assert.True(t, f.resolver.CanModerate(ctx, f.none, workflowDoc("news")))
	assert.False(t, f.resolver.CanValidate(ctx, f.none, workflowDoc("news")))
}

func TestRolesDocumentDeny(t *testing.T) {
	var f = setup(t)
	var ctx = context.Background()

	var doc = core.NewDocument(core.MustParseRef("main:Plain"), "html", "")
	doc.Rights = []core.Rights{{Levels: []core.Level{core.Edit}, Users: []string{"eddie"}, Allow: false}}

	assert.False(t, f.resolver.CanContribute(ctx, f.editor, doc))
	assert.True(t, f.resolver.CanContribute(ctx, f.admin, doc))
}
