package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/pubflow/auth"
	"github.com/wansing/pubflow/classes"
	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/filestore"
	"github.com/wansing/pubflow/memdb"
)

type env struct {
	ctx    context.Context
	db     *core.CoreDB
	engine *Engine
	logs   *bytes.Buffer

	contributor core.DBUser
	validator   core.DBUser
}

func newEnv(t *testing.T) *env {
	t.Helper()

	var e = &env{
		ctx:  context.Background(),
		logs: &bytes.Buffer{},
	}

	var mem = memdb.New()
	e.db = mem.CoreDB(classes.DefaultRegistry, &filestore.Store{UploadDir: t.TempDir()})

	var log = zerolog.New(e.logs)
	e.engine = NewEngine(e.db, log)
	e.engine.Listen(auth.NewResolver(e.db, "", log))

	authors, err := mem.InsertGroup(e.ctx, "Authors")
	require.NoError(t, err)

	e.contributor, err = mem.InsertUser(e.ctx, "carol")
	require.NoError(t, err)
	require.NoError(t, mem.Join(e.ctx, authors, e.contributor))

	e.validator, err = mem.InsertUser(e.ctx, "vera")
	require.NoError(t, err)

	require.NoError(t, mem.SaveConfig(e.ctx, &core.Config{
		Name:         "news",
		Contributors: core.Principals{Groups: []string{"Authors"}},
		Moderators:   core.Principals{Groups: []string{"Moderators"}},
		Validators:   core.Principals{Users: []string{"vera"}},
	}))
	require.NoError(t, mem.SaveConfig(e.ctx, &core.Config{
		Name:         "direct",
		Contributors: core.Principals{Groups: []string{"Authors"}},
		Validators:   core.Principals{Users: []string{"vera"}},
	}))

	return e
}

func (e *env) store(t *testing.T, ref, class, content string) *core.Document {
	t.Helper()
	var doc = core.NewDocument(core.MustParseRef(ref), class, content)
	require.NoError(t, e.db.SaveDocument(e.ctx, nil, doc))
	return doc
}

func (e *env) load(t *testing.T, ref string) *core.Document {
	t.Helper()
	doc, err := e.db.LoadDocument(e.ctx, core.MustParseRef(ref))
	require.NoError(t, err)
	return doc
}

func (e *env) exists(t *testing.T, ref string) bool {
	t.Helper()
	_, err := e.db.LoadDocument(e.ctx, core.MustParseRef(ref))
	if errors.Is(err, core.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

// draft stores a document and starts a workflow on it
func (e *env) draft(t *testing.T, ref, target, content string) core.Ref {
	t.Helper()
	e.store(t, ref, "html", content)
	ok, err := e.engine.StartWorkflow(e.ctx, e.contributor, core.MustParseRef(ref), "news", core.MustParseRef(target))
	require.NoError(t, err)
	require.True(t, ok)
	return core.MustParseRef(ref)
}

// published runs the draft through validation and publishes it
func (e *env) published(t *testing.T, ref, target, content string) (core.Ref, core.Ref) {
	t.Helper()
	var draft = e.draft(t, ref, target, content)
	ok, err := e.engine.SubmitForValidation(e.ctx, e.contributor, draft)
	require.NoError(t, err)
	require.True(t, ok)
	published, ok, err := e.engine.Publish(e.ctx, e.validator, draft)
	require.NoError(t, err)
	require.True(t, ok)
	return draft, published
}

func TestLifecycle(t *testing.T) {
	var e = newEnv(t)
	var ref = e.draft(t, "Drafts.Topic", "Public.Topic", "<p>hello</p>")

	var doc = e.load(t, "Drafts.Topic")
	require.NotNil(t, doc.Workflow)
	assert.Equal(t, core.Workflow{ConfigRef: "news", Target: core.MustParseRef("Public.Topic"), Status: core.StatusDraft}, *doc.Workflow)
	assert.Equal(t, []core.Rights{
		{Levels: viewEdit, Groups: []string{"Authors", "Moderators"}, Users: []string{"vera"}, Allow: true},
	}, doc.Rights)

	ok, err := e.engine.SubmitForModeration(e.ctx, e.contributor, ref)
	require.NoError(t, err)
	require.True(t, ok)

	doc = e.load(t, "Drafts.Topic")
	assert.Equal(t, core.StatusModerating, doc.Workflow.Status)
	assert.Equal(t, []core.Rights{
		{Levels: viewEdit, Groups: []string{"Moderators"}, Users: []string{"vera"}, Allow: true},
		{Levels: viewOnly, Groups: []string{"Authors"}, Allow: true},
	}, doc.Rights)

	ok, err = e.engine.RefuseModeration(e.ctx, e.validator, ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.StatusDraft, e.load(t, "Drafts.Topic").Workflow.Status)

	ok, err = e.engine.SubmitForValidation(e.ctx, e.contributor, ref)
	require.NoError(t, err)
	require.True(t, ok)

	doc = e.load(t, "Drafts.Topic")
	assert.Equal(t, core.StatusValidating, doc.Workflow.Status)
	assert.Equal(t, []core.Rights{
		{Levels: viewEdit, Users: []string{"vera"}, Allow: true},
		{Levels: viewOnly, Groups: []string{"Moderators", "Authors"}, Allow: true},
	}, doc.Rights)

	ok, err = e.engine.Validate(e.ctx, e.validator, ref)
	require.NoError(t, err)
	require.True(t, ok)

	doc = e.load(t, "Drafts.Topic")
	assert.Equal(t, core.StatusValid, doc.Workflow.Status)
	assert.Len(t, doc.Rights, 2)

	target, ok, err := e.engine.Publish(e.ctx, e.validator, ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Public.Topic", target.String())

	var published = e.load(t, "Public.Topic")
	assert.False(t, published.Hidden)
	assert.Equal(t, "<p>hello</p>", published.Content)
	assert.Equal(t, core.Workflow{ConfigRef: "news", Target: target, Status: core.StatusPublished, IsTarget: true}, *published.Workflow)
	canEdit, err := e.db.HasAccess(e.ctx, core.Edit, e.contributor, "", published)
	require.NoError(t, err)
	assert.False(t, canEdit)

	doc = e.load(t, "Drafts.Topic")
	assert.Equal(t, core.StatusPublished, doc.Workflow.Status)
	assert.False(t, doc.Workflow.IsTarget)
	canView, err := e.db.HasAccess(e.ctx, core.View, e.contributor, "", doc)
	require.NoError(t, err)
	assert.True(t, canView)
	canEdit, err = e.db.HasAccess(e.ctx, core.Edit, e.contributor, "", doc)
	require.NoError(t, err)
	assert.False(t, canEdit)

	ok, err = e.engine.Archive(e.ctx, e.validator, target)
	require.NoError(t, err)
	require.True(t, ok)
	published = e.load(t, "Public.Topic")
	assert.True(t, published.Hidden)
	assert.Equal(t, core.StatusArchived, published.Workflow.Status)

	ok, err = e.engine.PublishFromArchive(e.ctx, e.validator, target)
	require.NoError(t, err)
	require.True(t, ok)
	published = e.load(t, "Public.Topic")
	assert.False(t, published.Hidden)
	assert.Equal(t, core.StatusPublished, published.Workflow.Status)

	draftRef, ok, err := e.engine.Unpublish(e.ctx, e.validator, target, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, draftRef.Equal(ref))
	assert.False(t, e.exists(t, "Public.Topic"))
	assert.Equal(t, core.StatusDraft, e.load(t, "Drafts.Topic").Workflow.Status)

	assert.Contains(t, e.logs.String(), `"op":"publish"`)
}

func TestSubmitForModerationWithoutModerators(t *testing.T) {
	var e = newEnv(t)
	e.store(t, "Drafts.Quick", "html", "")
	ok, err := e.engine.StartWorkflow(e.ctx, e.contributor, core.MustParseRef("Drafts.Quick"), "direct", core.MustParseRef("Public.Quick"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.engine.SubmitForModeration(e.ctx, e.contributor, core.MustParseRef("Drafts.Quick"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, core.StatusValidating, e.load(t, "Drafts.Quick").Workflow.Status)
}

type transitionFunc func(e *env, ref core.Ref) (bool, error)

var transitions = []struct {
	name     string
	isTarget bool
	statuses []core.Status // nil means any
	call     transitionFunc
}{
	{"submit for moderation", false, []core.Status{core.StatusDraft}, func(e *env, ref core.Ref) (bool, error) {
		return e.engine.SubmitForModeration(e.ctx, nil, ref)
	}},
	{"refuse moderation", false, []core.Status{core.StatusModerating}, func(e *env, ref core.Ref) (bool, error) {
		return e.engine.RefuseModeration(e.ctx, nil, ref)
	}},
	{"submit for validation", false, []core.Status{core.StatusDraft, core.StatusModerating}, func(e *env, ref core.Ref) (bool, error) {
		return e.engine.SubmitForValidation(e.ctx, nil, ref)
	}},
	{"refuse validation", false, []core.Status{core.StatusValidating}, func(e *env, ref core.Ref) (bool, error) {
		return e.engine.RefuseValidation(e.ctx, nil, ref)
	}},
	{"validate", false, []core.Status{core.StatusValidating}, func(e *env, ref core.Ref) (bool, error) {
		return e.engine.Validate(e.ctx, nil, ref)
	}},
	{"publish", false, []core.Status{core.StatusValidating, core.StatusValid}, func(e *env, ref core.Ref) (bool, error) {
		_, ok, err := e.engine.Publish(e.ctx, nil, ref)
		return ok, err
	}},
	{"edit draft", false, nil, func(e *env, ref core.Ref) (bool, error) {
		return e.engine.EditDraft(e.ctx, nil, ref)
	}},
	{"unpublish", true, []core.Status{core.StatusPublished, core.StatusArchived}, func(e *env, ref core.Ref) (bool, error) {
		_, ok, err := e.engine.Unpublish(e.ctx, nil, ref, true)
		return ok, err
	}},
	{"archive", true, []core.Status{core.StatusPublished}, func(e *env, ref core.Ref) (bool, error) {
		return e.engine.Archive(e.ctx, nil, ref)
	}},
	{"unarchive", true, []core.Status{core.StatusArchived}, func(e *env, ref core.Ref) (bool, error) {
		_, ok, err := e.engine.Unarchive(e.ctx, nil, ref, true)
		return ok, err
	}},
	{"publish from archive", true, []core.Status{core.StatusArchived}, func(e *env, ref core.Ref) (bool, error) {
		return e.engine.PublishFromArchive(e.ctx, nil, ref)
	}},
}

func TestGuards(t *testing.T) {
	var e = newEnv(t)

	var plain = e.store(t, "Plain", "html", "<p>no workflow</p>")

	for _, status := range core.AllStatuses {
		for _, isTarget := range []bool{false, true} {

			var ref = core.NewRef("", "Grid", string(status), map[bool]string{false: "draft", true: "target"}[isTarget])
			var doc = core.NewDocument(ref, "html", "<p>grid</p>")
			doc.Workflow = &core.Workflow{
				ConfigRef: "news",
				Target:    ref.Parent().Child("published"),
				Status:    status,
				IsTarget:  isTarget,
			}
			if isTarget {
				doc.Workflow.Target = ref
			}
			require.NoError(t, e.db.SaveDocument(e.ctx, nil, doc))

			for _, tr := range transitions {
				if tr.isTarget == isTarget && (tr.statuses == nil || status.In(tr.statuses...)) {
					continue
				}

				ok, err := tr.call(e, ref)
				assert.NoError(t, err, "%s on %s", tr.name, ref)
				assert.False(t, ok, "%s on %s", tr.name, ref)

				var reloaded = e.load(t, ref.String())
				assert.Equal(t, doc.Version, reloaded.Version, "%s on %s", tr.name, ref)
				assert.Equal(t, *doc.Workflow, *reloaded.Workflow, "%s on %s", tr.name, ref)
			}
		}
	}

	for _, tr := range transitions {
		ok, err := tr.call(e, plain.Ref)
		assert.NoError(t, err)
		assert.False(t, ok, tr.name)

		ok, err = tr.call(e, core.MustParseRef("Does.Not.Exist"))
		assert.NoError(t, err)
		assert.False(t, ok, tr.name)
	}

	assert.Equal(t, plain.Version, e.load(t, "Plain").Version)

	for _, status := range core.AllStatuses {
		assert.False(t, e.exists(t, "Grid."+string(status)+".published"))
	}
}

func TestPublishThenGetDraft(t *testing.T) {
	var e = newEnv(t)
	var draft, target = e.published(t, "Drafts.Topic", "Public.Topic", "<p>x</p>")

	found, err := e.engine.GetDraftDocument(e.ctx, target, "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Ref.Equal(draft))

	found, err = e.engine.GetDraftDocument(e.ctx, target, "other")
	require.NoError(t, err)
	assert.Nil(t, found)

	// publishing again overwrites the published copy
	ok, err := e.engine.EditDraft(e.ctx, e.contributor, draft)
	require.NoError(t, err)
	require.True(t, ok)
	var doc = e.load(t, "Drafts.Topic")
	var publishedID = e.load(t, "Public.Topic").ID
	doc.Content = "<p>y</p>"
	require.NoError(t, e.db.SaveDocument(e.ctx, e.contributor, doc))
	ok, err = e.engine.SubmitForValidation(e.ctx, e.contributor, draft)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = e.engine.Publish(e.ctx, e.validator, draft)
	require.NoError(t, err)
	require.True(t, ok)

	var published = e.load(t, "Public.Topic")
	assert.Equal(t, "<p>y</p>", published.Content)
	assert.Equal(t, publishedID, published.ID)
}

func TestPublishCopiesAttachments(t *testing.T) {
	var e = newEnv(t)
	var draft = e.draft(t, "Drafts.Topic", "Public.Topic", "<p>x</p>")

	var folder = e.db.Attachments.Folder(e.load(t, "Drafts.Topic").ID)
	require.NoError(t, folder.Upload("photo.jpg", strings.NewReader("jpeg")))

	ok, err := e.engine.SubmitForValidation(e.ctx, e.contributor, draft)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = e.engine.Publish(e.ctx, e.validator, draft)
	require.NoError(t, err)
	require.True(t, ok)

	files, err := e.db.Attachments.Folder(e.load(t, "Public.Topic").ID).Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.jpg"}, files)
}

func TestPublishClaimedTarget(t *testing.T) {
	var e = newEnv(t)
	e.draft(t, "Drafts.First", "Public.Topic", "")

	// a second draft for the same target, bypassing StartWorkflow
	var second = core.NewDocument(core.MustParseRef("Drafts.Second"), "html", "")
	second.Workflow = &core.Workflow{ConfigRef: "news", Target: core.MustParseRef("Public.Topic"), Status: core.StatusValid}
	require.NoError(t, e.db.SaveDocument(e.ctx, nil, second))

	_, ok, err := e.engine.Publish(e.ctx, e.validator, second.Ref)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, e.exists(t, "Public.Topic"))
	assert.Contains(t, e.logs.String(), "target is claimed by another draft")
}

func TestUnpublishForce(t *testing.T) {
	var e = newEnv(t)
	var draft, target = e.published(t, "Drafts.Topic", "Public.Topic", "<p>published</p>")

	ok, err := e.engine.EditDraft(e.ctx, e.contributor, draft)
	require.NoError(t, err)
	require.True(t, ok)
	var doc = e.load(t, "Drafts.Topic")
	doc.Content = "<p>newer edit</p>"
	require.NoError(t, e.db.SaveDocument(e.ctx, e.contributor, doc))

	ref, ok, err := e.engine.Unpublish(e.ctx, e.validator, target, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ref.Equal(draft))

	doc = e.load(t, "Drafts.Topic")
	assert.Equal(t, "<p>published</p>", doc.Content)
	assert.Equal(t, core.StatusDraft, doc.Workflow.Status)
	assert.Equal(t, []core.Rights{
		{Levels: viewEdit, Groups: []string{"Authors", "Moderators"}, Users: []string{"vera"}, Allow: true},
	}, doc.Rights)
	assert.False(t, e.exists(t, "Public.Topic"))
}

func TestUnpublishKeepsDraftContent(t *testing.T) {
	var e = newEnv(t)
	var draft, target = e.published(t, "Drafts.Topic", "Public.Topic", "<p>published</p>")

	ok, err := e.engine.EditDraft(e.ctx, e.contributor, draft)
	require.NoError(t, err)
	require.True(t, ok)
	var doc = e.load(t, "Drafts.Topic")
	doc.Content = "<p>newer edit</p>"
	require.NoError(t, e.db.SaveDocument(e.ctx, e.contributor, doc))

	ok, err = e.engine.Archive(e.ctx, e.validator, target)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = e.engine.Unarchive(e.ctx, e.validator, target, false)
	require.NoError(t, err)
	require.True(t, ok)

	doc = e.load(t, "Drafts.Topic")
	assert.Equal(t, "<p>newer edit</p>", doc.Content)
	assert.Equal(t, core.StatusDraft, doc.Workflow.Status)
	assert.False(t, e.exists(t, "Public.Topic"))
}

func TestUnpublishWithoutDraft(t *testing.T) {
	var e = newEnv(t)
	e.store(t, "Public.Legacy", "html", "<p>old</p>")

	ok, err := e.engine.StartWorkflowAsTarget(e.ctx, e.validator, core.MustParseRef("Public.Legacy"), "news", false)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = e.engine.Unpublish(e.ctx, e.validator, core.MustParseRef("Public.Legacy"), true)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.False(t, ok)
	assert.True(t, e.exists(t, "Public.Legacy"))

	_, err = e.engine.CreateDraftDocument(e.ctx, e.validator, core.MustParseRef("Public.Legacy"))
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestStartWorkflow(t *testing.T) {
	var e = newEnv(t)
	e.draft(t, "Drafts.Topic", "Public.Topic", "")
	e.store(t, "Drafts.Other", "html", "")

	// target claimed
	ok, err := e.engine.StartWorkflow(e.ctx, nil, core.MustParseRef("Drafts.Other"), "news", core.MustParseRef("Public.Topic"))
	require.NoError(t, err)
	assert.False(t, ok)

	// config missing
	ok, err = e.engine.StartWorkflow(e.ctx, nil, core.MustParseRef("Drafts.Other"), "missing", core.MustParseRef("Public.Other"))
	require.NoError(t, err)
	assert.False(t, ok)

	// document missing
	ok, err = e.engine.StartWorkflow(e.ctx, nil, core.MustParseRef("Drafts.Missing"), "news", core.MustParseRef("Public.Missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Nil(t, e.load(t, "Drafts.Other").Workflow)
	assert.True(t, IsWorkflowDocument(e.load(t, "Drafts.Topic")))
	assert.False(t, IsWorkflowDocument(e.load(t, "Drafts.Other")))

	config, err := e.engine.GetWorkflowConfigForDocument(e.ctx, e.load(t, "Drafts.Topic"))
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, "news", config.Name)

	config, err = e.engine.GetWorkflowConfigForDocument(e.ctx, e.load(t, "Drafts.Other"))
	require.NoError(t, err)
	assert.Nil(t, config)

	config, err = e.engine.GetWorkflowConfig(e.ctx, "")
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestStartWorkflowOnWorkflowDocument(t *testing.T) {
	var e = newEnv(t)
	var draft, published = e.published(t, "Drafts.Topic", "Public.Topic", "<p>x</p>")

	for _, ref := range []core.Ref{draft, published} {
		ok, err := e.engine.StartWorkflow(e.ctx, e.contributor, ref, "news", core.MustParseRef("Public.Elsewhere"))
		require.NoError(t, err)
		assert.False(t, ok, ref.String())
	}

	var doc = e.load(t, "Public.Topic")
	require.NotNil(t, doc.Workflow)
	assert.Equal(t, core.StatusPublished, doc.Workflow.Status)
	assert.True(t, doc.Workflow.IsTarget)

	found, err := e.engine.GetDraftDocument(e.ctx, core.MustParseRef("Public.Elsewhere"), "")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestStartWorkflowConcurrently(t *testing.T) {
	var e = newEnv(t)

	const n = 8
	for i := 0; i < n; i++ {
		e.store(t, fmt.Sprintf("Drafts.Topic%d", i), "html", "")
	}

	var started int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := e.engine.StartWorkflow(e.ctx, e.contributor, core.MustParseRef(fmt.Sprintf("Drafts.Topic%d", i)), "news", core.MustParseRef("Public.Topic"))
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&started, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), started)

	drafts, err := e.db.FindDocuments(e.ctx, core.Query{Target: core.MustParseRef("Public.Topic"), IsTarget: core.Bool(false)})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	assert.Empty(t, e.engine.locks.locks)
}

func TestStartWorkflowAsTarget(t *testing.T) {
	var e = newEnv(t)
	e.store(t, "Public.Section", "html", "")
	e.store(t, "Public.Section.Plain", "html", "")
	e.draft(t, "Drafts.Claimed", "Public.Section.Claimed", "")
	var claimed = e.store(t, "Public.Section.Claimed", "html", "")
	claimed.Workflow = &core.Workflow{ConfigRef: "news", Target: claimed.Ref, Status: core.StatusArchived, IsTarget: true}
	require.NoError(t, e.db.SaveDocument(e.ctx, nil, claimed))

	ok, err := e.engine.StartWorkflowAsTarget(e.ctx, e.validator, core.MustParseRef("Public.Section"), "news", true)
	require.NoError(t, err)
	require.True(t, ok)

	for _, ref := range []string{"Public.Section", "Public.Section.Plain"} {
		var doc = e.load(t, ref)
		require.NotNil(t, doc.Workflow, ref)
		assert.Equal(t, core.Workflow{ConfigRef: "news", Target: core.MustParseRef(ref), Status: core.StatusPublished, IsTarget: true}, *doc.Workflow)
		assert.Equal(t, []core.Rights{
			{Levels: editOnly, Groups: []string{"Authors", "Moderators"}, Users: []string{"vera"}, Allow: false},
		}, doc.Rights)
	}

	assert.Equal(t, core.StatusArchived, e.load(t, "Public.Section.Claimed").Workflow.Status)

	// already a workflow document
	ok, err = e.engine.StartWorkflowAsTarget(e.ctx, e.validator, core.MustParseRef("Public.Section"), "news", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCopyStripsWorkflow(t *testing.T) {
	var e = newEnv(t)
	var draft = e.draft(t, "Drafts.Topic", "Public.Topic", "<p>x</p>")

	copied, err := e.db.CopyDocument(e.ctx, e.contributor, draft, core.MustParseRef("Drafts.Copy"))
	require.NoError(t, err)
	assert.Nil(t, copied.Workflow)

	var doc = e.load(t, "Drafts.Copy")
	assert.Nil(t, doc.Workflow)
	assert.Equal(t, "<p>x</p>", doc.Content)
	assert.NotNil(t, e.load(t, "Drafts.Topic").Workflow)

	found, err := e.engine.GetDraftDocument(e.ctx, core.MustParseRef("Public.Topic"), "")
	require.NoError(t, err)
	assert.True(t, found.Ref.Equal(draft))

	// copying onto an existing document is refused
	e.store(t, "Drafts.Taken", "html", "<p>taken</p>")
	_, err = e.db.CopyDocument(e.ctx, e.contributor, draft, core.MustParseRef("Drafts.Taken"))
	assert.ErrorIs(t, err, core.ErrExists)
	assert.Equal(t, "<p>taken</p>", e.load(t, "Drafts.Taken").Content)
}
