package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ContentImport/internal/core"
	"github.com/JonMunkholm/ContentImport/internal/store"
)

const (
	articleUID  = "api::article.article"
	homepageUID = "api::homepage.homepage"
)

// failingBackend rejects the record at failOn and counts Create calls.
type failingBackend struct {
	*store.Memory

	mu     sync.Mutex
	calls  int
	failOn int
}

func (b *failingBackend) Create(ctx context.Context, model string, data core.Record) (string, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()

	if n == b.failOn+1 {
		return "", errors.New(`duplicate key value violates unique constraint "slug"`)
	}
	return b.Memory.Create(ctx, model, data)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Events() []core.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Event(nil), p.events...)
}

func registerModels(t *testing.T) {
	t.Helper()
	core.Clear()
	core.Register(core.ModelDescriptor{
		UID:    articleUID,
		Kind:   core.CollectionType,
		Label:  "Article",
		Group:  "Content",
		Fields: []string{"title", "slug", "body"},
	})
	core.Register(core.ModelDescriptor{
		UID:    homepageUID,
		Kind:   core.SingleType,
		Label:  "Homepage",
		Group:  "Pages",
		Fields: []string{"headline"},
	})
	t.Cleanup(core.Clear)
}

func newTestService(t *testing.T, backend core.Backend) (*core.Service, *recordingPublisher) {
	t.Helper()
	registerModels(t)

	pub := &recordingPublisher{}
	svc, err := core.NewService(backend, core.Config{MaxConcurrent: 2, MaxWait: time.Second}, core.WithPublisher(pub))
	require.NoError(t, err)
	return svc, pub
}

func articles(n int) core.Source {
	recs := make([]core.Record, n)
	for i := range recs {
		recs[i] = core.NewRecord("Title", "Post", "Slug", string(rune('a'+i)), "Extra", i)
	}
	return core.CollectionSource(recs...)
}

func TestNewService_RequiresBackend(t *testing.T) {
	_, err := core.NewService(nil, core.Config{})
	assert.Error(t, err)
}

func TestImportData_CollectionAppliesMapping(t *testing.T) {
	mem := store.NewMemory()
	svc, pub := newTestService(t, mem)
	ctx := context.Background()

	src := articles(3)
	desc, err := svc.GetModel(articleUID)
	require.NoError(t, err)

	mapping := core.ProposeDefaultMapping(src, desc.Fields)
	require.NoError(t, mapping.Set("Title", "title"))
	require.NoError(t, mapping.Set("Slug", "slug"))

	result, err := svc.ImportData(ctx, core.ImportRequest{TargetModel: articleUID, Source: src, Mapping: mapping})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Len(t, result.IDs, 3)
	assert.Equal(t, core.CollectionType, result.Kind)
	assert.NotEmpty(t, result.ImportID)

	entries, err := mem.FindAll(ctx, articleUID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"title", "slug"}, entries[0].Data.Keys())
	slug, _ := entries[2].Data.Get("slug")
	assert.Equal(t, "c", slug)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.EventImportCompleted, events[0].Type)
	assert.Equal(t, 3, events[0].Count)
	assert.Equal(t, result.ImportID, events[0].ImportID)
}

func TestImportData_NilMappingPassesThrough(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)
	ctx := context.Background()

	_, err := svc.ImportData(ctx, core.ImportRequest{TargetModel: articleUID, Source: articles(1)})
	require.NoError(t, err)

	entries, err := mem.FindAll(ctx, articleUID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"Title", "Slug", "Extra"}, entries[0].Data.Keys())
}

func TestImportData_StopsAtFirstFailure(t *testing.T) {
	backend := &failingBackend{Memory: store.NewMemory(), failOn: 1}
	svc, pub := newTestService(t, backend)
	ctx := context.Background()

	result, err := svc.ImportData(ctx, core.ImportRequest{TargetModel: articleUID, Source: articles(3)})
	require.Error(t, err)
	assert.Nil(t, result)

	assert.Equal(t, 2, backend.calls)

	var importErr *core.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 1, importErr.Index)
	assert.Contains(t, err.Error(), "duplicate key value")

	var persistErr *core.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "create", persistErr.Op)
	assert.Equal(t, "DB001", core.MapError(err).Code)

	entries, err := backend.FindAll(ctx, articleUID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.EventImportFailed, events[0].Type)
	require.NotNil(t, events[0].FailedAt)
	assert.Equal(t, 1, *events[0].FailedAt)
	assert.Equal(t, 1, events[0].Count)

	audit, err := svc.GetAuditLog(ctx, core.AuditFilter{Action: core.ActionImportFailed})
	require.NoError(t, err)
	require.Len(t, audit, 1)
	require.NotNil(t, audit[0].FailedIndex)
	assert.Equal(t, 1, *audit[0].FailedIndex)
	assert.Equal(t, 1, audit[0].RowsAffected)
}

func TestImportData_SingleTypeIgnoresMapping(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)
	ctx := context.Background()

	src := core.SingleSource(core.NewRecord("Headline", "Welcome", "extra", true))
	mapping := core.NewFieldMapping(nil)

	_, err := svc.ImportData(ctx, core.ImportRequest{TargetModel: homepageUID, Source: src, Mapping: mapping})
	require.NoError(t, err)

	second := core.SingleSource(core.NewRecord("Headline", "Again"))
	result, err := svc.ImportData(ctx, core.ImportRequest{TargetModel: homepageUID, Source: second})
	require.NoError(t, err)
	assert.Equal(t, core.SingleType, result.Kind)

	entries, err := mem.FindAll(ctx, homepageUID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	headline, _ := entries[0].Data.Get("Headline")
	assert.Equal(t, "Again", headline)
	assert.Equal(t, store.SingletonID(homepageUID), entries[0].ID)
}

func TestImportData_SingleTypeRejectsSeveralRecords(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)

	_, err := svc.ImportData(context.Background(), core.ImportRequest{TargetModel: homepageUID, Source: articles(2)})
	require.Error(t, err)

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "VAL003", core.MapError(err).Code)
	assert.Equal(t, 0, svc.LimiterStatus().Active)
}

func TestImportData_Validation(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)
	ctx := context.Background()

	t.Run("missing model and source", func(t *testing.T) {
		_, err := svc.ImportData(ctx, core.ImportRequest{})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"no target model selected", "no source loaded"}, verr.Problems)
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := svc.ImportData(ctx, core.ImportRequest{TargetModel: "api::nope.nope", Source: articles(1)})
		assert.ErrorIs(t, err, core.ErrUnknownModel)
	})

	t.Run("unknown mapping target", func(t *testing.T) {
		var mapping core.FieldMapping
		require.NoError(t, mapping.UnmarshalJSON([]byte(`{"Title":"heading"}`)))

		_, err := svc.ImportData(ctx, core.ImportRequest{TargetModel: articleUID, Source: articles(1), Mapping: &mapping})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "MAP002", core.MapError(err).Code)
	})

	entries, err := mem.FindAll(ctx, articleUID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImportData_EmptyCollection(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)

	result, err := svc.ImportData(context.Background(), core.ImportRequest{TargetModel: articleUID, Source: core.CollectionSource()})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Empty(t, result.IDs)
}

func TestDeleteAllData(t *testing.T) {
	mem := store.NewMemory()
	svc, pub := newTestService(t, mem)
	ctx := core.ContextWithActor(context.Background(), "alice")

	_, err := svc.ImportData(ctx, core.ImportRequest{TargetModel: articleUID, Source: articles(3)})
	require.NoError(t, err)

	n, err := svc.DeleteAllData(ctx, articleUID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := svc.CountEntries(ctx, articleUID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	n, err = svc.DeleteAllData(ctx, articleUID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	events := pub.Events()
	require.Len(t, events, 3)
	assert.Equal(t, core.EventContentDeleted, events[1].Type)
	assert.Equal(t, 3, events[1].Count)

	audit, err := svc.GetAuditLog(ctx, core.AuditFilter{Action: core.ActionDeleteAll, Limit: 1})
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, core.SeverityCritical, audit[0].Severity)
	assert.Equal(t, "alice", audit[0].Actor)
	assert.Equal(t, 0, audit[0].RowsAffected)
}

func TestDeleteAllData_UnknownModel(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory())
	_, err := svc.DeleteAllData(context.Background(), "api::nope.nope")
	assert.ErrorIs(t, err, core.ErrUnknownModel)
}

func TestTemplates_CreateMatchApply(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)
	ctx := context.Background()

	src := articles(1)
	mapping := core.ProposeDefaultMapping(src, []string{"title", "slug", "body"})
	require.NoError(t, mapping.Set("Title", "title"))
	require.NoError(t, mapping.Set("Slug", "slug"))

	tpl, err := svc.CreateTemplate(ctx, articleUID, "  Blog export  ", mapping)
	require.NoError(t, err)
	assert.Equal(t, "Blog export", tpl.Name)
	assert.Equal(t, []string{"Title", "Slug", "Extra"}, tpl.SourceFields)

	_, err = svc.CreateTemplate(ctx, articleUID, "Blog export", mapping)
	assert.Error(t, err)

	matches, err := svc.MatchTemplates(ctx, articleUID, []string{"title", "slug", "extra", "other"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].MatchScore)

	none, err := svc.MatchTemplates(ctx, articleUID, []string{"Title"})
	require.NoError(t, err)
	assert.Empty(t, none)

	fresh := core.ProposeDefaultMapping(src, []string{"title", "slug", "body"})
	assert.Equal(t, 3, matches[0].Template.Apply(fresh))
	for _, field := range mapping.Fields() {
		want, _ := mapping.Target(field)
		got, _ := fresh.Target(field)
		assert.Equal(t, want, got, field)
	}

	got, err := svc.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Name, got.Name)

	require.NoError(t, svc.DeleteTemplate(ctx, tpl.ID))
	_, err = svc.GetTemplate(ctx, tpl.ID)
	assert.ErrorIs(t, err, core.ErrTemplateNotFound)

	audit, err := svc.GetAuditLog(ctx, core.AuditFilter{Model: articleUID})
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, core.ActionTemplateDelete, audit[0].Action)
	assert.Equal(t, core.ActionTemplateCreate, audit[1].Action)
}

func TestTemplates_Validation(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory())
	ctx := context.Background()

	mapping := core.ProposeDefaultMapping(articles(1), []string{"title"})

	_, err := svc.CreateTemplate(ctx, articleUID, " ", mapping)
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "TPL002", core.MapError(err).Code)

	_, err = svc.CreateTemplate(ctx, articleUID, "empty", core.NewFieldMapping(nil))
	assert.Error(t, err)

	_, err = svc.GetTemplate(ctx, "not-a-uuid")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)
	ctx := context.Background()

	_, err := svc.ImportData(ctx, core.ImportRequest{
		TargetModel: homepageUID,
		Source:      core.SingleSource(core.NewRecord("headline", "Hi")),
	})
	require.NoError(t, err)

	out, err := svc.Export(ctx, homepageUID, core.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, `{"headline":"Hi"}`, string(out))

	out, err = svc.Export(ctx, articleUID, core.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(out))
}

func TestListModels(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory())

	models := svc.ListModels()
	require.Len(t, models, 2)
	assert.Equal(t, articleUID, models[0].UID)
}
