package project

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligner/internal/journal"
	"github.com/roach88/aligner/internal/manifest"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/remote"
	"github.com/roach88/aligner/internal/store"
	"github.com/roach88/aligner/internal/syncer"
	"github.com/roach88/aligner/internal/testutil"
)

func newService(t *testing.T, transport syncer.Transport) *Service {
	t.Helper()
	m := store.NewManager(store.ManagerConfig{DataDir: t.TempDir(), AppName: "aligner"})
	svc := New(Options{
		Manager:        m,
		Transport:      transport,
		JournalOptions: []journal.Option{journal.WithIDGenerator(testutil.NewSequenceIDs("id"))},
	})
	t.Cleanup(func() { svc.Close() })
	return svc
}

// importSample creates project "demo" from the sample manifest.
func importSample(t *testing.T, svc *Service) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Load(testutil.WriteSampleProject(t, t.TempDir()))
	require.NoError(t, err)
	stats, ok := svc.CreateSourceFromProject(context.Background(), m)
	require.True(t, ok)
	require.Equal(t, 3, stats.Links)
	return m
}

func TestDataSources(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	assert.Empty(t, svc.GetDataSources(ctx))
	assert.False(t, svc.CreateDataSource(ctx, ""))
	require.True(t, svc.CreateDataSource(ctx, "alpha"))
	importSample(t, svc)

	sources := svc.GetDataSources(ctx)
	require.Len(t, sources, 2)
	assert.Equal(t, "alpha", sources[0].ID)
	assert.Empty(t, sources[0].Corpora)
	assert.Equal(t, "demo", sources[1].ID)
	assert.Equal(t, "aligner-demo.sqlite", sources[1].FileName)
	assert.Len(t, sources[1].Corpora, 2)

	require.True(t, svc.RemoveSource(ctx, "alpha"))
	sources = svc.GetDataSources(ctx)
	require.Len(t, sources, 1)
	assert.Equal(t, "demo", sources[0].ID)
}

func TestDataSources_SanitizedNameReusesStore(t *testing.T) {
	m := store.NewManager(store.ManagerConfig{DataDir: t.TempDir(), AppName: "aligner"})
	svc := New(Options{Manager: m})
	t.Cleanup(func() { svc.Close() })
	ctx := context.Background()

	require.True(t, svc.CreateDataSource(ctx, "my:project"))
	require.True(t, svc.Insert(ctx, "my:project", LinksTable{}, Records{Links: []model.Link{{ID: "L1"}}}, 0))

	sources := svc.GetDataSources(ctx)
	require.Len(t, sources, 1)
	assert.Equal(t, "myproject", sources[0].ID)
	assert.EqualValues(t, 1, m.Opened())
	assert.True(t, svc.ExistsByID(ctx, "myproject", LinksTable{}, "L1"))
}

func TestCorpusQueries(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	importSample(t, svc)

	words := svc.FindWordsByBCV(ctx, "demo", model.SideTargets, 40, 1, 1)
	require.Len(t, words, 5)
	assert.Equal(t, "The", words[0].Text)

	page := svc.GetAllWordsByCorpus(ctx, "demo", model.SideSources, "sblgnt", 2, 1)
	require.Len(t, page, 2)
	assert.Equal(t, "40001001002", page[0].ID)
	assert.Equal(t, "of genealogy", page[0].Gloss)

	corpora := svc.GetAllCorpora(ctx, "demo")
	require.Len(t, corpora, 2)
	assert.Equal(t, "sblgnt", corpora[0].ID)
	require.NotNil(t, corpora[0].Language)
	assert.Equal(t, "ltr", corpora[0].Language.TextDirection)

	assert.Len(t, svc.LanguageGetAll(ctx, "demo"), 2)
	langs := svc.LanguageFindByIDs(ctx, "demo", []string{"eng"})
	require.Len(t, langs, 1)
	assert.Equal(t, "eng", langs[0].Code)

	first, ok := svc.GetFirstBCVFromSource(ctx, "demo")
	require.True(t, ok)
	assert.Equal(t, "400010010011", first.String())
	assert.True(t, svc.HasBCVInSource(ctx, "demo", "40001002"))
	assert.False(t, svc.HasBCVInSource(ctx, "demo", "41"))
	assert.False(t, svc.HasBCVInSource(ctx, "demo", "4x"))
}

func TestLinkTable(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	importSample(t, svc)
	links := LinksTable{}

	require.True(t, svc.Insert(ctx, "demo", links, Records{Links: []model.Link{
		{ID: "b1", Sources: []string{"40001001002"}, Targets: []string{"400010010041", "400010010051"}},
	}}, 0))
	assert.False(t, svc.Insert(ctx, "demo", links, Records{Links: []model.Link{{ID: "b1"}}}, 0), "duplicate id")

	recs, ok := svc.FindOneByID(ctx, "demo", links, "b1")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"400010010041", "400010010051"}, recs.Links[0].Targets)
	_, ok = svc.FindOneByID(ctx, "demo", links, "zz")
	assert.False(t, ok)

	assert.True(t, svc.ExistsByID(ctx, "demo", links, "a2"))
	assert.Len(t, svc.GetAll(ctx, "demo", links, 0, 0).Links, 4)
	assert.Len(t, svc.GetAll(ctx, "demo", links, 2, 3).Links, 1)

	between := svc.FindBetweenIDs(ctx, "demo", links, "a2", "a3")
	require.Len(t, between.Links, 2)
	assert.Equal(t, "a2", between.Links[0].ID)

	byIDs := svc.FindByIDs(ctx, "demo", links, []string{"a1", "b1", "nope"})
	assert.Len(t, byIDs.Links, 2)

	byWord := svc.FindLinksByWordID(ctx, "demo", model.SideTargets, "400010010061")
	require.Len(t, byWord, 1)
	assert.Equal(t, "a2", byWord[0].ID)
	assert.Equal(t, []string{"40001001003"}, byWord[0].Sources)

	byVerse := svc.FindLinksByBCV(ctx, "demo", model.SideSources, 40, 1, 1)
	assert.Len(t, byVerse, 3)

	updated := model.Link{ID: "b1", Sources: []string{"40001001002"}, Targets: []string{"400010010041"}}
	require.True(t, svc.Save(ctx, "demo", links, Records{Links: []model.Link{updated}}))
	recs, ok = svc.FindOneByID(ctx, "demo", links, "b1")
	require.True(t, ok)
	assert.Equal(t, []string{"400010010041"}, recs.Links[0].Targets)

	require.True(t, svc.DeleteByIDs(ctx, "demo", links, []string{"b1"}))
	assert.False(t, svc.ExistsByID(ctx, "demo", links, "b1"))

	// bulk insert + create + update + delete
	n, err := svc.JournalCount(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.True(t, svc.UpdateLinkText(ctx, "demo"))
	require.True(t, svc.UpdateLinkText(ctx, "demo", "a1"))

	require.True(t, svc.DeleteAll(ctx, "demo", links))
	assert.Empty(t, svc.GetAll(ctx, "demo", links, 0, 0).Links)
}

func TestConcordance(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	importSample(t, svc)

	pivots := svc.PivotWords(ctx, "demo", model.SideTargets, model.PivotAligned,
		&model.Sort{Field: "normalizedText", Direction: model.SortAsc})
	var texts []string
	for _, p := range pivots {
		texts = append(texts, p.NormalizedText)
	}
	assert.Equal(t, []string{"abraham", "book", "jesus"}, texts)

	all := svc.PivotWords(ctx, "demo", model.SideTargets, model.PivotAll, nil)
	assert.Len(t, all, 6)

	aligned := svc.AlignedWordsByPivotWord(ctx, "demo", model.SideTargets, "book", nil)
	require.Len(t, aligned, 1)
	assert.Equal(t, "book", aligned[0].TargetsText)
	assert.Equal(t, 1, aligned[0].Frequency)

	pair := svc.LinksByAlignedWordPair(ctx, "demo", aligned[0].SourcesText, aligned[0].TargetsText, nil)
	require.Len(t, pair, 1)
	assert.Equal(t, "a1", pair[0].ID)
}

func TestFailuresSurfaceAsEmpty(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	importSample(t, svc)

	bad := &model.Sort{Field: "id; DROP TABLE links", Direction: model.SortAsc}
	got := svc.PivotWords(ctx, "demo", model.SideTargets, model.PivotAll, bad)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Len(t, svc.GetAll(ctx, "demo", LinksTable{}, 0, 0).Links, 3)

	assert.Empty(t, svc.GetAll(ctx, "demo", GenericTable{Name: "links; --"}, 0, 0).Rows)
	assert.False(t, svc.DeleteAll(ctx, "demo", GenericTable{Name: "sqlite_master"}))
	assert.False(t, svc.Insert(ctx, "demo", nil, Records{}, 0))
}

func TestPreferenceTable(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	pref := PreferenceTable{}

	assert.Empty(t, svc.GetAll(ctx, "", pref, 0, 0).Preferences)
	require.True(t, svc.Save(ctx, "ignored", pref, Records{Preferences: []model.Preference{
		{CurrentProject: "demo", BCV: "40001001", ShowGloss: true},
	}}))

	recs, ok := svc.FindOneByID(ctx, "", pref, "preferences")
	require.True(t, ok)
	assert.Equal(t, "demo", recs.Preferences[0].CurrentProject)
	assert.True(t, recs.Preferences[0].ShowGloss)
	assert.True(t, svc.ExistsByID(ctx, "", pref, "preferences"))
	assert.False(t, svc.ExistsByID(ctx, "", pref, "other"))

	require.True(t, svc.DeleteByIDs(ctx, "", pref, []string{"other"}))
	assert.True(t, svc.ExistsByID(ctx, "", pref, "preferences"))
	require.True(t, svc.DeleteByIDs(ctx, "", pref, []string{"preferences"}))
	assert.False(t, svc.ExistsByID(ctx, "", pref, "preferences"))
}

func TestSetPreference(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	pref, ok := svc.SetPreference(ctx, "current_project", "demo")
	require.True(t, ok)
	assert.Equal(t, "demo", pref.CurrentProject)

	pref, ok = svc.SetPreference(ctx, "show_gloss", "true")
	require.True(t, ok)
	assert.Equal(t, "demo", pref.CurrentProject)
	assert.True(t, pref.ShowGloss)

	_, ok = svc.SetPreference(ctx, "colour", "blue")
	assert.False(t, ok)
}

func TestGenericTable(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	lang := GenericTable{Name: "language"}

	require.True(t, svc.Insert(ctx, "p", lang, Records{Rows: []Row{
		{"code": "heb", "text_direction": "rtl"},
		{"code": "grc", "text_direction": "ltr"},
		{"code": "eng", "text_direction": "ltr", "font_family": "Gentium"},
	}}, 2))
	assert.False(t, svc.Insert(ctx, "p", lang, Records{Rows: []Row{
		{"code": "x", "text_direction = 'rtl'; --": "y"},
	}}, 0), "unknown column")

	all := svc.GetAll(ctx, "p", lang, 0, 0).Rows
	require.Len(t, all, 3)
	assert.Equal(t, "eng", all[0]["code"])
	assert.Equal(t, "Gentium", all[0]["font_family"])
	assert.Equal(t, "ltr", all[1]["text_direction"])
	assert.Nil(t, all[2]["font_family"])

	assert.Len(t, svc.GetAll(ctx, "p", lang, 0, 1).Rows, 2)
	assert.True(t, svc.ExistsByID(ctx, "p", lang, "heb"))

	require.True(t, svc.Save(ctx, "p", lang, Records{Rows: []Row{{"code": "grc", "text_direction": "rtl"}}}))
	recs, ok := svc.FindOneByID(ctx, "p", lang, "grc")
	require.True(t, ok)
	assert.Equal(t, "rtl", recs.Rows[0]["text_direction"])

	between := svc.FindBetweenIDs(ctx, "p", lang, "f", "h")
	require.Len(t, between.Rows, 1)
	assert.Equal(t, "grc", between.Rows[0]["code"])

	require.True(t, svc.DeleteByIDs(ctx, "p", lang, []string{"heb", "eng"}))
	assert.Len(t, svc.FindByIDs(ctx, "p", lang, []string{"heb", "eng", "grc"}).Rows, 1)
	require.True(t, svc.DeleteAll(ctx, "p", lang))
	assert.Empty(t, svc.GetAll(ctx, "p", lang, 0, 0).Rows)
}

func TestCorporaTable_UpsertsLanguages(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	corpora := GenericTable{Name: "corpora"}

	require.True(t, svc.Insert(ctx, "p", corpora, Records{Rows: []Row{
		{"id": "sbl", "side": "sources", "name": "SBLGNT", "language_id": "grc"},
	}}, 0))
	require.True(t, svc.Insert(ctx, "p", corpora, Records{Corpora: []model.Corpus{
		{ID: "wlc", Side: model.SideSources, Name: "WLC", Language: &model.Language{Code: "heb", TextDirection: "rtl"}},
	}}, 1))

	langs := svc.LanguageGetAll(ctx, "p")
	require.Len(t, langs, 2)
	got := svc.GetAllCorpora(ctx, "p")
	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []string{"sbl", "wlc"}, ids)

	require.True(t, svc.Save(ctx, "p", corpora, Records{Rows: []Row{
		{"id": "sbl", "side": "sources", "name": "SBL", "language_id": "grc"},
	}}))
	recs, ok := svc.FindOneByID(ctx, "p", corpora, "sbl")
	require.True(t, ok)
	assert.Equal(t, "SBL", recs.Rows[0]["name"])

	assert.False(t, svc.Insert(ctx, "p", corpora, Records{Rows: []Row{
		{"id": "x", "side": "sources", "language_id = 'grc'; --": "y"},
	}}, 0), "unknown column")
	assert.False(t, svc.Insert(ctx, "p", corpora, Records{Rows: []Row{{"id": "x"}}}, 0), "missing side")
}

func TestInsertLinks_ChunkSizeJournalsCreatePerLink(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	importSample(t, svc)
	before, err := svc.JournalCount(ctx, "demo")
	require.NoError(t, err)

	require.True(t, svc.Insert(ctx, "demo", LinksTable{}, Records{Links: []model.Link{
		{ID: "c1", Sources: []string{"40001001001"}},
		{ID: "c2", Sources: []string{"40001001002"}},
		{ID: "c3", Sources: []string{"40001001003"}},
	}}, 2))

	after, err := svc.JournalCount(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, before+3, after)

	r, err := svc.project(ctx, "demo")
	require.NoError(t, err)
	entries, err := r.journal.List(ctx)
	require.NoError(t, err)
	for _, e := range entries[before:] {
		assert.Equal(t, model.JournalCreate, e.Type)
	}
	assert.Len(t, svc.FindByIDs(ctx, "demo", LinksTable{}, []string{"c1", "c2", "c3"}).Links, 3)
}

func TestUpdateSourceFromProject(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	m := importSample(t, svc)

	stats, ok := svc.UpdateSourceFromProject(ctx, m)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Corpora)
	assert.Equal(t, 6, stats.Words)

	assert.Len(t, svc.FindWordsByBCV(ctx, "demo", model.SideTargets, 40, 1, 1), 5)
	assert.Len(t, svc.GetAll(ctx, "demo", LinksTable{}, 0, 0).Links, 3)
}

// authority is an in-memory remote that records what it receives.
type authority struct {
	mu       sync.Mutex
	patches  int
	received []model.JournalEntryDTO
	created  []string
	links    []model.ServerLink
}

func (a *authority) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/projects":
		var p remote.ProjectPayload
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		a.created = append(a.created, p.ID)
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodPatch:
		var entries []model.JournalEntryDTO
		if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		a.patches++
		a.received = append(a.received, entries...)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		links := a.links
		if r.URL.Query().Get("page") != "0" {
			links = nil
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"links": links})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestSync(t *testing.T) {
	auth := &authority{links: []model.ServerLink{{
		ID:      "srv-1",
		Sources: []string{"40001001001"},
		Targets: []string{"400010010011"},
		Meta:    model.LinkMeta{Origin: "manual", Status: model.StatusApproved},
	}}}
	srv := httptest.NewServer(auth)
	defer srv.Close()

	svc := newService(t, remote.New(srv.URL))
	ctx := context.Background()
	importSample(t, svc)

	res, err := svc.Sync(ctx, "demo", true)
	require.NoError(t, err)
	assert.Equal(t, syncer.Result{Uploaded: 1, Fetched: 1}, res)
	assert.Equal(t, syncer.Idle, svc.SyncState("demo"))

	auth.mu.Lock()
	assert.Equal(t, []string{"demo"}, auth.created)
	require.Len(t, auth.received, 1)
	assert.Equal(t, model.JournalBulkInsert, auth.received[0].Type)
	auth.mu.Unlock()

	n, err := svc.JournalCount(ctx, "demo")
	require.NoError(t, err)
	assert.Zero(t, n)

	links := svc.GetAll(ctx, "demo", LinksTable{}, 0, 0).Links
	require.Len(t, links, 1)
	assert.Equal(t, "srv-1", links[0].ID)
	assert.Equal(t, model.StatusApproved, links[0].Meta.Status)
}

func TestSync_FailureKeepsJournal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := newService(t, remote.New(srv.URL))
	ctx := context.Background()
	importSample(t, svc)

	_, err := svc.Sync(ctx, "demo", false)
	require.Error(t, err)
	assert.True(t, model.IsTransportFailure(err))
	assert.Equal(t, syncer.Idle, svc.SyncState("demo"))

	n, err := svc.JournalCount(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, svc.GetAll(ctx, "demo", LinksTable{}, 0, 0).Links, 3)
}

func TestSync_NoRemote(t *testing.T) {
	svc := newService(t, nil)
	_, err := svc.Sync(context.Background(), "demo", false)
	assert.ErrorIs(t, err, ErrNoRemote)
	svc.CancelSync("demo")
	assert.Equal(t, syncer.Idle, svc.SyncState("demo"))
}

func TestParseTable(t *testing.T) {
	assert.Equal(t, LinksTable{}, ParseTable("links"))
	assert.Equal(t, PreferenceTable{}, ParseTable("preference"))
	assert.Equal(t, GenericTable{Name: "corpora"}, ParseTable("corpora"))
}
