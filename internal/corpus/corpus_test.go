package corpus

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligner/internal/bcvwp"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/testutil"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return New(testutil.OpenStore(t), nil)
}

// generateWords returns n target words spread over verses of Matthew 1.
func generateWords(n int) []model.Word {
	words := make([]model.Word, n)
	for i := range words {
		verse := i/100 + 1
		word := i%100 + 1
		words[i] = model.Word{
			ID:         fmt.Sprintf("40001%03d%03d1", verse, word),
			Side:       model.SideTargets,
			CorpusID:   "tgt",
			Text:       fmt.Sprintf("W%d", i),
			LanguageID: "eng",
		}
	}
	return words
}

func TestInsertWords_ChunkedInsertPersistsAll(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.InsertWords(ctx, generateWords(2500), 1000))

	n, err := r.CountWords(ctx, model.SideTargets)
	require.NoError(t, err)
	assert.Equal(t, 2500, n)
}

func TestInsertWords_FailingBatchRollsBackEverything(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	words := generateWords(2500)
	// Duplicate key in the last batch.
	words[2400].ID = words[0].ID

	err := r.InsertWords(ctx, words, 1000)
	require.Error(t, err)

	n, err := r.CountWords(ctx, model.SideTargets)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertWords_RejectsMalformedReference(t *testing.T) {
	r := newTestRepo(t)
	err := r.InsertWords(context.Background(), []model.Word{{ID: "abc", Side: model.SideSources, Text: "x"}}, 0)
	require.Error(t, err)
	assert.True(t, model.IsMalformedReference(err))
}

func TestInsertWords_NormalizesAndDerivesPosition(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.InsertWords(ctx, []model.Word{
		{ID: "o400010010021", Side: model.SideSources, CorpusID: "src", Text: "Λόγον"},
	}, 0))

	words, err := r.FindWordsByBCV(ctx, model.SideSources, 40, 1, 1)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "400010010021", words[0].ID)
	assert.Equal(t, "λογον", words[0].NormalizedText)
	assert.Equal(t, bcvwp.New(40, 1, 1, 2, 1), words[0].Position)
}

func TestGetAllWordsByCorpus_Paging(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.InsertWords(ctx, generateWords(30), 0))

	none, err := r.GetAllWordsByCorpus(ctx, model.SideTargets, "tgt", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	page, err := r.GetAllWordsByCorpus(ctx, model.SideTargets, "tgt", 10, 5)
	require.NoError(t, err)
	require.Len(t, page, 10)
	assert.Equal(t, "400010010061", page[0].ID)
	assert.Equal(t, "400010010151", page[9].ID)

	other, err := r.GetAllWordsByCorpus(ctx, model.SideSources, "tgt", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestFindWordsByBCV_ExactVerseOnly(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.InsertWords(ctx, generateWords(250), 0))

	words, err := r.FindWordsByBCV(ctx, model.SideTargets, 40, 1, 2)
	require.NoError(t, err)
	assert.Len(t, words, 100)
	for _, w := range words {
		assert.Equal(t, 2, w.Position.Verse)
	}
}

func TestInsertCorpora_UpsertsLanguagesFirst(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.InsertCorpora(ctx, []model.Corpus{
		{ID: "wlc", Side: model.SideSources, Name: "WLC", FullName: "Westminster Leningrad Codex",
			Language: &model.Language{Code: "heb", TextDirection: "rtl"}},
		{ID: "bsb", Side: model.SideTargets, Name: "BSB", FullName: "Berean Standard Bible",
			Language: &model.Language{Code: "eng"}},
	}))

	corpora, err := r.GetAllCorpora(ctx, Strict)
	require.NoError(t, err)
	require.Len(t, corpora, 2)
	assert.Equal(t, "wlc", corpora[0].ID)
	require.NotNil(t, corpora[0].Language)
	assert.Equal(t, "rtl", corpora[0].Language.TextDirection)
	assert.Equal(t, "ltr", corpora[1].Language.TextDirection)

	// Re-inserting updates in place.
	require.NoError(t, r.InsertCorpora(ctx, []model.Corpus{
		{ID: "bsb", Side: model.SideTargets, Name: "BSB2", LanguageID: "eng"},
	}))
	corpora, err = r.GetAllCorpora(ctx, Strict)
	require.NoError(t, err)
	assert.Equal(t, "BSB2", corpora[1].Name)
}

func TestInsertCorpora_CodeOnlyLanguageKeepsStoredRow(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.UpsertLanguages(ctx, []model.Language{{Code: "heb", TextDirection: "rtl"}}))

	require.NoError(t, r.InsertCorpora(ctx, []model.Corpus{
		{ID: "wlc", Side: model.SideSources, Name: "WLC", LanguageID: "heb", Language: &model.Language{Code: "heb"}},
		{ID: "lxx", Side: model.SideSources, Name: "LXX", LanguageID: "grc", Language: &model.Language{Code: "grc"}},
	}))

	langs, err := r.LanguageFindByIDs(ctx, []string{"heb", "grc"})
	require.NoError(t, err)
	require.Len(t, langs, 2)
	dirs := map[string]string{}
	for _, l := range langs {
		dirs[l.Code] = l.TextDirection
	}
	assert.Equal(t, map[string]string{"heb": "rtl", "grc": "ltr"}, dirs)

	corpora, err := r.GetAllCorpora(ctx, Strict)
	require.NoError(t, err)
	assert.Len(t, corpora, 2)
}

func TestGetAllCorpora_MissingLanguage(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.InsertCorpora(ctx, []model.Corpus{
		{ID: "orphan", Side: model.SideTargets, Name: "X", LanguageID: "zzz"},
	}))

	strict, err := r.GetAllCorpora(ctx, Strict)
	require.NoError(t, err)
	assert.Empty(t, strict)

	lenient, err := r.GetAllCorpora(ctx, Lenient)
	require.NoError(t, err)
	require.Len(t, lenient, 1)
	assert.Nil(t, lenient[0].Language)

	err = r.CheckCorpora(ctx)
	require.Error(t, err)
	assert.True(t, model.IsIntegrityViolation(err))
}

func TestLanguages(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.UpsertLanguages(ctx, []model.Language{
		{Code: "heb", TextDirection: "rtl", FontFamily: "SBL Hebrew"},
		{Code: "eng"},
		{Code: "grc"},
	}))

	all, err := r.LanguageGetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := r.LanguageFindByIDs(ctx, []string{"heb", "nope"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "SBL Hebrew", some[0].FontFamily)

	empty, err := r.LanguageFindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFirstAndHasBCV(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, ok, err := r.FirstBCV(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.InsertWords(ctx, generateWords(150), 0))

	first, ok, err := r.FirstBCV(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bcvwp.New(40, 1, 1, 1, 1), first)

	has, err := r.HasBCV(ctx, "40001002")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = r.HasBCV(ctx, "40001003")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = r.HasBCV(ctx, "40%")
	assert.Error(t, err)

	require.NoError(t, r.RemoveTargetWords(ctx))
	n, err := r.CountWords(ctx, model.SideTargets)
	require.NoError(t, err)
	assert.Zero(t, n)
}
