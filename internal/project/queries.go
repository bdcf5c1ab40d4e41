package project

import (
	"context"

	"github.com/roach88/aligner/internal/model"
)

// UpdateLinkText recomputes the cached link text for ids, or for every
// link when ids is empty.
func (s *Service) UpdateLinkText(ctx context.Context, project string, ids ...string) bool {
	r, err := s.project(ctx, project)
	if err == nil {
		err = r.links.RecomputeText(ctx, ids...)
	}
	if err != nil {
		s.fail("updateLinkText", project, err)
		return false
	}
	return true
}

// list runs a repository read, turning failure into an empty slice.
func list[T any](ctx context.Context, s *Service, op, project string, fn func(*repos) ([]T, error)) []T {
	r, err := s.project(ctx, project)
	if err != nil {
		s.fail(op, project, err)
		return []T{}
	}
	out, err := fn(r)
	if err != nil {
		s.fail(op, project, err)
		return []T{}
	}
	if out == nil {
		return []T{}
	}
	return out
}

// FindLinksByWordID returns the links containing a word.
func (s *Service) FindLinksByWordID(ctx context.Context, project string, side model.Side, wordID string) []model.Link {
	return list(ctx, s, "findLinksByWordId", project, func(r *repos) ([]model.Link, error) {
		return r.links.FindByWordID(ctx, side, wordID)
	})
}

// FindLinksByBCV returns the links touching a verse on side.
func (s *Service) FindLinksByBCV(ctx context.Context, project string, side model.Side, book, chapter, verse int) []model.Link {
	return list(ctx, s, "findLinksByBCV", project, func(r *repos) ([]model.Link, error) {
		return r.links.FindByBCV(ctx, side, book, chapter, verse)
	})
}

// FindWordsByBCV returns the words of a verse on side.
func (s *Service) FindWordsByBCV(ctx context.Context, project string, side model.Side, book, chapter, verse int) []model.Word {
	return list(ctx, s, "findWordsByBCV", project, func(r *repos) ([]model.Word, error) {
		return r.corpus.FindWordsByBCV(ctx, side, book, chapter, verse)
	})
}

// GetAllWordsByCorpus pages through a corpus.
func (s *Service) GetAllWordsByCorpus(ctx context.Context, project string, side model.Side, corpusID string, limit, skip int) []model.Word {
	return list(ctx, s, "getAllWordsByCorpus", project, func(r *repos) ([]model.Word, error) {
		return r.corpus.GetAllWordsByCorpus(ctx, side, corpusID, limit, skip)
	})
}

// GetAllCorpora returns the project's corpora with their languages.
func (s *Service) GetAllCorpora(ctx context.Context, project string) []model.Corpus {
	return list(ctx, s, "getAllCorpora", project, func(r *repos) ([]model.Corpus, error) {
		return r.corpus.GetAllCorpora(ctx, s.opts.CorpusMode)
	})
}

// LanguageFindByIDs returns the languages with the given codes.
func (s *Service) LanguageFindByIDs(ctx context.Context, project string, codes []string) []model.Language {
	return list(ctx, s, "languageFindByIds", project, func(r *repos) ([]model.Language, error) {
		return r.corpus.LanguageFindByIDs(ctx, codes)
	})
}

// LanguageGetAll returns every language.
func (s *Service) LanguageGetAll(ctx context.Context, project string) []model.Language {
	return list(ctx, s, "languageGetAll", project, func(r *repos) ([]model.Language, error) {
		return r.corpus.LanguageGetAll(ctx)
	})
}

// PivotWords returns normalized word frequencies on side.
func (s *Service) PivotWords(ctx context.Context, project string, side model.Side, filter model.PivotFilter, sort *model.Sort) []model.PivotWord {
	return list(ctx, s, "pivotWords", project, func(r *repos) ([]model.PivotWord, error) {
		return r.concordance.PivotWords(ctx, side, filter, sort)
	})
}

// AlignedWordsByPivotWord returns the text pairs linked to a pivot word.
func (s *Service) AlignedWordsByPivotWord(ctx context.Context, project string, side model.Side, text string, sort *model.Sort) []model.AlignedWord {
	return list(ctx, s, "alignedWordsByPivotWord", project, func(r *repos) ([]model.AlignedWord, error) {
		return r.concordance.AlignedWordsByPivotWord(ctx, side, text, sort)
	})
}

// LinksByAlignedWordPair returns the links behind a text pair.
func (s *Service) LinksByAlignedWordPair(ctx context.Context, project, sourcesText, targetsText string, sort *model.Sort) []model.Link {
	return list(ctx, s, "linksByAlignedWordPair", project, func(r *repos) ([]model.Link, error) {
		return r.concordance.LinksByAlignedWordPair(ctx, sourcesText, targetsText, sort)
	})
}
