// Package concordance aggregates words and link text for the concordance
// view: pivot word frequencies, the distinct alignments of a pivot word,
// and the links behind one alignment.
//
// Aggregations read the cached link text, so they are only as fresh as
// the last recompute in package links.
package concordance

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/querysql"
	"github.com/roach88/aligner/internal/store"
)

var (
	pivotSort = querysql.NewSortResolver("concordance.pivots", querysql.FieldMap{
		"frequency":      "c",
		"normalizedText": "t",
	}, "t ASC")

	alignedSort = querysql.NewSortResolver("concordance.aligned", querysql.FieldMap{
		"frequency":       "c",
		"sourceWordTexts": "st",
		"targetWordTexts": "tt",
	}, "st ASC", "tt ASC")

	pairSort = querysql.NewSortResolver("concordance.pair", querysql.FieldMap{
		"ref": "word_id",
	}, "id ASC")
)

// LinkFinder loads full links by id.
type LinkFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]model.Link, error)
}

// Engine runs concordance queries against one project store.
type Engine struct {
	store *store.Store
	links LinkFinder
}

// New creates an Engine.
func New(s *store.Store, links LinkFinder) *Engine {
	return &Engine{store: s, links: links}
}

// PivotWords counts the words of side by normalized text. With
// PivotAligned only words that belong to a link that was not rejected
// are counted.
func (e *Engine) PivotWords(ctx context.Context, side model.Side, filter model.PivotFilter, sort *model.Sort) ([]model.PivotWord, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("pivot words: invalid side %q", side)
	}
	q := querysql.Builder().
		Select("w.normalized_text AS t", "MIN(w.language_id) AS l", "COUNT(DISTINCT w.id) AS c").
		From("words_or_parts w").
		Where(sq.Eq{"w.side": string(side)}).
		GroupBy("w.normalized_text")

	switch filter {
	case model.PivotAll, "":
	case model.PivotAligned:
		q = q.Join(side.JunctionTable() + " j ON j.word_id = w.id").
			Join("links lk ON lk.id = j.link_id").
			Where(sq.NotEq{"UPPER(lk.status)": model.StatusRejected})
	default:
		return nil, fmt.Errorf("pivot words: unknown filter %q", filter)
	}

	q, err := pivotSort.Apply(q, sort)
	if err != nil {
		return nil, err
	}
	rows, err := e.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("pivot words: %w", err)
	}
	defer rows.Close()

	out := []model.PivotWord{}
	for rows.Next() {
		var (
			p          model.PivotWord
			text, lang sql.NullString
		)
		if err := rows.Scan(&text, &lang, &p.Frequency); err != nil {
			return nil, fmt.Errorf("pivot words: %w", err)
		}
		p.NormalizedText = text.String
		p.LanguageID = lang.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// AlignedWordsByPivotWord returns the distinct (sources text, targets
// text) pairs of the links containing a word of side whose normalized
// text is text. Links with an empty opposite side and rejected links are
// skipped.
func (e *Engine) AlignedWordsByPivotWord(ctx context.Context, side model.Side, text string, sort *model.Sort) ([]model.AlignedWord, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("aligned words: invalid side %q", side)
	}
	q := querysql.Builder().
		Select("l.sources_text AS st", "l.targets_text AS tt",
			"MIN(sw.language_id) AS sl", "MIN(tw.language_id) AS tl",
			"COUNT(DISTINCT l.id) AS c").
		From("words_or_parts pw").
		Join(side.JunctionTable() + " pj ON pj.word_id = pw.id").
		Join("links l ON l.id = pj.link_id").
		Join("links__source_words lsw ON lsw.link_id = l.id").
		Join("words_or_parts sw ON sw.id = lsw.word_id").
		Join("links__target_words ltw ON ltw.link_id = l.id").
		Join("words_or_parts tw ON tw.id = ltw.word_id").
		Where(sq.Eq{"pw.side": string(side), "pw.normalized_text": text}).
		Where(sq.NotEq{"l." + side.Other().TextColumn(): ""}).
		Where(sq.NotEq{"UPPER(l.status)": model.StatusRejected}).
		GroupBy("l.sources_text", "l.targets_text")

	q, err := alignedSort.Apply(q, sort)
	if err != nil {
		return nil, err
	}
	rows, err := e.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("aligned words: %w", err)
	}
	defer rows.Close()

	out := []model.AlignedWord{}
	for rows.Next() {
		var (
			a              model.AlignedWord
			st, tt, sl, tl sql.NullString
		)
		if err := rows.Scan(&st, &tt, &sl, &tl, &a.Frequency); err != nil {
			return nil, fmt.Errorf("aligned words: %w", err)
		}
		a.SourcesText = st.String
		a.TargetsText = tt.String
		a.SourceLanguageID = sl.String
		a.TargetLanguageID = tl.String
		a.ID = a.SourcesText + "|" + a.TargetsText
		out = append(out, a)
	}
	return out, rows.Err()
}

// LinksByAlignedWordPair returns the links whose cached text is exactly
// the pair, ordered by sort (by first target word for "ref").
func (e *Engine) LinksByAlignedWordPair(ctx context.Context, sourcesText, targetsText string, sort *model.Sort) ([]model.Link, error) {
	q := querysql.Builder().
		Select("l.id AS id", "MIN(ltw.word_id) AS word_id").
		From("links l").
		Join("links__target_words ltw ON ltw.link_id = l.id").
		Where(sq.Eq{"l.sources_text": sourcesText, "l.targets_text": targetsText}).
		GroupBy("l.id")

	q, err := pairSort.Apply(q, sort)
	if err != nil {
		return nil, err
	}
	rows, err := e.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("links by aligned pair: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id, wordID string
		if err := rows.Scan(&id, &wordID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("links by aligned pair: %w", err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("links by aligned pair: %w", err)
	}
	if len(ids) == 0 {
		return []model.Link{}, nil
	}

	found, err := e.links.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("links by aligned pair: %w", err)
	}
	byID := make(map[string]model.Link, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	out := make([]model.Link, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (e *Engine) query(ctx context.Context, q sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return e.store.Query(ctx, query, args...)
}
