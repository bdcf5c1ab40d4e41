// Package corpus stores languages, corpora and their words.
package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/aligner/internal/bcvwp"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/querysql"
	"github.com/roach88/aligner/internal/store"
	"github.com/roach88/aligner/internal/textnorm"
)

// Mode selects how corpora without a language row are treated.
type Mode int

const (
	// Strict drops corpora whose language row is missing.
	Strict Mode = iota
	// Lenient keeps them with a nil Language and logs the gap.
	Lenient
)

var wordColumns = []string{
	"id", "corpus_id", "side", "text", "after", "gloss", "normalized_text",
	"source_verse_bcvid", "language_id",
	"position_book", "position_chapter", "position_verse", "position_word", "position_part",
}

// Repository reads and writes corpus data in one project store.
type Repository struct {
	store  *store.Store
	logger *slog.Logger
	norm   textnorm.Normalizer
}

// New creates a Repository.
func New(s *store.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: s, logger: logger, norm: textnorm.Default}
}

// WithNormalizer overrides the normalizer used for words that arrive
// without a normalized form.
func (r *Repository) WithNormalizer(n textnorm.Normalizer) *Repository {
	r.norm = n
	return r
}

// UpsertLanguages inserts or updates languages by code.
func (r *Repository) UpsertLanguages(ctx context.Context, langs []model.Language) error {
	return r.store.InTx(ctx, func(tx *sql.Tx) error {
		return upsertLanguages(ctx, tx, langs)
	})
}

// upsertLanguages writes langs by code. A language known only by its code
// is created with defaults but never overwrites a stored row.
func upsertLanguages(ctx context.Context, exec store.Executor, langs []model.Language) error {
	seen := make(map[string]bool, len(langs))
	var full, bare [][]any
	for _, l := range langs {
		if l.Code == "" || seen[l.Code] {
			continue
		}
		seen[l.Code] = true
		if l.TextDirection == "" && l.FontFamily == "" {
			bare = append(bare, []any{l.Code, "ltr", nil})
			continue
		}
		dir := l.TextDirection
		if dir == "" {
			dir = "ltr"
		}
		full = append(full, []any{l.Code, dir, nullString(l.FontFamily)})
	}
	columns := []string{"code", "text_direction", "font_family"}
	err := store.InsertRows(ctx, exec, "language", columns, full,
		"ON CONFLICT(code) DO UPDATE SET text_direction = excluded.text_direction, font_family = excluded.font_family")
	if err != nil {
		return fmt.Errorf("upsert languages: %w", err)
	}
	if err := store.InsertRows(ctx, exec, "language", columns, bare, "ON CONFLICT(code) DO NOTHING"); err != nil {
		return fmt.Errorf("upsert languages: %w", err)
	}
	return nil
}

// InsertCorpora upserts the corpora and, first, the languages they
// reference, in one transaction.
func (r *Repository) InsertCorpora(ctx context.Context, corpora []model.Corpus) error {
	return r.store.InTx(ctx, func(tx *sql.Tx) error {
		var langs []model.Language
		for _, c := range corpora {
			if c.Language != nil {
				langs = append(langs, *c.Language)
			}
		}
		if err := upsertLanguages(ctx, tx, langs); err != nil {
			return err
		}

		rows := make([][]any, 0, len(corpora))
		for _, c := range corpora {
			langID := c.LanguageID
			if langID == "" && c.Language != nil {
				langID = c.Language.Code
			}
			rows = append(rows, []any{c.ID, string(c.Side), c.Name, c.FullName, nullString(c.FileName), nullString(langID)})
		}
		err := store.InsertRows(ctx, tx, "corpora",
			[]string{"id", "side", "name", "full_name", "file_name", "language_id"}, rows,
			`ON CONFLICT(id) DO UPDATE SET side = excluded.side, name = excluded.name,
				full_name = excluded.full_name, file_name = excluded.file_name, language_id = excluded.language_id`)
		if err != nil {
			return fmt.Errorf("insert corpora: %w", err)
		}
		return nil
	})
}

// InsertWords writes words in batches of chunkSize (all at once when
// chunkSize <= 0). Every batch of the call shares one transaction: either
// all words are stored or none are.
func (r *Repository) InsertWords(ctx context.Context, words []model.Word, chunkSize int) error {
	return r.store.InTx(ctx, func(tx *sql.Tx) error {
		for _, span := range store.Chunk(len(words), chunkSize) {
			rows, err := r.wordRows(words[span[0]:span[1]])
			if err != nil {
				return err
			}
			if err := store.InsertRows(ctx, tx, "words_or_parts", wordColumns, rows, ""); err != nil {
				return fmt.Errorf("insert words %d-%d: %w", span[0], span[1], err)
			}
			r.logger.Debug("word batch written", "from", span[0], "to", span[1])
		}
		return nil
	})
}

func (r *Repository) wordRows(words []model.Word) ([][]any, error) {
	rows := make([][]any, 0, len(words))
	for _, w := range words {
		if !w.Side.Valid() {
			return nil, fmt.Errorf("word %s: invalid side %q", w.ID, w.Side)
		}
		id := bcvwp.Sanitize(model.StripSide(w.ID))
		pos := w.Position
		if pos == (bcvwp.Coordinate{}) {
			p, err := bcvwp.Parse(id)
			if err != nil {
				return nil, fmt.Errorf("word %s: %w", w.ID, err)
			}
			pos = p
		}
		normalized := w.NormalizedText
		if normalized == "" {
			normalized = r.norm.Normalize(w.Text)
		}
		rows = append(rows, []any{
			model.WordKey(w.Side, id), w.CorpusID, string(w.Side), w.Text,
			nullString(w.After), nullString(w.Gloss), normalized,
			nullString(w.SourceVerse), nullString(w.LanguageID),
			nullInt(pos.Book), nullInt(pos.Chapter), nullInt(pos.Verse), nullInt(pos.Word), nullInt(pos.Part),
		})
	}
	return rows, nil
}

// GetAllWordsByCorpus pages through a corpus in key order. A limit of 0
// returns nothing rather than the whole corpus.
func (r *Repository) GetAllWordsByCorpus(ctx context.Context, side model.Side, corpusID string, limit, skip int) ([]model.Word, error) {
	if limit <= 0 {
		return []model.Word{}, nil
	}
	q := querysql.Builder().Select(wordColumns...).
		From("words_or_parts").
		Where(sq.Eq{"side": string(side), "corpus_id": corpusID}).
		OrderBy("id").
		Limit(uint64(limit))
	if skip > 0 {
		q = q.Offset(uint64(skip))
	}
	return r.queryWords(ctx, "get words by corpus", q)
}

// FindWordsByBCV returns the words of one verse on side, in key order.
func (r *Repository) FindWordsByBCV(ctx context.Context, side model.Side, book, chapter, verse int) ([]model.Word, error) {
	q := querysql.Builder().Select(wordColumns...).
		From("words_or_parts").
		Where(sq.Eq{
			"side":             string(side),
			"position_book":    book,
			"position_chapter": chapter,
			"position_verse":   verse,
		}).
		OrderBy("id")
	return r.queryWords(ctx, "find words by bcv", q)
}

func (r *Repository) queryWords(ctx context.Context, op string, q sq.SelectBuilder) ([]model.Word, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	words := []model.Word{}
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return words, nil
}

func scanWord(rows *sql.Rows) (model.Word, error) {
	var (
		w                                   model.Word
		side                                string
		corpusID, text, after, gloss, ntext sql.NullString
		sourceVerse, languageID             sql.NullString
		book, chapter, verse, word, part    sql.NullInt64
	)
	err := rows.Scan(&w.ID, &corpusID, &side, &text, &after, &gloss, &ntext,
		&sourceVerse, &languageID, &book, &chapter, &verse, &word, &part)
	if err != nil {
		return w, err
	}
	w.ID = model.StripSide(w.ID)
	w.Side = model.Side(side)
	w.CorpusID = corpusID.String
	w.Text = text.String
	w.After = after.String
	w.Gloss = gloss.String
	w.NormalizedText = ntext.String
	w.SourceVerse = sourceVerse.String
	w.LanguageID = languageID.String
	w.Position = bcvwp.New(int(book.Int64), int(chapter.Int64), int(verse.Int64), int(word.Int64), int(part.Int64))
	return w, nil
}

// GetAllCorpora returns corpora joined to their language, ordered by side
// then id. See Mode for corpora whose language is missing.
func (r *Repository) GetAllCorpora(ctx context.Context, mode Mode) ([]model.Corpus, error) {
	q := querysql.Builder().
		Select("c.id", "c.side", "c.name", "c.full_name", "c.file_name", "c.language_id",
			"l.code", "l.text_direction", "l.font_family").
		From("corpora c").
		OrderBy("c.side", "c.id")
	if mode == Lenient {
		q = q.LeftJoin("language l ON l.code = c.language_id")
	} else {
		q = q.Join("language l ON l.code = c.language_id")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("get corpora: %w", err)
	}

	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get corpora: %w", err)
	}
	defer rows.Close()

	corpora := []model.Corpus{}
	for rows.Next() {
		var (
			c                                    model.Corpus
			side                                 string
			name, fullName, fileName, languageID sql.NullString
			code, dir, font                      sql.NullString
		)
		if err := rows.Scan(&c.ID, &side, &name, &fullName, &fileName, &languageID, &code, &dir, &font); err != nil {
			return nil, fmt.Errorf("get corpora: %w", err)
		}
		c.Side = model.Side(side)
		c.Name = name.String
		c.FullName = fullName.String
		c.FileName = fileName.String
		c.LanguageID = languageID.String
		if code.Valid {
			c.Language = &model.Language{Code: code.String, TextDirection: dir.String, FontFamily: font.String}
		} else {
			r.logger.Warn("corpus without language",
				"corpus", c.ID, "language", c.LanguageID, "code", model.ErrCodeIntegrityViolation)
		}
		corpora = append(corpora, c)
	}
	return corpora, rows.Err()
}

// CheckCorpora returns an IntegrityViolation naming the corpora whose
// language row is missing, or nil.
func (r *Repository) CheckCorpora(ctx context.Context) error {
	rows, err := r.store.Query(ctx, `
		SELECT c.id FROM corpora c
		LEFT JOIN language l ON l.code = c.language_id
		WHERE l.code IS NULL
		ORDER BY c.id`)
	if err != nil {
		return fmt.Errorf("check corpora: %w", err)
	}
	defer rows.Close()
	var missing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("check corpora: %w", err)
		}
		missing = append(missing, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("check corpora: %w", err)
	}
	if len(missing) > 0 {
		return model.NewError(model.ErrCodeIntegrityViolation, "corpus.check",
			fmt.Sprintf("corpora without language: %v", missing), nil)
	}
	return nil
}

// LanguageFindByIDs returns the languages with the given codes.
func (r *Repository) LanguageFindByIDs(ctx context.Context, codes []string) ([]model.Language, error) {
	if len(codes) == 0 {
		return []model.Language{}, nil
	}
	return r.queryLanguages(ctx, querysql.Builder().
		Select("code", "text_direction", "font_family").
		From("language").
		Where(sq.Eq{"code": codes}).
		OrderBy("code"))
}

// LanguageGetAll returns every language.
func (r *Repository) LanguageGetAll(ctx context.Context) ([]model.Language, error) {
	return r.queryLanguages(ctx, querysql.Builder().
		Select("code", "text_direction", "font_family").
		From("language").
		OrderBy("code"))
}

func (r *Repository) queryLanguages(ctx context.Context, q sq.SelectBuilder) ([]model.Language, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("query languages: %w", err)
	}
	rows, err := r.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query languages: %w", err)
	}
	defer rows.Close()

	langs := []model.Language{}
	for rows.Next() {
		var l model.Language
		var font sql.NullString
		if err := rows.Scan(&l.Code, &l.TextDirection, &font); err != nil {
			return nil, fmt.Errorf("query languages: %w", err)
		}
		l.FontFamily = font.String
		langs = append(langs, l)
	}
	return langs, rows.Err()
}

// FirstBCV returns the first target word's reference.
func (r *Repository) FirstBCV(ctx context.Context) (bcvwp.Coordinate, bool, error) {
	var id string
	err := r.store.DB().QueryRowContext(ctx,
		"SELECT id FROM words_or_parts WHERE side = ? ORDER BY id LIMIT 1", string(model.SideTargets),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return bcvwp.Coordinate{}, false, nil
	}
	if err != nil {
		return bcvwp.Coordinate{}, false, fmt.Errorf("first bcv: %w", err)
	}
	c, err := bcvwp.Parse(model.StripSide(id))
	if err != nil {
		return bcvwp.Coordinate{}, false, fmt.Errorf("first bcv: %w", err)
	}
	return c, true, nil
}

// HasBCV reports whether any target word's reference starts with ref.
func (r *Repository) HasBCV(ctx context.Context, ref string) (bool, error) {
	ref = bcvwp.Sanitize(ref)
	for _, ch := range ref {
		if ch < '0' || ch > '9' {
			return false, fmt.Errorf("has bcv: %w: %q", bcvwp.ErrMalformedReference, ref)
		}
	}
	var n int
	err := r.store.DB().QueryRowContext(ctx,
		"SELECT COUNT(1) FROM words_or_parts WHERE id LIKE ?",
		model.WordKey(model.SideTargets, ref)+"%",
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has bcv: %w", err)
	}
	return n > 0, nil
}

// RemoveTargetWords deletes every target-side word, ahead of a reload.
func (r *Repository) RemoveTargetWords(ctx context.Context) error {
	if _, err := r.store.Exec(ctx, "DELETE FROM words_or_parts WHERE side = ?", string(model.SideTargets)); err != nil {
		return fmt.Errorf("remove target words: %w", err)
	}
	return nil
}

// CountWords counts the words on side.
func (r *Repository) CountWords(ctx context.Context, side model.Side) (int, error) {
	var n int
	if err := r.store.DB().QueryRowContext(ctx,
		"SELECT COUNT(1) FROM words_or_parts WHERE side = ?", string(side)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return n, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
