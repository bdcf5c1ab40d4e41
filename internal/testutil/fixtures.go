// Package testutil holds deterministic clocks, id generators and store
// fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/aligner/internal/bcvwp"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/store"
)

// OpenStore opens a fresh project store in a temporary directory.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "project.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Word builds a word on side at ref with text used as both surface and
// normalized form.
func Word(side model.Side, ref, text string) model.Word {
	corpus := "src"
	lang := "grc"
	if side == model.SideTargets {
		corpus = "tgt"
		lang = "eng"
	}
	return model.Word{
		ID:             ref,
		Side:           side,
		CorpusID:       corpus,
		Text:           text,
		NormalizedText: text,
		LanguageID:     lang,
		Position:       bcvwp.MustParse(ref),
	}
}

// SeedCorpora inserts a Greek source corpus and an English target corpus
// with their languages.
func SeedCorpora(t testing.TB, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	stmts := []string{
		"INSERT INTO language (code, text_direction) VALUES ('grc', 'ltr'), ('eng', 'ltr')",
		"INSERT INTO corpora (id, side, name, full_name, language_id) VALUES ('src', 'sources', 'SBLGNT', 'SBL Greek New Testament', 'grc')",
		"INSERT INTO corpora (id, side, name, full_name, language_id) VALUES ('tgt', 'targets', 'BSB', 'Berean Standard Bible', 'eng')",
	}
	for _, stmt := range stmts {
		_, err := s.Exec(ctx, stmt)
		require.NoError(t, err)
	}
}

// SeedWords inserts words directly, bypassing the corpus repository.
func SeedWords(t testing.TB, s *store.Store, words ...model.Word) {
	t.Helper()
	ctx := context.Background()
	for _, w := range words {
		p := w.Position
		_, err := s.Exec(ctx, `INSERT INTO words_or_parts
			(id, corpus_id, side, text, after, gloss, normalized_text, source_verse_bcvid, language_id,
			 position_book, position_chapter, position_verse, position_word, position_part)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.Key(), w.CorpusID, string(w.Side), w.Text, w.After, w.Gloss, w.NormalizedText, w.SourceVerse, w.LanguageID,
			p.Book, p.Chapter, p.Verse, p.Word, p.Part)
		require.NoError(t, err, fmt.Sprintf("seed word %s", w.Key()))
	}
}
