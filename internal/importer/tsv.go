// Package importer loads corpora from TSV files and links from alignment
// files into a project store.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/roach88/aligner/internal/bcvwp"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/textnorm"
)

// DefaultIDField is the id column of corpus TSV exports.
const DefaultIDField = "xml:id"

// glossNeedingCleanup matches dotted glosses such as "the.beginning".
var glossNeedingCleanup = regexp.MustCompile(`^(.+\..+)+$`)

// columns locates the known columns of a TSV header. Missing optional
// columns are -1.
type columns struct {
	id, text, lemma, after, gloss, english, sourceVerse int
}

func locate(header []string, idField string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	find := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	c := columns{
		id:          find(idField),
		text:        find("text"),
		lemma:       find("lemma"),
		after:       find("after"),
		gloss:       find("gloss"),
		english:     find("english"),
		sourceVerse: find("source_verse"),
	}
	if c.id < 0 && idField == DefaultIDField {
		c.id = find("id")
	}
	if c.id < 0 {
		return c, fmt.Errorf("missing id column %q", idField)
	}
	if c.text < 0 {
		return c, errors.New("missing text column")
	}
	if c.lemma < 0 {
		c.lemma = c.text
	}
	return c, nil
}

// ReadTSV parses a corpus TSV into words of corpus. Target-side tokens
// that are only punctuation are skipped.
func ReadTSV(r io.Reader, corpus model.Corpus, idField string) ([]model.Word, error) {
	if idField == "" {
		idField = DefaultIDField
	}
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty corpus file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := locate(header, idField)
	if err != nil {
		return nil, err
	}

	var words []model.Word
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		text := field(row, cols.text)
		if text == "" {
			text = field(row, cols.lemma)
		}
		if corpus.Side == model.SideTargets && textnorm.IsPunctuation(text) {
			continue
		}

		id := bcvwp.Sanitize(field(row, cols.id))
		pos, err := bcvwp.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		gloss := field(row, cols.gloss)
		if gloss == "" {
			gloss = field(row, cols.english)
		}
		if glossNeedingCleanup.MatchString(gloss) {
			gloss = strings.ReplaceAll(gloss, ".", " ")
		}

		words = append(words, model.Word{
			ID:          id,
			Side:        corpus.Side,
			CorpusID:    corpus.ID,
			Text:        text,
			After:       field(row, cols.after),
			Gloss:       gloss,
			SourceVerse: bcvwp.Sanitize(field(row, cols.sourceVerse)),
			LanguageID:  corpus.LanguageID,
			Position:    pos,
		})
	}
	return words, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
