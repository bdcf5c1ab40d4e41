package project

import (
	"slices"

	"github.com/roach88/aligner/internal/model"
)

// Table selects how a table-addressed operation is carried out. It is a
// closed set: LinksTable, PreferenceTable or GenericTable.
type Table interface {
	tableName() string
}

// LinksTable addresses links together with their membership and journal.
type LinksTable struct{}

// PreferenceTable addresses the preference row of the shared user store.
// Operations on it ignore the project argument.
type PreferenceTable struct{}

// GenericTable addresses an allow-listed project table by name: corpora,
// language, words_or_parts or journal_entries.
type GenericTable struct {
	Name string
}

func (LinksTable) tableName() string      { return "links" }
func (PreferenceTable) tableName() string { return "preference" }
func (t GenericTable) tableName() string  { return t.Name }

// ParseTable maps a table name to its variant.
func ParseTable(name string) Table {
	switch name {
	case "links":
		return LinksTable{}
	case "preference", "preferences":
		return PreferenceTable{}
	}
	return GenericTable{Name: name}
}

// Row is one generic table row keyed by column name.
type Row map[string]any

// Records carries the items of a table operation. Only the field matching
// the table variant is read or filled.
type Records struct {
	Links       []model.Link       `json:"links,omitempty" yaml:"links,omitempty"`
	Preferences []model.Preference `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	Corpora     []model.Corpus     `json:"corpora,omitempty" yaml:"corpora,omitempty"`
	Rows        []Row              `json:"rows,omitempty" yaml:"rows,omitempty"`
}

// Len is the number of items held.
func (r Records) Len() int {
	return len(r.Links) + len(r.Preferences) + len(r.Corpora) + len(r.Rows)
}

// corpora returns Corpora followed by the corpora described by Rows.
func (r Records) corpora() ([]model.Corpus, error) {
	out := slices.Clone(r.Corpora)
	for _, row := range r.Rows {
		c, err := corpusFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
