package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/aligner/internal/bcvwp"
)

// Side is one of the two texts being aligned.
type Side string

const (
	SideSources Side = "sources"
	SideTargets Side = "targets"
)

// ParseSide accepts "sources"/"targets" and the singular forms.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sources", "source":
		return SideSources, nil
	case "targets", "target":
		return SideTargets, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideSources {
		return SideTargets
	}
	return SideSources
}

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideSources || s == SideTargets
}

// JunctionTable is the table holding link membership for this side.
func (s Side) JunctionTable() string {
	if s == SideSources {
		return "links__source_words"
	}
	return "links__target_words"
}

// TextColumn is the links column caching this side's text.
func (s Side) TextColumn() string {
	if s == SideSources {
		return "sources_text"
	}
	return "targets_text"
}

// WordKey builds the stored key "<side>:<ref>" for an external word id.
func WordKey(side Side, id string) string {
	return string(side) + ":" + bcvwp.Sanitize(id)
}

// StripSide removes a "<side>:" prefix if present.
func StripSide(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Language describes how a corpus is rendered.
type Language struct {
	Code          string `json:"code"`
	TextDirection string `json:"text_direction"`
	FontFamily    string `json:"font_family,omitempty"`
}

// Corpus is a named source or target text.
type Corpus struct {
	ID         string    `json:"id"`
	Side       Side      `json:"side"`
	Name       string    `json:"name"`
	FullName   string    `json:"full_name"`
	FileName   string    `json:"file_name,omitempty"`
	LanguageID string    `json:"language_id"`
	Language   *Language `json:"language,omitempty"`
}

// Word is a token or sub-token of a corpus.
type Word struct {
	ID             string           `json:"id"`
	Side           Side             `json:"side"`
	CorpusID       string           `json:"corpus_id"`
	Text           string           `json:"text"`
	After          string           `json:"after,omitempty"`
	Gloss          string           `json:"gloss,omitempty"`
	NormalizedText string           `json:"normalized_text"`
	SourceVerse    string           `json:"source_verse,omitempty"`
	LanguageID     string           `json:"language_id,omitempty"`
	Position       bcvwp.Coordinate `json:"-"`
}

// Key is the stored, side-prefixed id.
func (w Word) Key() string {
	return WordKey(w.Side, w.ID)
}

// Link origins and statuses.
const (
	OriginManual = "manual"

	StatusCreated     = "CREATED"
	StatusApproved    = "APPROVED"
	StatusNeedsReview = "NEEDS_REVIEW"
	StatusRejected    = "REJECTED"
)

// LinkMeta carries provenance for a link.
type LinkMeta struct {
	Origin string `json:"origin"`
	Status string `json:"status"`
}

// Link is an alignment between source and target words. Word ids carry
// no side prefix.
type Link struct {
	ID      string   `json:"id"`
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
	Meta    LinkMeta `json:"meta"`
}

// Words returns the membership for one side.
func (l Link) Words(side Side) []string {
	if side == SideSources {
		return l.Sources
	}
	return l.Targets
}

// WithDefaults fills the origin and status defaults.
func (l Link) WithDefaults() Link {
	if l.Meta.Origin == "" {
		l.Meta.Origin = OriginManual
	}
	if l.Meta.Status == "" {
		l.Meta.Status = StatusCreated
	}
	if l.Sources == nil {
		l.Sources = []string{}
	}
	if l.Targets == nil {
		l.Targets = []string{}
	}
	return l
}

// ServerLink is the remote authority's link representation.
type ServerLink struct {
	ID      string   `json:"id"`
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
	Meta    LinkMeta `json:"meta"`
}

// ToServer maps a link to its wire form.
func (l Link) ToServer() ServerLink {
	l = l.WithDefaults()
	return ServerLink{ID: l.ID, Sources: l.Sources, Targets: l.Targets, Meta: l.Meta}
}

// ToLink maps a wire link to the local form.
func (s ServerLink) ToLink() Link {
	return Link{ID: s.ID, Sources: s.Sources, Targets: s.Targets, Meta: s.Meta}.WithDefaults()
}

// JournalType classifies a journal entry.
type JournalType string

const (
	JournalCreate     JournalType = "CREATE"
	JournalUpdate     JournalType = "UPDATE"
	JournalDelete     JournalType = "DELETE"
	JournalBulkInsert JournalType = "BULK_INSERT"
)

// JournalEntry records one local mutation awaiting upload.
type JournalEntry struct {
	ID             string          `json:"id"`
	LinkID         string          `json:"link_id,omitempty"`
	Type           JournalType     `json:"type"`
	Date           time.Time       `json:"date"`
	Seq            int64           `json:"seq"`
	Body           json.RawMessage `json:"body"`
	BulkInsertFile string          `json:"bulk_insert_file,omitempty"`
}

// JournalEntryDTO is the upload form of a journal entry.
type JournalEntryDTO struct {
	ID     string          `json:"id"`
	LinkID string          `json:"linkId,omitempty"`
	Type   JournalType     `json:"type"`
	Date   time.Time       `json:"date"`
	Body   json.RawMessage `json:"body"`
}

// DTO maps an entry to its upload form.
func (e JournalEntry) DTO() JournalEntryDTO {
	return JournalEntryDTO{ID: e.ID, LinkID: e.LinkID, Type: e.Type, Date: e.Date, Body: e.Body}
}

// Preference is the singleton user settings row.
type Preference struct {
	ID             string `json:"id" yaml:"id"`
	AlignmentView  string `json:"alignment_view,omitempty" yaml:"alignment_view,omitempty"`
	CurrentProject string `json:"current_project,omitempty" yaml:"current_project,omitempty"`
	BCV            string `json:"bcv,omitempty" yaml:"bcv,omitempty"`
	Page           string `json:"page,omitempty" yaml:"page,omitempty"`
	ShowGloss      bool   `json:"show_gloss" yaml:"show_gloss"`
}

// Project is a project store as listed from disk.
type Project struct {
	ID       string   `json:"id"`
	FileName string   `json:"file_name"`
	Corpora  []Corpus `json:"corpora"`
}

// PivotFilter restricts pivot word aggregation.
type PivotFilter string

const (
	PivotAll     PivotFilter = "all"
	PivotAligned PivotFilter = "aligned"
)

// PivotWord is one row of pivot word frequency.
type PivotWord struct {
	NormalizedText string `json:"normalized_text"`
	LanguageID     string `json:"language_id"`
	Frequency      int    `json:"frequency"`
}

// AlignedWord is a distinct (sources text, targets text) pair for a pivot.
type AlignedWord struct {
	ID               string `json:"id"`
	Frequency        int    `json:"frequency"`
	SourcesText      string `json:"sources_text"`
	TargetsText      string `json:"targets_text"`
	SourceLanguageID string `json:"source_language_id"`
	TargetLanguageID string `json:"target_language_id"`
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort is an optional field/direction pair requested by callers. Field
// names are resolved against an allow-list before reaching SQL.
type Sort struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}
