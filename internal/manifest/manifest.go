// Package manifest loads project manifests: a CUE file naming the project,
// its corpora (TSV files with language metadata) and an optional alignment
// file to import.
//
// Example:
//
//	project: {id: "sblgnt-bsb", name: "SBLGNT / BSB"}
//	corpora: [{
//		id: "sblgnt", side: "sources", name: "SBLGNT", file: "sblgnt.tsv"
//		language: {code: "grc"}
//	}]
package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/aligner/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Manifest is a decoded project manifest. File paths are absolute.
type Manifest struct {
	Project    Project  `json:"project"`
	Corpora    []Corpus `json:"corpora"`
	Alignments string   `json:"alignments,omitempty"`
}

// Project names the store to import into.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Corpus describes one TSV corpus file.
type Corpus struct {
	ID       string   `json:"id"`
	Side     string   `json:"side"`
	Name     string   `json:"name"`
	FullName string   `json:"fullName"`
	File     string   `json:"file"`
	IDField  string   `json:"idField"`
	Language Language `json:"language"`
}

// Language is the corpus language row.
type Language struct {
	Code          string `json:"code"`
	TextDirection string `json:"textDirection"`
	FontFamily    string `json:"fontFamily,omitempty"`
}

// Model converts the entry to a corpus row.
func (c Corpus) Model() model.Corpus {
	return model.Corpus{
		ID:         c.ID,
		Side:       model.Side(c.Side),
		Name:       c.Name,
		FullName:   c.FullName,
		FileName:   filepath.Base(c.File),
		LanguageID: c.Language.Code,
		Language: &model.Language{
			Code:          c.Language.Code,
			TextDirection: c.Language.TextDirection,
			FontFamily:    c.Language.FontFamily,
		},
	}
}

// LoadError is a manifest error with its CUE position when known.
type LoadError struct {
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads, validates and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("read manifest: %v", err)}
	}
	m, err := Parse(path, src)
	if err != nil {
		return nil, err
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// Parse validates and decodes manifest source. Relative paths are left as
// written.
func Parse(filename string, src []byte) (*Manifest, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, formatCUEError(err)
	}

	seen := make(map[string]bool, len(m.Corpora))
	for _, c := range m.Corpora {
		if seen[c.ID] {
			return nil, &LoadError{Message: fmt.Sprintf("duplicate corpus id %q", c.ID)}
		}
		seen[c.ID] = true
	}
	return &m, nil
}

func (m *Manifest) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range m.Corpora {
		m.Corpora[i].File = abs(m.Corpora[i].File)
	}
	m.Alignments = abs(m.Alignments)
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
