package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligner/internal/model"
)

const valid = `
project: {id: "demo"}
corpora: [{
	id:   "sblgnt"
	side: "sources"
	name: "SBLGNT"
	file: "sblgnt.tsv"
	language: {code: "grc"}
}, {
	id:       "bsb"
	side:     "targets"
	name:     "BSB"
	fullName: "Berean Standard Bible"
	file:     "/data/bsb.tsv"
	idField:  "id"
	language: {code: "eng", fontFamily: "Gentium"}
}]
alignments: "links.json"
`

func TestParse_AppliesDefaults(t *testing.T) {
	m, err := Parse("demo.cue", []byte(valid))
	require.NoError(t, err)

	assert.Equal(t, Project{ID: "demo", Name: "demo"}, m.Project)
	require.Len(t, m.Corpora, 2)
	assert.Equal(t, "SBLGNT", m.Corpora[0].FullName)
	assert.Equal(t, "xml:id", m.Corpora[0].IDField)
	assert.Equal(t, "ltr", m.Corpora[0].Language.TextDirection)
	assert.Equal(t, "id", m.Corpora[1].IDField)

	c := m.Corpora[1].Model()
	assert.Equal(t, model.SideTargets, c.Side)
	assert.Equal(t, "bsb.tsv", c.FileName)
	assert.Equal(t, "Gentium", c.Language.FontFamily)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad side":      `project: {id: "p"}, corpora: [{id: "c", side: "middle", name: "n", file: "f", language: {code: "x"}}]`,
		"missing file":  `project: {id: "p"}, corpora: [{id: "c", side: "sources", name: "n", language: {code: "x"}}]`,
		"bad direction": `project: {id: "p"}, corpora: [{id: "c", side: "sources", name: "n", file: "f", language: {code: "x", textDirection: "up"}}]`,
		"no project id": `project: {name: "p"}`,
		"duplicate": `project: {id: "p"}, corpora: [
			{id: "c", side: "sources", name: "n", file: "f", language: {code: "x"}},
			{id: "c", side: "targets", name: "n", file: "g", language: {code: "y"}}]`,
		"syntax": `project: {`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("bad.cue", []byte(src))
			require.Error(t, err)
			var le *LoadError
			assert.ErrorAs(t, err, &le)
		})
	}
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.cue")
	require.NoError(t, os.WriteFile(path, []byte(valid), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sblgnt.tsv"), m.Corpora[0].File)
	assert.Equal(t, "/data/bsb.tsv", m.Corpora[1].File)
	assert.Equal(t, filepath.Join(dir, "links.json"), m.Alignments)

	_, err = Load(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
