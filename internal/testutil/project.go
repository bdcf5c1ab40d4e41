package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Sample corpora: Matthew 1:1-2 in Greek (sources) and English (targets).
// The comma target token is punctuation and is skipped on import.
const (
	SampleSources = "xml:id\ttext\tlemma\tafter\tgloss\n" +
		"n40001001001\tΒίβλος\tβίβλος\t \tbook\n" +
		"n40001001002\tγενέσεως\tγένεσις\t \tof.genealogy\n" +
		"n40001001003\tἸησοῦ\tἸησοῦς\t \tJesus\n" +
		"n40001002001\tἈβραὰμ\tἈβραάμ\t \tAbraham\n"

	SampleTargets = "id\ttext\tafter\tsource_verse\n" +
		"400010010011\tThe\t \t40001001\n" +
		"400010010021\tbook\t \t40001001\n" +
		"400010010031\t,\t \t40001001\n" +
		"400010010041\tgenealogy\t \t40001001\n" +
		"400010010051\tof\t \t40001001\n" +
		"400010010061\tJesus\t\t40001001\n" +
		"400010020011\tAbraham\t\t40001002\n"

	SampleAlignments = `{
  "type": "translation",
  "meta": {},
  "records": [
    {"meta": {"id": "a1"}, "source": ["n40001001001"], "target": ["400010010021"]},
    {"meta": {"id": "a2"}, "source": ["n40001001003"], "target": ["400010010061"]},
    {"meta": {"id": "a3", "status": "APPROVED"}, "source": ["n40001002001"], "target": ["400010020011"]}
  ]
}`

	SampleManifest = `project: {id: "demo", name: "Demo"}
corpora: [{
	id: "sblgnt", side: "sources", name: "SBLGNT", file: "sblgnt.tsv"
	language: {code: "grc"}
}, {
	id: "bsb", side: "targets", name: "BSB", file: "bsb.tsv", idField: "id"
	language: {code: "eng"}
}]
alignments: "alignments.json"
`
)

// WriteSampleProject writes the sample manifest, corpora and alignments
// into dir and returns the manifest path.
func WriteSampleProject(t testing.TB, dir string) string {
	t.Helper()
	files := map[string]string{
		"sblgnt.tsv":      SampleSources,
		"bsb.tsv":         SampleTargets,
		"alignments.json": SampleAlignments,
		"project.cue":     SampleManifest,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return filepath.Join(dir, "project.cue")
}
