package importer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/aligner/internal/model"
)

// alignmentFile is the exchange format for link sets.
type alignmentFile struct {
	Type    string            `json:"type"`
	Meta    map[string]any    `json:"meta"`
	Records []alignmentRecord `json:"records"`
}

type alignmentRecord struct {
	Meta struct {
		ID     string `json:"id"`
		Origin string `json:"origin"`
		Status string `json:"status"`
	} `json:"meta"`
	Source []string `json:"source"`
	Target []string `json:"target"`
}

// ReadAlignments parses an alignment file into links. Records without an
// id get one on insert.
func ReadAlignments(r io.Reader) ([]model.Link, error) {
	var f alignmentFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode alignment file: %w", err)
	}
	links := make([]model.Link, 0, len(f.Records))
	for i, rec := range f.Records {
		if len(rec.Source) == 0 && len(rec.Target) == 0 {
			return nil, fmt.Errorf("record %d: no source or target words", i)
		}
		links = append(links, model.Link{
			ID:      rec.Meta.ID,
			Sources: rec.Source,
			Targets: rec.Target,
			Meta:    model.LinkMeta{Origin: rec.Meta.Origin, Status: rec.Meta.Status},
		}.WithDefaults())
	}
	return links, nil
}
