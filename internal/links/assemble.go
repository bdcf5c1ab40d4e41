package links

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/aligner/internal/model"
)

// Row is one result row of a link query. Queries produce one of two
// shapes: a row per side (Type and Words set) or a single row carrying
// both sides (Sources and Targets set). Word arrays are JSON text of
// unprefixed word ids.
type Row struct {
	ID      string
	Origin  string
	Status  string
	Type    string
	Words   string
	Sources string
	Targets string
}

// AssembleFromRows folds rows sorted by link id into links. Consecutive
// rows with the same id are merged, whichever shape they have. Member ids
// are deduplicated and sorted.
func AssembleFromRows(rows []Row) ([]model.Link, error) {
	out := []model.Link{}
	var cur *model.Link
	for _, r := range rows {
		if cur == nil || cur.ID != r.ID {
			if cur != nil {
				out = append(out, finish(*cur))
			}
			cur = &model.Link{ID: r.ID, Meta: model.LinkMeta{Origin: r.Origin, Status: r.Status}}
		}

		if r.Type != "" {
			side, err := model.ParseSide(r.Type)
			if err != nil {
				return nil, fmt.Errorf("link %s: %w", r.ID, err)
			}
			ids, err := decodeIDs(r.Words)
			if err != nil {
				return nil, fmt.Errorf("link %s %s: %w", r.ID, side, err)
			}
			if side == model.SideSources {
				cur.Sources = append(cur.Sources, ids...)
			} else {
				cur.Targets = append(cur.Targets, ids...)
			}
			continue
		}

		sources, err := decodeIDs(r.Sources)
		if err != nil {
			return nil, fmt.Errorf("link %s sources: %w", r.ID, err)
		}
		targets, err := decodeIDs(r.Targets)
		if err != nil {
			return nil, fmt.Errorf("link %s targets: %w", r.ID, err)
		}
		cur.Sources = append(cur.Sources, sources...)
		cur.Targets = append(cur.Targets, targets...)
	}
	if cur != nil {
		out = append(out, finish(*cur))
	}
	return out, nil
}

func decodeIDs(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var ids []*string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		// json_group_array yields [null] for a link without members.
		if id != nil && *id != "" {
			out = append(out, *id)
		}
	}
	return out, nil
}

func finish(l model.Link) model.Link {
	l.Sources = uniqueSorted(l.Sources)
	l.Targets = uniqueSorted(l.Targets)
	return l.WithDefaults()
}

func uniqueSorted(ids []string) []string {
	if len(ids) == 0 {
		return []string{}
	}
	sort.Strings(ids)
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
