package links

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/aligner/internal/bcvwp"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/querysql"
	"github.com/roach88/aligner/internal/store"
)

// member is a linked word with its normalized text.
type member struct {
	ref  string
	text string
}

// joinText renders a side's cached text. Parts of the same word are
// concatenated; words are joined with single spaces in reference order.
// members must be sorted by ref.
func joinText(members []member) string {
	var (
		b       strings.Builder
		lastKey string
	)
	for i, m := range members {
		key := groupKey(m.ref)
		if i > 0 && key != lastKey {
			b.WriteByte(' ')
		}
		b.WriteString(m.text)
		lastKey = key
	}
	return b.String()
}

func groupKey(ref string) string {
	if len(ref) <= bcvwp.WordKeyLength {
		return ref
	}
	return ref[:bcvwp.WordKeyLength]
}

// recomputeText rewrites sources_text and targets_text for ids, or for
// every link when ids is empty.
func recomputeText(ctx context.Context, exec store.Executor, ids []string) error {
	if len(ids) == 0 {
		all, err := allIDs(ctx, exec)
		if err != nil {
			return err
		}
		ids = all
	}
	for _, span := range store.Chunk(len(ids), maxIDsPerQuery) {
		if err := recomputeChunk(ctx, exec, ids[span[0]:span[1]]); err != nil {
			return err
		}
	}
	return nil
}

func recomputeChunk(ctx context.Context, exec store.Executor, ids []string) error {
	texts := make(map[string]map[model.Side][]member, len(ids))
	for _, id := range ids {
		texts[id] = map[model.Side][]member{}
	}

	for _, side := range []model.Side{model.SideSources, model.SideTargets} {
		query, args, err := querysql.Builder().
			Select("j.link_id", "j.word_id", "COALESCE(w.normalized_text, '')").
			From(side.JunctionTable() + " j").
			Join("words_or_parts w ON w.id = j.word_id").
			Where(sq.Eq{"j.link_id": ids}).
			OrderBy("j.link_id", "j.word_id").
			ToSql()
		if err != nil {
			return fmt.Errorf("recompute text: %w", err)
		}
		rows, err := exec.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("recompute text: %w", err)
		}
		for rows.Next() {
			var linkID, wordID, text string
			if err := rows.Scan(&linkID, &wordID, &text); err != nil {
				rows.Close()
				return fmt.Errorf("recompute text: %w", err)
			}
			texts[linkID][side] = append(texts[linkID][side], member{ref: model.StripSide(wordID), text: text})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("recompute text: %w", err)
		}
	}

	for _, id := range ids {
		_, err := exec.ExecContext(ctx,
			"UPDATE links SET sources_text = ?, targets_text = ? WHERE id = ?",
			joinText(texts[id][model.SideSources]), joinText(texts[id][model.SideTargets]), id)
		if err != nil {
			return fmt.Errorf("recompute text %s: %w", id, err)
		}
	}
	return nil
}

func allIDs(ctx context.Context, exec store.Executor) ([]string, error) {
	rows, err := exec.QueryContext(ctx, "SELECT id FROM links ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list link ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list link ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
