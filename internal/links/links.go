// Package links stores alignment links and their word membership.
//
// A link row holds only its id, metadata and the cached text of each side.
// Membership lives in two junction tables keyed by side-prefixed word ids.
// Every write that changes membership recomputes the cached text in the
// same transaction, and every user mutation appends a journal entry there
// too.
package links

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/wI2L/jsondiff"

	"github.com/roach88/aligner/internal/bcvwp"
	"github.com/roach88/aligner/internal/journal"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/querysql"
	"github.com/roach88/aligner/internal/store"
)

// maxIDsPerQuery bounds IN lists.
const maxIDsPerQuery = 500

// Repository reads and writes links in one project store.
type Repository struct {
	store   *store.Store
	journal *journal.Journal
	logger  *slog.Logger
}

// New creates a Repository. Mutations are journaled through j.
func New(s *store.Store, j *journal.Journal, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: s, journal: j, logger: logger}
}

// Insert creates links, assigning ids to those without one. Each link is
// journaled as CREATE. An existing id fails the whole call.
func (r *Repository) Insert(ctx context.Context, links []model.Link) ([]model.Link, error) {
	return r.InsertChunked(ctx, links, 0)
}

// InsertChunked is Insert writing rows chunkSize links at a time (all at
// once when chunkSize <= 0). Every link still gets its own CREATE entry
// and all chunks share one transaction.
func (r *Repository) InsertChunked(ctx context.Context, links []model.Link, chunkSize int) ([]model.Link, error) {
	if len(links) == 0 {
		return []model.Link{}, nil
	}
	out := make([]model.Link, len(links))
	ids := make([]string, len(links))
	for i, l := range links {
		out[i] = r.prepare(l)
		ids[i] = out[i].ID
	}
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		for _, span := range store.Chunk(len(out), chunkSize) {
			chunk := out[span[0]:span[1]]
			if err := insertRows(ctx, tx, chunk); err != nil {
				return fmt.Errorf("links %d-%d: %w", span[0], span[1], err)
			}
			for _, l := range chunk {
				if _, err := r.journal.AppendLink(ctx, tx, model.JournalCreate, l); err != nil {
					return err
				}
			}
		}
		return recomputeText(ctx, tx, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("insert links: %w", err)
	}
	r.logger.Debug("links inserted", "count", len(out))
	return out, nil
}

// InsertBulk creates links in chunks of chunkSize, journaling one
// BULK_INSERT entry per chunk. All chunks share one transaction.
func (r *Repository) InsertBulk(ctx context.Context, links []model.Link, chunkSize int) ([]model.Link, error) {
	out := make([]model.Link, len(links))
	for i, l := range links {
		out[i] = r.prepare(l)
	}
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		ids := make([]string, len(out))
		for _, span := range store.Chunk(len(out), chunkSize) {
			chunk := out[span[0]:span[1]]
			if err := insertRows(ctx, tx, chunk); err != nil {
				return err
			}
			if _, err := r.journal.AppendBulk(ctx, tx, chunk); err != nil {
				return err
			}
			for i, l := range chunk {
				ids[span[0]+i] = l.ID
			}
		}
		return recomputeText(ctx, tx, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("bulk insert links: %w", err)
	}
	return out, nil
}

// Save writes links with their complete membership, replacing whatever
// was stored. Existing links are journaled as UPDATE with an RFC 6902
// patch against the stored state (nothing when unchanged); new links as
// CREATE.
func (r *Repository) Save(ctx context.Context, links []model.Link) ([]model.Link, error) {
	out := make([]model.Link, len(links))
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		ids := make([]string, len(links))
		for i, l := range links {
			l = r.prepare(l)
			prior, found, err := findOne(ctx, tx, l.ID)
			if err != nil {
				return err
			}
			if !found {
				if err := insertLink(ctx, tx, l); err != nil {
					return err
				}
				if _, err := r.journal.AppendLink(ctx, tx, model.JournalCreate, l); err != nil {
					return err
				}
			} else {
				if err := rewriteLink(ctx, tx, l); err != nil {
					return err
				}
				if err := r.journalUpdate(ctx, tx, prior, l); err != nil {
					return err
				}
			}
			out[i] = l
			ids[i] = l.ID
		}
		return recomputeText(ctx, tx, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("save links: %w", err)
	}
	return out, nil
}

func (r *Repository) journalUpdate(ctx context.Context, exec store.Executor, prior, next model.Link) error {
	patch, err := jsondiff.Compare(prior.ToServer(), finish(next).ToServer())
	if err != nil {
		return fmt.Errorf("diff link %s: %w", next.ID, err)
	}
	if len(patch) == 0 {
		return nil
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch %s: %w", next.ID, err)
	}
	_, err = r.journal.Append(ctx, exec, model.JournalUpdate, next.ID, body)
	return err
}

// prepare assigns an id, fills metadata defaults and canonicalizes the
// member ids.
func (r *Repository) prepare(l model.Link) model.Link {
	if l.ID == "" {
		l.ID = r.journal.IDs().Generate()
	}
	l.Sources = sanitizeAll(l.Sources)
	l.Targets = sanitizeAll(l.Targets)
	return finish(l)
}

// DeleteByIDs removes links. Each existing link is journaled as DELETE
// with its last state; junction rows of both sides go before the link row.
// Unknown ids are ignored.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		prior, err := findByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, l := range prior {
			if _, err := r.journal.AppendLink(ctx, tx, model.JournalDelete, l); err != nil {
				return err
			}
		}
		return deleteRows(ctx, tx, ids)
	})
	if err != nil {
		return fmt.Errorf("delete links: %w", err)
	}
	return nil
}

// DeleteAll removes every link without journaling.
func (r *Repository) DeleteAll(ctx context.Context) error {
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		return deleteAll(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("delete all links: %w", err)
	}
	return nil
}

// ReplaceAll swaps the whole link set for links in one transaction,
// without journaling. Used to apply the remote authority's copy.
func (r *Repository) ReplaceAll(ctx context.Context, links []model.Link, chunkSize int) error {
	prepared := make([]model.Link, len(links))
	for i, l := range links {
		prepared[i] = r.prepare(l)
	}
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		if err := deleteAll(ctx, tx); err != nil {
			return err
		}
		for _, span := range store.Chunk(len(prepared), chunkSize) {
			if err := insertRows(ctx, tx, prepared[span[0]:span[1]]); err != nil {
				return err
			}
		}
		return recomputeText(ctx, tx, nil)
	})
	if err != nil {
		return fmt.Errorf("replace links: %w", err)
	}
	r.logger.Info("links replaced", "count", len(prepared))
	return nil
}

// RecomputeText refreshes the cached text of ids, or of every link when
// none are given.
func (r *Repository) RecomputeText(ctx context.Context, ids ...string) error {
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		return recomputeText(ctx, tx, ids)
	})
	if err != nil {
		return fmt.Errorf("recompute link text: %w", err)
	}
	return nil
}

// FindByIDs returns the links with the given ids, ordered by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]model.Link, error) {
	links, err := findByIDs(ctx, r.store.DB(), ids)
	if err != nil {
		return nil, fmt.Errorf("find links: %w", err)
	}
	return links, nil
}

// FindOneByID returns one link or a NotFound error.
func (r *Repository) FindOneByID(ctx context.Context, id string) (model.Link, error) {
	l, found, err := findOne(ctx, r.store.DB(), id)
	if err != nil {
		return model.Link{}, fmt.Errorf("find link: %w", err)
	}
	if !found {
		return model.Link{}, model.NewError(model.ErrCodeNotFound, "links.find", fmt.Sprintf("link %q", id), nil)
	}
	return l, nil
}

// ExistsByID reports whether a link row exists.
func (r *Repository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var n int
	if err := r.store.DB().QueryRowContext(ctx, "SELECT COUNT(1) FROM links WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("link exists: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of links.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.store.DB().QueryRowContext(ctx, "SELECT COUNT(1) FROM links").Scan(&n); err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return n, nil
}

// FindBetween returns links whose id lies in [from, to], ordered by id.
func (r *Repository) FindBetween(ctx context.Context, from, to string) ([]model.Link, error) {
	links, err := queryBothSides(ctx, r.store.DB(), sq.And{
		sq.GtOrEq{"l.id": from},
		sq.LtOrEq{"l.id": to},
	}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("find links between: %w", err)
	}
	return links, nil
}

// GetAll pages through links in id order. limit <= 0 means no limit.
func (r *Repository) GetAll(ctx context.Context, limit, skip int) ([]model.Link, error) {
	links, err := queryBothSides(ctx, r.store.DB(), nil, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("get links: %w", err)
	}
	return links, nil
}

// FindByWordID returns the links containing the word on side, with the
// membership of both sides.
func (r *Repository) FindByWordID(ctx context.Context, side model.Side, wordID string) ([]model.Link, error) {
	sub := querysql.Builder().Select("link_id").
		From(side.JunctionTable()).
		Where(sq.Eq{"word_id": model.WordKey(side, wordID)})
	links, err := queryPerSide(ctx, r.store.DB(), sub)
	if err != nil {
		return nil, fmt.Errorf("find links by word: %w", err)
	}
	return links, nil
}

// FindByBCV returns the links touching any word of one verse on side,
// with the membership of both sides.
func (r *Repository) FindByBCV(ctx context.Context, side model.Side, book, chapter, verse int) ([]model.Link, error) {
	words := querysql.Builder().Select("id").
		From("words_or_parts").
		Where(sq.Eq{
			"side":             string(side),
			"position_book":    book,
			"position_chapter": chapter,
			"position_verse":   verse,
		})
	sub := querysql.Builder().Select("link_id").
		From(side.JunctionTable()).
		Where(subquery("word_id", words))
	links, err := queryPerSide(ctx, r.store.DB(), sub)
	if err != nil {
		return nil, fmt.Errorf("find links by bcv: %w", err)
	}
	return links, nil
}

func findOne(ctx context.Context, exec store.Executor, id string) (model.Link, bool, error) {
	links, err := findByIDs(ctx, exec, []string{id})
	if err != nil {
		return model.Link{}, false, err
	}
	if len(links) == 0 {
		return model.Link{}, false, nil
	}
	return links[0], true, nil
}

func findByIDs(ctx context.Context, exec store.Executor, ids []string) ([]model.Link, error) {
	out := []model.Link{}
	for _, span := range store.Chunk(len(ids), maxIDsPerQuery) {
		links, err := queryBothSides(ctx, exec, sq.Eq{"l.id": ids[span[0]:span[1]]}, 0, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, links...)
	}
	if len(ids) > maxIDsPerQuery {
		sortByID(out)
	}
	return out, nil
}

// queryBothSides selects one row per link carrying both member arrays.
func queryBothSides(ctx context.Context, exec store.Executor, where sq.Sqlizer, limit, skip int) ([]model.Link, error) {
	q := querysql.Builder().
		Select("l.id", "l.origin", "l.status",
			"(SELECT json_group_array(substr(s.word_id, 9)) FROM links__source_words s WHERE s.link_id = l.id)",
			"(SELECT json_group_array(substr(t.word_id, 9)) FROM links__target_words t WHERE t.link_id = l.id)").
		From("links l").
		OrderBy("l.id")
	if where != nil {
		q = q.Where(where)
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
		if skip > 0 {
			q = q.Offset(uint64(skip))
		}
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Origin, &r.Status, &r.Sources, &r.Targets); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return AssembleFromRows(out)
}

// queryPerSide selects one row per link and side for the links returned
// by linkIDs. A link with no members on a side yields no row for it.
func queryPerSide(ctx context.Context, exec store.Executor, linkIDs sq.SelectBuilder) ([]model.Link, error) {
	sub, subArgs, err := linkIDs.ToSql()
	if err != nil {
		return nil, err
	}
	query := `
		SELECT l.id, l.origin, l.status, 'sources', json_group_array(substr(s.word_id, 9))
		FROM links l JOIN links__source_words s ON s.link_id = l.id
		WHERE l.id IN (` + sub + `)
		GROUP BY l.id
		UNION ALL
		SELECT l.id, l.origin, l.status, 'targets', json_group_array(substr(t.word_id, 9))
		FROM links l JOIN links__target_words t ON t.link_id = l.id
		WHERE l.id IN (` + sub + `)
		GROUP BY l.id
		ORDER BY 1, 4`
	args := append(append([]any{}, subArgs...), subArgs...)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Origin, &r.Status, &r.Type, &r.Words); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return AssembleFromRows(out)
}

func insertLink(ctx context.Context, exec store.Executor, l model.Link) error {
	if _, err := exec.ExecContext(ctx,
		"INSERT INTO links (id, origin, status) VALUES (?, ?, ?)", l.ID, l.Meta.Origin, l.Meta.Status,
	); err != nil {
		return fmt.Errorf("insert link %s: %w", l.ID, err)
	}
	return writeMembers(ctx, exec, []model.Link{l})
}

// rewriteLink replaces metadata and membership of an existing link.
func rewriteLink(ctx context.Context, exec store.Executor, l model.Link) error {
	if _, err := exec.ExecContext(ctx,
		"UPDATE links SET origin = ?, status = ? WHERE id = ?", l.Meta.Origin, l.Meta.Status, l.ID,
	); err != nil {
		return fmt.Errorf("update link %s: %w", l.ID, err)
	}
	for _, side := range []model.Side{model.SideSources, model.SideTargets} {
		if _, err := exec.ExecContext(ctx,
			"DELETE FROM "+side.JunctionTable()+" WHERE link_id = ?", l.ID,
		); err != nil {
			return fmt.Errorf("clear %s of %s: %w", side, l.ID, err)
		}
	}
	return writeMembers(ctx, exec, []model.Link{l})
}

// insertRows writes link rows and membership with multi-row inserts.
func insertRows(ctx context.Context, exec store.Executor, links []model.Link) error {
	rows := make([][]any, len(links))
	for i, l := range links {
		rows[i] = []any{l.ID, l.Meta.Origin, l.Meta.Status}
	}
	if err := store.InsertRows(ctx, exec, "links", []string{"id", "origin", "status"}, rows, ""); err != nil {
		return err
	}
	return writeMembers(ctx, exec, links)
}

func writeMembers(ctx context.Context, exec store.Executor, links []model.Link) error {
	for _, side := range []model.Side{model.SideSources, model.SideTargets} {
		var rows [][]any
		for _, l := range links {
			for _, id := range l.Words(side) {
				rows = append(rows, []any{l.ID, model.WordKey(side, id)})
			}
		}
		if err := store.InsertRows(ctx, exec, side.JunctionTable(), []string{"link_id", "word_id"}, rows, ""); err != nil {
			return err
		}
	}
	return nil
}

// deleteRows removes junction rows of both sides, then the link rows.
func deleteRows(ctx context.Context, exec store.Executor, ids []string) error {
	for _, span := range store.Chunk(len(ids), maxIDsPerQuery) {
		chunk := ids[span[0]:span[1]]
		for _, table := range []string{
			model.SideSources.JunctionTable(),
			model.SideTargets.JunctionTable(),
		} {
			if err := deleteWhere(ctx, exec, table, sq.Eq{"link_id": chunk}); err != nil {
				return err
			}
		}
		if err := deleteWhere(ctx, exec, "links", sq.Eq{"id": chunk}); err != nil {
			return err
		}
	}
	return nil
}

func deleteAll(ctx context.Context, exec store.Executor) error {
	for _, table := range []string{"links__source_words", "links__target_words", "links"} {
		if _, err := exec.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func deleteWhere(ctx context.Context, exec store.Executor, table string, where sq.Sqlizer) error {
	query, args, err := querysql.Builder().Delete(table).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// subquery renders "column IN (<select>)".
func subquery(column string, sel sq.SelectBuilder) sq.Sqlizer {
	query, args, err := sel.ToSql()
	if err != nil {
		return errSqlizer{err}
	}
	return sq.Expr(column+" IN ("+query+")", args...)
}

type errSqlizer struct{ err error }

func (e errSqlizer) ToSql() (string, []any, error) { return "", nil, e.err }

func sanitizeAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s := sanitize(id); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sanitize canonicalizes an external word id: any side prefix and legacy
// marker are dropped.
func sanitize(id string) string {
	return bcvwp.Sanitize(model.StripSide(id))
}

func sortByID(links []model.Link) {
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
}
