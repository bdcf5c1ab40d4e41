// Package journal records local link mutations awaiting upload to the
// remote authority.
//
// Entries are ordered by a monotonic sequence resumed from the highest
// stored value, so upload order matches mutation order even when several
// entries share a timestamp.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/querysql"
	"github.com/roach88/aligner/internal/store"
)

const table = "journal_entries"

var columns = []string{"id", "link_id", "type", "date", "seq", "body", "bulk_insert_file"}

// Journal appends and drains journal entries of one project store.
//
// Thread-safety: safe for concurrent use.
type Journal struct {
	store  *store.Store
	ids    IDGenerator
	clock  Clock
	logger *slog.Logger

	mu  sync.Mutex
	seq *Sequence
}

// Option configures a Journal.
type Option func(*Journal)

// WithIDGenerator replaces the UUIDv7 generator. Tests use a fixed one.
func WithIDGenerator(g IDGenerator) Option {
	return func(j *Journal) { j.ids = g }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(j *Journal) { j.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// New creates a Journal over s.
func New(s *store.Store, opts ...Option) *Journal {
	j := &Journal{
		store:  s,
		ids:    UUIDv7Generator{},
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// IDs exposes the generator so link creation shares it.
func (j *Journal) IDs() IDGenerator {
	return j.ids
}

// nextSeq returns the next sequence value, loading the stored maximum on
// first use.
func (j *Journal) nextSeq(ctx context.Context, exec store.Executor) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.seq == nil {
		var max sql.NullInt64
		if err := exec.QueryRowContext(ctx, "SELECT MAX(seq) FROM "+table).Scan(&max); err != nil {
			return 0, fmt.Errorf("journal: load sequence: %w", err)
		}
		j.seq = NewSequenceAt(max.Int64)
	}
	return j.seq.Next(), nil
}

// Append records one entry through exec, which is normally the
// transaction performing the mutation.
func (j *Journal) Append(ctx context.Context, exec store.Executor, typ model.JournalType, linkID string, body json.RawMessage) (model.JournalEntry, error) {
	seq, err := j.nextSeq(ctx, exec)
	if err != nil {
		return model.JournalEntry{}, err
	}
	e := model.JournalEntry{
		ID:     j.ids.Generate(),
		LinkID: linkID,
		Type:   typ,
		Date:   j.clock.Now(),
		Seq:    seq,
		Body:   body,
	}

	query, args, err := querysql.Builder().Insert(table).Columns(columns...).
		Values(e.ID, nullable(e.LinkID), string(e.Type), e.Date.Format(time.RFC3339Nano), e.Seq, string(e.Body), nil).
		ToSql()
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("journal: build insert: %w", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return model.JournalEntry{}, fmt.Errorf("journal: append %s: %w", typ, err)
	}
	j.logger.Debug("journal entry appended", "id", e.ID, "type", typ, "link", linkID, "seq", seq)
	return e, nil
}

// AppendLink records a CREATE or DELETE entry whose body is the link's
// full wire form.
func (j *Journal) AppendLink(ctx context.Context, exec store.Executor, typ model.JournalType, link model.Link) (model.JournalEntry, error) {
	body, err := model.MarshalBody(link.ToServer())
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("journal: encode %s body: %w", link.ID, err)
	}
	return j.Append(ctx, exec, typ, link.ID, body)
}

// AppendBulk records one BULK_INSERT entry carrying every link of a
// chunk.
func (j *Journal) AppendBulk(ctx context.Context, exec store.Executor, links []model.Link) (model.JournalEntry, error) {
	server := make([]model.ServerLink, len(links))
	for i, l := range links {
		server[i] = l.ToServer()
	}
	body, err := model.MarshalBody(server)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("journal: encode bulk body: %w", err)
	}
	return j.Append(ctx, exec, model.JournalBulkInsert, "", body)
}

// List returns every entry in upload order.
func (j *Journal) List(ctx context.Context) ([]model.JournalEntry, error) {
	return j.query(ctx, querysql.Builder().Select(columns...).From(table).OrderBy("seq ASC", "date ASC", "id ASC"))
}

// FirstUploadChunk returns the next entries to upload, at most n when
// n > 0. A BULK_INSERT entry is always sent alone: when the journal starts
// with one, the chunk is just that entry; otherwise the chunk stops before
// the first bulk entry.
func (j *Journal) FirstUploadChunk(ctx context.Context, n int) ([]model.JournalEntry, error) {
	all, err := j.List(ctx)
	if err != nil {
		return nil, err
	}
	return uploadChunk(all, n), nil
}

func uploadChunk(entries []model.JournalEntry, n int) []model.JournalEntry {
	if len(entries) == 0 {
		return nil
	}
	if entries[0].Type == model.JournalBulkInsert {
		return entries[:1]
	}
	end := len(entries)
	for i, e := range entries {
		if e.Type == model.JournalBulkInsert {
			end = i
			break
		}
	}
	if n > 0 && end > n {
		end = n
	}
	return entries[:end]
}

// DeleteByIDs removes entries after the remote authority acknowledged
// them.
func (j *Journal) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return j.store.InTx(ctx, func(tx *sql.Tx) error {
		for _, r := range store.Chunk(len(ids), 500) {
			query, args, err := querysql.Builder().Delete(table).Where(sq.Eq{"id": ids[r[0]:r[1]]}).ToSql()
			if err != nil {
				return fmt.Errorf("journal: build delete: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("journal: delete entries: %w", err)
			}
		}
		return nil
	})
}

// DeleteAll empties the journal.
func (j *Journal) DeleteAll(ctx context.Context) error {
	if _, err := j.store.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("journal: delete all: %w", err)
	}
	return nil
}

// Count returns the number of pending entries.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: count: %w", err)
	}
	return n, nil
}

func (j *Journal) query(ctx context.Context, b sq.SelectBuilder) ([]model.JournalEntry, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("journal: build query: %w", err)
	}
	rows, err := j.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []model.JournalEntry
	for rows.Next() {
		var (
			e                  model.JournalEntry
			linkID, body, bulk sql.NullString
			typ, date          string
		)
		if err := rows.Scan(&e.ID, &linkID, &typ, &date, &e.Seq, &body, &bulk); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.LinkID = linkID.String
		e.Type = model.JournalType(typ)
		e.BulkInsertFile = bulk.String
		if body.Valid && body.String != "" {
			e.Body = json.RawMessage(body.String)
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("journal: entry %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// parseDate accepts RFC 3339 and the SQLite datetime form older stores
// wrote.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
