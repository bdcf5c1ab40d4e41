package project

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/querysql"
	"github.com/roach88/aligner/internal/store"
)

// corporaTable is written through the corpus repository so that the
// languages a corpus references exist before it does.
const corporaTable = "corpora"

// corpusFromRow maps a generic corpora row onto a corpus. Its language
// is known by code only.
func corpusFromRow(row Row) (model.Corpus, error) {
	var c model.Corpus
	for col, v := range row {
		s := ""
		if v != nil {
			s = fmt.Sprint(v)
		}
		switch col {
		case "id":
			c.ID = s
		case "side":
			c.Side = model.Side(s)
		case "name":
			c.Name = s
		case "full_name":
			c.FullName = s
		case "file_name":
			c.FileName = s
		case "language_id":
			c.LanguageID = s
		default:
			return c, model.NewError(model.ErrCodeQueryInjectionRisk, "project.write",
				fmt.Sprintf("table %s has no column %q", corporaTable, col), nil)
		}
	}
	if c.ID == "" || !c.Side.Valid() {
		return c, fmt.Errorf("corpus row %v needs an id and a side", row)
	}
	if c.LanguageID != "" {
		c.Language = &model.Language{Code: c.LanguageID}
	}
	return c, nil
}

// tableColumns lists the columns of an allow-listed table.
func tableColumns(ctx context.Context, exec store.Executor, table string) (map[string]bool, error) {
	rows, err := exec.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()
	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("columns of %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// writeRows inserts rows into a generic table in chunks, all in one
// transaction. Column names must exist in the table. With upsert, rows
// whose id already exists are updated.
func writeRows(ctx context.Context, st *store.Store, name string, rows []Row, chunkSize int, upsert bool) error {
	table, err := querysql.Table(name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	known, err := tableColumns(ctx, st.DB(), table)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for col := range row {
			if !known[col] {
				return model.NewError(model.ErrCodeQueryInjectionRisk, "project.write",
					fmt.Sprintf("table %s has no column %q", table, col), nil)
			}
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	sort.Strings(columns)

	values := make([][]any, len(rows))
	for i, row := range rows {
		v := make([]any, len(columns))
		for j, col := range columns {
			v[j] = row[col]
		}
		values[i] = v
	}

	suffix := ""
	if upsert {
		suffix = upsertClause(table, columns)
	}
	return st.InTx(ctx, func(tx *sql.Tx) error {
		for _, span := range store.Chunk(len(values), chunkSize) {
			if err := store.InsertRows(ctx, tx, table, columns, values[span[0]:span[1]], suffix); err != nil {
				return err
			}
		}
		return nil
	})
}

// upsertClause is built only from validated column names.
func upsertClause(table string, columns []string) string {
	id := querysql.IDColumn(table)
	var sets []string
	for _, col := range columns {
		if col != id {
			sets = append(sets, col+" = excluded."+col)
		}
	}
	if len(sets) == 0 {
		return "ON CONFLICT(" + id + ") DO NOTHING"
	}
	return "ON CONFLICT(" + id + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// selectRows reads a generic table in id order.
func selectRows(ctx context.Context, st *store.Store, name string, where sq.Sqlizer, limit, skip int) ([]Row, error) {
	table, err := querysql.Table(name)
	if err != nil {
		return nil, err
	}
	q := querysql.Builder().Select("*").From(table).OrderBy(querysql.IDColumn(table))
	if where != nil {
		q = q.Where(where)
	}
	switch {
	case limit > 0:
		q = q.Limit(uint64(limit))
	case skip > 0:
		// SQLite accepts OFFSET only after LIMIT.
		q = q.Limit(math.MaxInt64)
	}
	if skip > 0 {
		q = q.Offset(uint64(skip))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}

	rows, err := st.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}

	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("select %s: %w", table, err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// deleteRows deletes from a generic table; a nil where deletes every row.
func deleteRows(ctx context.Context, st *store.Store, name string, where sq.Sqlizer) error {
	table, err := querysql.Table(name)
	if err != nil {
		return err
	}
	q := querysql.Builder().Delete(table)
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if _, err := st.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func idIn(table string, ids []string) sq.Sqlizer {
	return sq.Eq{querysql.IDColumn(table): ids}
}

func idBetween(table, from, to string) sq.Sqlizer {
	col := querysql.IDColumn(table)
	return sq.And{sq.GtOrEq{col: from}, sq.LtOrEq{col: to}}
}
