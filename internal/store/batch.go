package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// maxVariables stays under SQLITE_MAX_VARIABLE_NUMBER of older builds.
const maxVariables = 999

// InsertRows writes rows into table with multi-row INSERT statements,
// splitting so no statement exceeds the bound-variable limit. suffix is
// appended verbatim (e.g. an ON CONFLICT clause) and must not contain
// caller input.
func InsertRows(ctx context.Context, exec Executor, table string, columns []string, rows [][]any, suffix string) error {
	if len(rows) == 0 {
		return nil
	}
	per := maxVariables / len(columns)
	if per < 1 {
		per = 1
	}
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		b := sq.Insert(table).Columns(columns...)
		for _, row := range rows[start:end] {
			if len(row) != len(columns) {
				return fmt.Errorf("insert %s: row has %d values, want %d", table, len(row), len(columns))
			}
			b = b.Values(row...)
		}
		if suffix != "" {
			b = b.Suffix(suffix)
		}
		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// Chunk splits n items into ranges of size. size <= 0 yields one range.
func Chunk(n, size int) [][2]int {
	if n == 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}
