package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed project.sql
var projectSQL string

//go:embed user.sql
var userSQL string

// Schema describes the tables of one kind of store file.
type Schema struct {
	Name       string
	SQL        string
	Version    int
	Migrations []Migration
}

// Migration upgrades a store from Version-1 to Version.
type Migration struct {
	Version int
	Apply   func(ctx context.Context, db *sql.DB) error
}

// Schema version tracking for project stores:
// 0 - Initial schema
// 1 - links.origin/links.status and journal_entries.seq for stores
//     seeded from templates that predate them
var ProjectSchema = Schema{
	Name:    "project",
	SQL:     projectSQL,
	Version: 1,
	Migrations: []Migration{
		{Version: 1, Apply: migrateProjectToV1},
	},
}

// UserSchema is the shared preferences store.
var UserSchema = Schema{
	Name:    "user",
	SQL:     userSQL,
	Version: 0,
}

// Store is one open SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens a project store at path.
func Open(path string) (*Store, error) {
	return OpenSchema(context.Background(), path, ProjectSchema)
}

// OpenSchema creates or opens a store at path and applies schema.
//
// The database is configured with:
//   - WAL journal and NORMAL synchronous mode; stores are single-writer
//     and rebuildable from their import sources
//   - an 8GB page cache ceiling (cache_size is in KiB when negative)
//   - 5-second busy timeout
//   - foreign key enforcement
func OpenSchema(ctx context.Context, path string, schema Schema) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: every statement and transaction is serialized, and
	// per-connection pragmas stay in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(ctx, db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply %s schema: %w", schema.Name, err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path is the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// Query executes a query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Exec executes a statement outside a transaction.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// Executor is satisfied by *sql.DB and *sql.Tx so repository helpers can
// run inside or outside a unit of work.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InTx runs fn in a transaction. Any error from fn, or a panic, rolls the
// whole unit of work back.
func (s *Store) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -8000000",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(ctx context.Context, db *sql.DB, schema Schema) error {
	version, err := userVersion(ctx, db)
	if err != nil {
		return err
	}

	// Migrations first: a template from an older release may hold tables
	// whose missing columns the schema's indexes refer to.
	for _, m := range schema.Migrations {
		if version >= m.Version {
			continue
		}
		if err := m.Apply(ctx, db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.Version, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema.SQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schema.Version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// migrateProjectToV1 adds link metadata and journal ordering columns to tables
// created before they existed. Fresh files have no tables yet and are
// left to the schema.
func migrateProjectToV1(ctx context.Context, db *sql.DB) error {
	adds := []struct {
		table, column, ddl string
	}{
		{"links", "origin", "ALTER TABLE links ADD COLUMN origin TEXT NOT NULL DEFAULT 'manual'"},
		{"links", "status", "ALTER TABLE links ADD COLUMN status TEXT NOT NULL DEFAULT 'CREATED'"},
		{"journal_entries", "seq", "ALTER TABLE journal_entries ADD COLUMN seq INTEGER NOT NULL DEFAULT 0"},
	}
	for _, a := range adds {
		exists, err := tableExists(ctx, db, a.table)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		has, err := columnExists(ctx, db, a.table, a.column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := db.ExecContext(ctx, a.ddl); err != nil {
			return fmt.Errorf("add %s.%s: %w", a.table, a.column, err)
		}
	}
	return nil
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", table, err)
	}
	return true, nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
