// Package store persists the relational catalog (publishers, publications,
// articles, authors, scenarios) in SQLite.
//
// The store never touches the full-text index. The CRUD layer calls the
// index's upsert/delete after each successful commit, so an index failure can
// be reported without corrupting the relational data.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"
)

//go:embed sql/*.sql
var schemas embed.FS

var (
	// ErrNotFound indicates the requested record does not exist.
	// Callers should check for this to distinguish missing data from other errors.
	ErrNotFound = errors.New("record not found")
)

// Store provides access to the relational catalog.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle. The handle is shared with the search
// index; both live in the same SQLite file.
func New(sdb *sql.DB) *Store {
	return &Store{db: sdb}
}

// DB exposes the underlying connection for components that share the file
// (the full-text index).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Init creates tables and indexes if they don't exist. Safe to call multiple
// times; every statement uses IF NOT EXISTS.
func (s *Store) Init() error {
	entries, err := fs.ReadDir(schemas, "sql")
	if err != nil {
		return fmt.Errorf("read schema directory: %w", err)
	}
	// Numbered prefixes give deterministic execution order; sort to be explicit.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		data, err := schemas.ReadFile("sql/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec(string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows, enabling a single scan function
// to handle both single-row and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}

// now is stubbed in tests that need deterministic creation times.
var now = func() int64 { return time.Now().Unix() }

// text converts a nullable column to its Go string form.
func text(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullText converts an empty string to NULL for storage.
func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// notFound converts sql.ErrNoRows to ErrNotFound for consistent error handling.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireRow returns ErrNotFound when a mutation touched no rows.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
