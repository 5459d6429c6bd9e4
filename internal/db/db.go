// Package db provides SQLite connection management shared by the relational
// store and the full-text index.
//
// Design: WAL mode with a busy timeout balances concurrency and durability.
// WAL allows concurrent readers during writes, so searches keep working while
// the CRUD layer updates the catalog. The busy timeout prevents "database is
// locked" errors without waiting forever on a stuck connection.
package db

import (
	"context"
	"database/sql"
	"fmt"

	// Register sqlite driver
	_ "modernc.org/sqlite"
)

// Open opens the SQLite database file at path with the pragmas this
// application depends on. The caller owns the returned handle.
func Open(path string) (*sql.DB, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	pragmas := []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`PRAGMA synchronous=NORMAL`,
		// Cascading deletes on the association tables rely on this.
		`PRAGMA foreign_keys=ON`,
	}
	for _, pragma := range pragmas {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return sdb, nil
}

// Tx executes fn within a transaction, handling Begin/Commit/Rollback
// automatically. If fn returns an error the transaction is rolled back and
// the error is returned unchanged; otherwise the transaction is committed.
// Rollback is deferred so panics and early returns cannot leak an open
// transaction.
func Tx(ctx context.Context, sdb *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := sdb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
