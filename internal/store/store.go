// Package store persists feeds and their deduplicated entries in SQLite,
// via modernc.org/sqlite (a pure-Go driver, so the binary stays cgo-free).
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a *sql.DB opened against one SQLite file, with the schema
// this package owns already applied.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path, sets the
// pragmas the schema's invariants depend on, and applies any pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	// foreign_keys is required for the entries->feeds cascading delete;
	// SQLite does not enforce it by default and the pragma is per-connection.
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign_keys: %w", err)
	}
	// WAL lets the scheduler's per-feed goroutines write without blocking
	// readers serving the HTTP surface.
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
