// Package storage is the ledger's persistence layer: a single embedded
// SQLite database holding users, purchases, the amendment overlay and the
// outbound email queue, plus the migration engine that evolves its schema.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the database. All mutating operations run inside a
// transaction scoped to the one logical operation; SQLite's own locking
// serializes the courier's writes against request-path writes.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// now is the store's clock; tests swap it to drive the email
	// rate-limit window.
	now func() time.Time
}

// Open opens (creating if necessary) the database at path and migrates it
// to the latest schema version.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// The store is single-writer; one connection keeps the foreign_keys
	// pragma effective and sidesteps SQLITE_BUSY between pooled conns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	engine := NewEngine(schemaMigrations, logger)
	if err := engine.ToLatest(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for the migration engine and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}
