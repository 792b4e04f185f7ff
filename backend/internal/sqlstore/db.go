// Package sqlstore is the embedded SQLite implementation of state.Store.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"tablegraph/backend/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS dataset_rows (
	id              TEXT PRIMARY KEY,
	table_name      TEXT NOT NULL,
	row_data        TEXT NOT NULL,
	tags            TEXT NOT NULL,
	tags_overridden INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS relationships (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	from_table  TEXT NOT NULL,
	from_row_id TEXT NOT NULL,
	from_column TEXT NOT NULL,
	from_value  TEXT NOT NULL,
	to_table    TEXT NOT NULL,
	to_row_id   TEXT NOT NULL,
	to_column   TEXT NOT NULL,
	to_value    TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_relationships_from_row ON relationships(from_row_id);
CREATE INDEX IF NOT EXISTS idx_relationships_to_row ON relationships(to_row_id);
CREATE INDEX IF NOT EXISTS idx_rows_created ON dataset_rows(created_at);
`

// Store wraps a SQLite database connection
type Store struct {
	conn   *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens a SQLite database with WAL mode and creates the schema
func Open(ctx context.Context, path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection keeps every statement on the same database handle,
	// which also makes ":memory:" usable
	conn.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	s := New(conn)
	if err := s.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection without touching the schema
func New(conn *sql.DB) *Store {
	return &Store{
		conn:   conn,
		logger: logger.Named("sqlstore"),
		now:    time.Now,
	}
}

// Migrate creates the tables and indexes if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close()
}
