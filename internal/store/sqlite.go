// ABOUTME: SQLite-backed store using modernc.org/sqlite with automatic schema creation
// ABOUTME: Owns the database file, pragmas, scoped transactions and reopen support for backups

package store

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

// SQLiteStore is the single embedded store for all labstock records.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates (or opens) the SQLite database at the given path.
// The schema is created if it doesn't exist. Parent directories are
// created if needed.
func Open(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := openHandle(path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// openHandle opens a database handle with the pragmas every connection needs.
func openHandle(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Referential integrity for batches -> chemicals/zones
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS chemicals (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			name               TEXT NOT NULL,
			formula            TEXT,
			cas_number         TEXT,
			manufacturer       TEXT,
			supplier           TEXT,
			purity             REAL NOT NULL DEFAULT 100.0,
			quantity           REAL NOT NULL DEFAULT 0.0,
			unit               TEXT NOT NULL DEFAULT 'g',
			hazard_class       INTEGER NOT NULL DEFAULT 3,
			storage_conditions TEXT,
			expiration_date    TEXT,
			arrival_date       TEXT,
			notes              TEXT,
			created_at         TEXT NOT NULL,

			CHECK (quantity >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_chemicals_name ON chemicals(name);

		CREATE TABLE IF NOT EXISTS storage_zones (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			name                TEXT NOT NULL,
			description         TEXT,
			temperature_min     REAL,
			temperature_max     REAL,
			humidity_min        REAL,
			humidity_max        REAL,
			lighting_conditions TEXT,
			security_level      INTEGER NOT NULL DEFAULT 1,
			max_capacity        REAL NOT NULL DEFAULT 1000.0,
			current_load        REAL NOT NULL DEFAULT 0.0,
			is_active           INTEGER NOT NULL DEFAULT 1,
			created_at          TEXT NOT NULL,

			CHECK (max_capacity > 0),
			CHECK (current_load >= 0)
		);

		CREATE TABLE IF NOT EXISTS batches (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			chemical_id INTEGER NOT NULL REFERENCES chemicals(id) ON DELETE CASCADE,
			zone_id     INTEGER NOT NULL REFERENCES storage_zones(id) ON DELETE CASCADE,
			quantity    REAL NOT NULL,
			notes       TEXT,
			placed_date TEXT NOT NULL,

			CHECK (quantity > 0)
		);

		CREATE INDEX IF NOT EXISTS idx_batches_chemical ON batches(chemical_id);
		CREATE INDEX IF NOT EXISTS idx_batches_zone ON batches(zone_id);

		CREATE TABLE IF NOT EXISTS backups (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			filename   TEXT NOT NULL,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			comment    TEXT,
			restored   INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS activity_log (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			detail TEXT,
			user   TEXT NOT NULL DEFAULT 'system',
			ts     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_activity_ts ON activity_log(ts DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Reopen re-establishes the database handle after Close. The backup manager
// closes the handle around file copies; every one of its exit paths calls
// Reopen so the store never stays unusable.
func (s *SQLiteStore) Reopen() error {
	db, err := openHandle(s.path)
	if err != nil {
		return err
	}
	s.db = db
	s.logger.Info("SQLite store reopened", "path", s.path)
	return nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back
// on error. Every multi-statement mutation goes through here.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// nullString returns nil for empty strings, otherwise the string itself.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullDate formats a date for storage, nil when the time is zero.
func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.DateOnly)
}

// parseDate parses a nullable stored date back into a time.Time.
func parseDate(s *string) time.Time {
	if s == nil || *s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, *s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
