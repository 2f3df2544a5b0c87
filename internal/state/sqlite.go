package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS notifier_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// SQLiteStore keeps the checkpoint in one row of a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// NewSQLiteStore opens (or creates) the database at path. key names the row
// holding the checkpoint.
func NewSQLiteStore(ctx context.Context, path, key string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite state path is empty")
	}
	if key == "" {
		key = DefaultKey
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, key: key}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context) (domain.ItemID, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM notifier_state WHERE key = ?", s.key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query checkpoint: %w", err)
	}
	return domain.ItemID(value), true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, id domain.ItemID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifier_state (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, id.String(), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// Reset implements Store.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notifier_state WHERE key = ?", s.key); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
