package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

const defaultPoolSize = 4

const (
	queryGetCheckpoint = `SELECT value FROM notifier_state WHERE key = $1`

	queryUpsertCheckpoint = `
		INSERT INTO notifier_state (key, value, updated_at)
		VALUES (@key, @value, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	queryDeleteCheckpoint = `DELETE FROM notifier_state WHERE key = $1`
)

// PostgresStore keeps the checkpoint in one row of a PostgreSQL table, for
// deployments where the daemon host has no durable disk.
type PostgresStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString, key string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if key == "" {
		key = DefaultKey
	}
	return &PostgresStore{pool: pool, key: key}, nil
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context) (domain.ItemID, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, queryGetCheckpoint, s.key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying checkpoint: %w", err)
	}
	return domain.ItemID(value), true, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, id domain.ItemID) error {
	args := pgx.NamedArgs{
		"key":   s.key,
		"value": id.String(),
	}
	if _, err := s.pool.Exec(ctx, queryUpsertCheckpoint, args); err != nil {
		return fmt.Errorf("upserting checkpoint: %w", err)
	}
	return nil
}

// Reset implements Store.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, queryDeleteCheckpoint, s.key); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
