// Package state persists the poller checkpoint: the id of the most recent
// item the user has already been told about. Every backend holds exactly one
// slot and all business logic depends on the Store interface, never on a
// concrete backend.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/donaldgifford/item-notifier/internal/config"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// DefaultKey names the checkpoint slot in keyed backends.
const DefaultKey = "lastSeenItemId"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("state store closed")

// Store is the single-slot checkpoint store.
type Store interface {
	// Get returns the stored id. ok is false when nothing has been stored.
	Get(ctx context.Context) (id domain.ItemID, ok bool, err error)
	// Set durably replaces the stored id.
	Set(ctx context.Context, id domain.ItemID) error
	// Reset clears the slot so the next Get reports no value.
	Reset(ctx context.Context) error
	Close() error
}

// Pinger is implemented by stores backed by a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open constructs the backend selected by cfg.
func Open(ctx context.Context, cfg config.StateConfig) (Store, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	switch cfg.Backend {
	case config.StateBackendMemory:
		return NewMemoryStore(), nil
	case config.StateBackendFile:
		return NewFileStore(cfg.Path)
	case config.StateBackendSQLite:
		return NewSQLiteStore(ctx, cfg.Path, key)
	case config.StateBackendPostgres:
		s, err := NewPostgresStore(ctx, cfg.DSN, key)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("migrating state database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
