package state

import (
	"context"
	"sync"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// MemoryStore keeps the checkpoint in process memory. It is lost on restart
// and exists for tests and one-shot runs.
type MemoryStore struct {
	mu     sync.RWMutex
	id     domain.ItemID
	set    bool
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (s *MemoryStore) Get(context.Context) (domain.ItemID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	return s.id, s.set, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, id domain.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.id, s.set = id, true
	return nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.id, s.set = "", false
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
