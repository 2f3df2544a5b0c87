package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

const lockRetryDelay = 25 * time.Millisecond

// fileRecord is the on-disk layout of a FileStore.
type fileRecord struct {
	domain.NotifierState
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore keeps the checkpoint in a small JSON file. Writes go to a
// temporary file that is renamed over the target, so a crash never leaves a
// torn checkpoint. A sidecar lock file serializes access between processes
// sharing the path (the daemon and the state CLI).
type FileStore struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	closed bool
}

// NewFileStore creates a FileStore at path, creating its directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string { return s.path }

// Get implements Store.
func (s *FileStore) Get(ctx context.Context) (domain.ItemID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}

	if _, err := s.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return "", false, fmt.Errorf("locking state file: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck // best-effort release

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state file: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("decoding state file %s: %w", s.path, err)
	}
	if rec.LastSeenItemID.IsZero() {
		return "", false, nil
	}
	return rec.LastSeenItemID, true, nil
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, id domain.ItemID) error {
	rec := fileRecord{
		NotifierState: domain.NotifierState{LastSeenItemID: id},
		UpdatedAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return s.write(ctx, func() error { return writeAtomic(s.path, data) })
}

// Reset implements Store.
func (s *FileStore) Reset(ctx context.Context) error {
	return s.write(ctx, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing state file: %w", err)
		}
		return nil
	})
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.lock.Close()
}

func (s *FileStore) write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, err := s.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("locking state file: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck // best-effort release

	return fn()
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
