package handlers_test

import (
	"context"
	"sync"
	"time"

	"github.com/donaldgifford/item-notifier/internal/engine"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// fakeEngine implements Poller, StatusProvider and StateManager.
type fakeEngine struct {
	mu        sync.Mutex
	status    engine.Status
	statusErr error
	pollErr   error
	setErr    error
	resetErr  error
	polls     int
	setIDs    []domain.ItemID
	resets    int
}

func (f *fakeEngine) Poll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.pollErr
}

func (f *fakeEngine) Status(context.Context) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeEngine) SetState(_ context.Context, id domain.ItemID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id.IsZero() {
		return engine.ErrInvalidItemID
	}
	if f.setErr != nil {
		return f.setErr
	}
	f.setIDs = append(f.setIDs, id)
	f.status.LastSeenItemID = id
	f.status.HasCheckpoint = true
	return nil
}

func (f *fakeEngine) ResetState(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resets++
	f.status.LastSeenItemID = ""
	f.status.HasCheckpoint = false
	return nil
}

type fakeSchedule struct {
	interval time.Duration
	next     time.Time
}

func (s fakeSchedule) Interval() time.Duration { return s.interval }
func (s fakeSchedule) NextRun() time.Time      { return s.next }

type fakeQuota struct {
	count   int64
	limit   int64
	resetAt time.Time
}

func (q fakeQuota) Count() int64       { return q.count }
func (q fakeQuota) DailyLimit() int64  { return q.limit }
func (q fakeQuota) ResetAt() time.Time { return q.resetAt }
