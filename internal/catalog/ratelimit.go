package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrDailyLimitReached is returned when the daily request budget is spent.
var ErrDailyLimitReached = errors.New("daily catalog request limit reached")

// RateLimiter paces requests against the catalog site. A token bucket bounds
// the per-second rate; an optional rolling 24-hour budget caps total volume.
type RateLimiter struct {
	limiter  *rate.Limiter
	count    atomic.Int64
	maxDaily int64 // 0 means unlimited

	mu      sync.Mutex
	resetAt time.Time
	nowFunc func() time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithDailyLimit caps the number of requests per rolling 24-hour window.
func WithDailyLimit(n int64) RateLimiterOption {
	return func(r *RateLimiter) {
		r.maxDaily = n
	}
}

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter creates a limiter allowing perSecond requests with the given
// burst. A non-positive perSecond disables pacing.
func NewRateLimiter(perSecond float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	r := &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.resetAt = r.nowFunc().Add(24 * time.Hour)
	return r
}

// Wait blocks until a request may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.checkDailyReset()

	if r.maxDaily > 0 && r.count.Load() >= r.maxDaily {
		return fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, r.count.Load(), r.maxDaily)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	r.count.Add(1)
	return nil
}

// Count returns the number of requests admitted in the current window.
func (r *RateLimiter) Count() int64 {
	r.checkDailyReset()
	return r.count.Load()
}

// DailyLimit returns the configured daily budget, 0 when unlimited.
func (r *RateLimiter) DailyLimit() int64 {
	return r.maxDaily
}

// ResetAt returns when the current 24-hour window expires.
func (r *RateLimiter) ResetAt() time.Time {
	r.checkDailyReset()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}

func (r *RateLimiter) checkDailyReset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	if now.After(r.resetAt) {
		r.count.Store(0)
		r.resetAt = now.Add(24 * time.Hour)
	}
}
