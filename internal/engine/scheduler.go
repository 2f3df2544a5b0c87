package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/item-notifier/internal/metrics"
)

// Scheduler fires poll cycles on a fixed interval. A tick that arrives while
// the previous cycle is still running is skipped, never queued.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	engine   *Engine
	log      *slog.Logger
	entryID  cron.EntryID
	interval time.Duration
}

// NewScheduler creates a Scheduler that polls eng every interval.
func NewScheduler(
	eng *Engine,
	interval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{
		cron:   c,
		engine: eng,
		log:    log,
	}
	if err := s.schedule(interval); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) schedule(interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("poll interval must be at least 1s (got %s)", interval)
	}
	s.entryID = s.cron.Schedule(fixedInterval(interval), cron.FuncJob(s.runPoll))
	s.interval = interval
	return nil
}

// fixedInterval is a cron.Schedule that keeps the full duration. cron.Every
// and "@every" round down to whole seconds.
type fixedInterval time.Duration

// Next returns t plus the interval.
func (d fixedInterval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// Start begins running scheduled polls.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "interval", s.Interval())
	s.cron.Start()
}

// Stop stops the timer, cancels the in-flight cycle and waits for it and
// all dispatched notifications to finish.
func (s *Scheduler) Stop() {
	s.log.Info("scheduler stopping")
	done := s.cron.Stop()
	s.engine.Stop()
	<-done.Done()
}

// SetInterval reschedules polling. The next tick fires one new interval
// from now.
func (s *Scheduler) SetInterval(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interval == s.interval {
		return nil
	}
	old := s.entryID
	if err := s.schedule(interval); err != nil {
		return err
	}
	s.cron.Remove(old)
	s.log.Info("poll interval changed", "interval", interval)
	return nil
}

// Interval returns the current poll interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// NextRun returns when the next tick fires; zero before Start.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	return s.cron.Entry(id).Next
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runPoll() {
	err := s.engine.Poll(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		metrics.TicksSkippedTotal.Inc()
		s.log.Debug("tick skipped, poll cycle in progress")
	case errors.Is(err, ErrStopped):
	default:
		// Already logged and counted by the engine; the timer keeps going.
		s.log.Debug("scheduled poll failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger and counts skipped ticks.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		metrics.TicksSkippedTotal.Inc()
		l.log.Debug("tick skipped, poll cycle in progress")
		return
	}
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
