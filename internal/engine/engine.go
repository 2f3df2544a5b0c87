// Package engine implements the poller: fetch the featured listing, diff it
// against the persisted checkpoint, and announce new items through the
// notification sinks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/donaldgifford/item-notifier/internal/catalog"
	"github.com/donaldgifford/item-notifier/internal/metrics"
	"github.com/donaldgifford/item-notifier/internal/notify"
	"github.com/donaldgifford/item-notifier/internal/state"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// Notification text.
const (
	NotificationTitle = "New Item Available!"
	notificationBody  = "Press this notification to be redirected to %s."
)

var (
	// ErrCycleInProgress is returned by Poll when another cycle is running.
	ErrCycleInProgress = errors.New("poll cycle already in progress")
	// ErrStopped is returned by Poll after Stop.
	ErrStopped = errors.New("engine stopped")
	// ErrInvalidItemID is returned by SetState for an empty id.
	ErrInvalidItemID = errors.New("item id must not be empty")
)

var tracer = otel.Tracer("github.com/donaldgifford/item-notifier/internal/engine")

// ItemURLFunc builds the click-through URL for an item.
type ItemURLFunc func(id domain.ItemID, name string) string

// Status is a point-in-time view of the engine.
type Status struct {
	LastSeenItemID domain.ItemID       `json:"last_seen_item_id,omitempty"`
	HasCheckpoint  bool                `json:"has_checkpoint"`
	Policy         domain.NotifyPolicy `json:"policy"`
	LastPollAt     time.Time           `json:"last_poll_at,omitzero"`
	LastError      string              `json:"last_error,omitempty"`
	Polls          int64               `json:"polls"`
	Notified       int64               `json:"notified"`
	Running        bool                `json:"running"`
}

// Engine runs poll cycles. One cycle runs at a time; enrichment and delivery
// of detected items happen on background goroutines that Wait and Stop
// drain.
type Engine struct {
	source   catalog.Source
	details  catalog.DetailFetcher
	notifier notify.Notifier
	store    state.Store
	log      *slog.Logger
	policy   domain.NotifyPolicy
	itemURL  ItemURLFunc
	meters   metric.MeterProvider
	inst     instruments

	running atomic.Bool
	// stateMu makes the checkpoint read-compare-write atomic and guards
	// policy.
	stateMu sync.Mutex

	life   context.Context //nolint:containedctx // lifetime of dispatched work
	cancel context.CancelFunc

	dispatchMu sync.Mutex
	stopped    bool
	wg         sync.WaitGroup

	statsMu    sync.Mutex
	lastPollAt time.Time
	lastErr    error
	polls      int64
	notified   int64
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithPolicy selects how many notifications a cycle may emit.
func WithPolicy(p domain.NotifyPolicy) EngineOption {
	return func(e *Engine) {
		if p.Valid() {
			e.policy = p
		}
	}
}

// WithItemURL sets the click-through URL builder.
func WithItemURL(f ItemURLFunc) EngineOption {
	return func(e *Engine) {
		if f != nil {
			e.itemURL = f
		}
	}
}

// WithMeterProvider sets the OTel meter provider. The default is the global
// provider.
func WithMeterProvider(mp metric.MeterProvider) EngineOption {
	return func(e *Engine) {
		if mp != nil {
			e.meters = mp
		}
	}
}

// NewEngine creates a new Engine with injected dependencies. A nil details
// fetcher always yields the placeholder detail.
func NewEngine(
	src catalog.Source,
	details catalog.DetailFetcher,
	n notify.Notifier,
	s state.Store,
	opts ...EngineOption,
) *Engine {
	if details == nil {
		details = catalog.FallbackFetcher{}
	}
	e := &Engine{
		source:   src,
		details:  details,
		notifier: n,
		store:    s,
		log:      slog.Default(),
		policy:   domain.PolicyMostRecentOnly,
		meters:   otel.GetMeterProvider(),
		itemURL: func(id domain.ItemID, name string) string {
			return catalog.ItemPageURL("", "", id, name)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.inst = newInstruments(e.meters)
	e.life, e.cancel = context.WithCancel(context.Background())
	return e
}

// Policy returns the active notify policy.
func (e *Engine) Policy() domain.NotifyPolicy {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.policy
}

// SetPolicy switches the notify policy. It takes effect from the next diff.
func (e *Engine) SetPolicy(p domain.NotifyPolicy) error {
	if !p.Valid() {
		return fmt.Errorf("unknown notify policy %q", p)
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.policy != p {
		e.log.Info("notify policy changed", "policy", p)
	}
	e.policy = p
	return nil
}

// Poll runs one cycle: fetch the listing, diff it against the checkpoint,
// persist the new checkpoint and dispatch notifications. Failures are
// logged, counted and returned; they never touch the checkpoint. A call made
// while another cycle is running returns ErrCycleInProgress immediately.
func (e *Engine) Poll(ctx context.Context) error {
	if e.life.Err() != nil {
		return ErrStopped
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrCycleInProgress
	}
	defer e.running.Store(false)

	// Stop aborts an in-flight cycle.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unregister := context.AfterFunc(e.life, cancel)
	defer unregister()

	ctx, span := tracer.Start(ctx, "engine.Poll")
	defer span.End()

	start := time.Now()
	selected, err := e.poll(ctx)
	elapsed := time.Since(start).Seconds()
	metrics.PollDuration.Observe(elapsed)
	e.inst.recordPoll(ctx, elapsed, err)
	e.recordPoll(start, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.Int("items.new", len(selected)))
	if len(selected) > 0 {
		e.dispatch(selected)
	}
	return nil
}

func (e *Engine) poll(ctx context.Context) ([]domain.ItemSummary, error) {
	items, err := e.source.FetchFeatured(ctx)
	if e.life.Err() != nil {
		// The fetch resolved after shutdown; its result is discarded.
		return nil, ErrStopped
	}
	if err != nil {
		kind := catalog.ErrorKind(err)
		metrics.PollErrorsTotal.WithLabelValues(kind).Inc()
		e.log.Warn("fetching featured items failed", "kind", kind, "error", err)
		return nil, fmt.Errorf("fetching featured items: %w", err)
	}
	metrics.PollsTotal.Inc()

	if len(items) == 0 {
		e.log.Debug("featured listing is empty")
		return nil, nil
	}

	selected, err := e.diff(ctx, items)
	if err != nil {
		metrics.PollErrorsTotal.WithLabelValues("state").Inc()
		e.log.Error("updating checkpoint failed", "error", err)
		return nil, err
	}
	return selected, nil
}

// diff selects the items to announce and persists the new checkpoint before
// returning them. The checkpoint never moves backwards.
func (e *Engine) diff(ctx context.Context, items []domain.ItemSummary) ([]domain.ItemSummary, error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	last, ok, err := e.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	selected := selectNew(items, last, ok, e.policy)
	if len(selected) == 0 {
		return nil, nil
	}

	newest := selected[0].ID
	for _, it := range selected[1:] {
		if it.ID.Greater(newest) {
			newest = it.ID
		}
	}

	if err := e.store.Set(ctx, newest); err != nil {
		return nil, fmt.Errorf("persisting checkpoint %s: %w", newest, err)
	}
	setCheckpointGauge(newest)
	metrics.ItemsDetectedTotal.Add(float64(len(selected)))
	e.inst.itemsDetected.Add(ctx, int64(len(selected)))

	e.log.Info("new items detected",
		"count", len(selected),
		"previous_item_id", last,
		"item_id", newest,
	)
	return selected, nil
}

// selectNew applies policy to a listing whose index 0 is the most recent
// item. Without a prior checkpoint only the most recent item is selected.
func selectNew(
	items []domain.ItemSummary,
	last domain.ItemID,
	hasLast bool,
	policy domain.NotifyPolicy,
) []domain.ItemSummary {
	if !hasLast {
		return items[:1]
	}

	if policy != domain.PolicyAllUnseen {
		if items[0].ID.Greater(last) {
			return items[:1]
		}
		return nil
	}

	seen := make(map[domain.ItemID]struct{}, len(items))
	var selected []domain.ItemSummary
	for _, it := range items {
		if _, dup := seen[it.ID]; dup || !it.ID.Greater(last) {
			continue
		}
		seen[it.ID] = struct{}{}
		selected = append(selected, it)
	}
	slices.SortStableFunc(selected, func(a, b domain.ItemSummary) int {
		return a.ID.Compare(b.ID)
	})
	return selected
}

// dispatch enriches and announces items in order on a tracked goroutine.
func (e *Engine) dispatch(items []domain.ItemSummary) {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()
	if e.stopped {
		metrics.NotificationsDiscardedTotal.Add(float64(len(items)))
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for _, it := range items {
			e.announce(it)
		}
	}()
}

func (e *Engine) announce(item domain.ItemSummary) {
	ctx := e.life
	if ctx.Err() != nil {
		metrics.NotificationsDiscardedTotal.Inc()
		return
	}

	detail := e.fetchDetail(ctx, item)
	if ctx.Err() != nil {
		e.log.Debug("discarding notification after stop", "item_id", item.ID)
		metrics.NotificationsDiscardedTotal.Inc()
		return
	}

	e.notify(ctx, item, detail)
}

// fetchDetail never fails; errors degrade to the placeholder detail.
func (e *Engine) fetchDetail(ctx context.Context, item domain.ItemSummary) domain.ItemDetail {
	detail, err := e.details.FetchDetail(ctx, item)
	if err != nil {
		if ctx.Err() == nil {
			e.log.Warn("fetching item detail failed, using placeholder",
				"item_id", item.ID,
				"kind", catalog.ErrorKind(err),
				"error", err,
			)
		}
		metrics.DetailFallbacksTotal.Inc()
		return domain.FallbackDetail()
	}
	if detail.Name == "" {
		detail.Name = domain.UnknownItemName
	}
	return detail
}

func (e *Engine) notify(ctx context.Context, item domain.ItemSummary, detail domain.ItemDetail) {
	name := item.Name
	if name == "" && detail.Name != domain.UnknownItemName {
		name = detail.Name
	}

	n := &notify.Notification{
		ItemID:   item.ID,
		Title:    NotificationTitle,
		Body:     fmt.Sprintf(notificationBody, detail.Name),
		IconURL:  detail.ImageURL,
		ClickURL: e.itemURL(item.ID, name),
		Detail:   detail,
	}

	var partial *notify.PartialDeliveryError
	err := e.notifier.Notify(ctx, n)
	switch {
	case err == nil:
		e.inst.recordNotification(ctx, outcomeOK)
	case errors.As(err, &partial):
		// Delivered to at least one sink.
		e.inst.recordNotification(ctx, outcomePartial)
		e.log.Warn("notification not delivered to every sink",
			"item_id", item.ID,
			"delivered", partial.Delivered,
			"error", partial.Err,
		)
	default:
		e.inst.recordNotification(ctx, outcomeError)
		e.log.Error("sending notification failed", "item_id", item.ID, "error", err)
		return
	}

	e.statsMu.Lock()
	e.notified++
	e.statsMu.Unlock()
	e.log.Info("notification sent", "item_id", item.ID, "name", detail.Name, "click_url", n.ClickURL)
}

// Wait blocks until every dispatched notification has been delivered or
// discarded.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Stop cancels in-flight work and waits for dispatched goroutines to exit.
// No notification is delivered after Stop returns. Stop is idempotent.
func (e *Engine) Stop() {
	e.dispatchMu.Lock()
	if e.stopped {
		e.dispatchMu.Unlock()
		return
	}
	e.stopped = true
	e.cancel()
	e.dispatchMu.Unlock()

	e.wg.Wait()
}

// Status reports the checkpoint and cycle counters.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	id, ok, err := e.store.Get(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("reading checkpoint: %w", err)
	}
	policy := e.Policy()

	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	st := Status{
		LastSeenItemID: id,
		HasCheckpoint:  ok,
		Policy:         policy,
		LastPollAt:     e.lastPollAt,
		Polls:          e.polls,
		Notified:       e.notified,
		Running:        e.running.Load(),
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st, nil
}

// SetState overwrites the checkpoint. It is an operator override and may
// move the checkpoint backwards, e.g. to replay an announcement.
func (e *Engine) SetState(ctx context.Context, id domain.ItemID) error {
	if id.IsZero() {
		return ErrInvalidItemID
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if err := e.store.Set(ctx, id); err != nil {
		return fmt.Errorf("persisting checkpoint: %w", err)
	}
	setCheckpointGauge(id)
	e.log.Info("checkpoint set by operator", "item_id", id)
	return nil
}

// ResetState clears the checkpoint; the next cycle behaves like a first run.
func (e *Engine) ResetState(ctx context.Context) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if err := e.store.Reset(ctx); err != nil {
		return fmt.Errorf("clearing checkpoint: %w", err)
	}
	metrics.LastSeenItemID.Set(0)
	e.log.Info("checkpoint reset by operator")
	return nil
}

func (e *Engine) recordPoll(at time.Time, err error) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.lastPollAt = at
	e.polls++
	e.lastErr = err
}

func setCheckpointGauge(id domain.ItemID) {
	if !id.IsNumeric() {
		metrics.LastSeenItemID.Set(0)
		return
	}
	v, err := strconv.ParseFloat(id.String(), 64)
	if err != nil {
		v = 0
	}
	metrics.LastSeenItemID.Set(v)
}
