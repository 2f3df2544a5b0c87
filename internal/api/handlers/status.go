package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/item-notifier/internal/engine"
)

// StatusProvider reports the engine's state.
type StatusProvider interface {
	Status(ctx context.Context) (engine.Status, error)
}

// ScheduleInfo reports the scheduler's timing. It is optional: a one-shot
// process has no schedule.
type ScheduleInfo interface {
	Interval() time.Duration
	NextRun() time.Time
}

// QuotaInfo reports catalog request usage against the daily budget.
type QuotaInfo interface {
	Count() int64
	DailyLimit() int64
	ResetAt() time.Time
}

// StatusHandler handles GET /api/v1/status.
type StatusHandler struct {
	engine StatusProvider
	sched  ScheduleInfo
	quota  QuotaInfo
}

// NewStatusHandler creates a StatusHandler. sched and quota may be nil.
func NewStatusHandler(e StatusProvider, sched ScheduleInfo, quota QuotaInfo) *StatusHandler {
	return &StatusHandler{engine: e, sched: sched, quota: quota}
}

// ScheduleStatus describes the poll timer.
type ScheduleStatus struct {
	Interval string    `json:"interval" example:"5s" doc:"Poll interval"`
	NextRun  time.Time `json:"next_run,omitzero" doc:"When the next tick fires"`
}

// RateLimitStatus describes catalog request usage in the current window.
type RateLimitStatus struct {
	Requests   int64     `json:"requests" doc:"Catalog requests admitted in the current 24h window"`
	DailyLimit int64     `json:"daily_limit" doc:"Daily request budget, 0 when unlimited"`
	ResetAt    time.Time `json:"reset_at" doc:"When the current window ends"`
}

// StatusBody is the response body for the status endpoint.
type StatusBody struct {
	Engine    engine.Status    `json:"engine"`
	Schedule  *ScheduleStatus  `json:"schedule,omitempty"`
	RateLimit *RateLimitStatus `json:"rate_limit,omitempty"`
}

// StatusOutput is the response for GET /api/v1/status.
type StatusOutput struct {
	Body StatusBody
}

// GetStatus returns the checkpoint, poll counters and schedule.
func (h *StatusHandler) GetStatus(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	st, err := h.engine.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read status: " + err.Error())
	}

	out := &StatusOutput{}
	out.Body.Engine = st
	if h.sched != nil {
		out.Body.Schedule = &ScheduleStatus{
			Interval: h.sched.Interval().String(),
			NextRun:  h.sched.NextRun(),
		}
	}
	if h.quota != nil {
		out.Body.RateLimit = &RateLimitStatus{
			Requests:   h.quota.Count(),
			DailyLimit: h.quota.DailyLimit(),
			ResetAt:    h.quota.ResetAt(),
		}
	}
	return out, nil
}

// RegisterStatusRoutes registers the status route on the Huma API.
func RegisterStatusRoutes(api huma.API, h *StatusHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Get notifier status",
		Description: "Returns the last-seen checkpoint, poll counters, the poll schedule and catalog request usage.",
		Tags:        []string{"status"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.GetStatus)
}
