package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/item-notifier/internal/engine"
)

// Poller runs a single poll cycle.
type Poller interface {
	Poll(ctx context.Context) error
}

// PollHandler handles manual poll triggers.
type PollHandler struct {
	poller Poller
}

// NewPollHandler creates a new PollHandler.
func NewPollHandler(p Poller) *PollHandler {
	return &PollHandler{poller: p}
}

// PollOutput is the response body for the poll endpoint.
type PollOutput struct {
	Body struct {
		Status string `json:"status" example:"poll completed" doc:"Poll status"`
	}
}

// Poll runs one cycle now. It never queues behind a running cycle: an
// overlapping request gets 409. Notifications are dispatched asynchronously,
// so success means the checkpoint was updated, not that sinks were reached.
func (h *PollHandler) Poll(ctx context.Context, _ *struct{}) (*PollOutput, error) {
	if err := h.poller.Poll(ctx); err != nil {
		switch {
		case errors.Is(err, engine.ErrCycleInProgress):
			return nil, huma.Error409Conflict("a poll cycle is already in progress")
		case errors.Is(err, engine.ErrStopped):
			return nil, huma.Error503ServiceUnavailable("notifier is shutting down")
		default:
			return nil, huma.Error502BadGateway("poll failed: " + err.Error())
		}
	}

	resp := &PollOutput{}
	resp.Body.Status = "poll completed"
	return resp, nil
}

// RegisterPollRoutes registers the poll trigger with the Huma API.
func RegisterPollRoutes(api huma.API, h *PollHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-poll",
		Method:      http.MethodPost,
		Path:        "/api/v1/poll",
		Summary:     "Trigger a poll cycle",
		Description: "Fetches the featured listing, diffs it against the checkpoint " +
			"and dispatches notifications for new items.",
		Tags: []string{"poll"},
		Errors: []int{
			http.StatusConflict,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
		},
	}, h.Poll)
}
