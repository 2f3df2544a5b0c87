package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/item-notifier/internal/engine"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// StateManager reads and overrides the last-seen checkpoint.
type StateManager interface {
	Status(ctx context.Context) (engine.Status, error)
	SetState(ctx context.Context, id domain.ItemID) error
	ResetState(ctx context.Context) error
}

// StateHandler handles /api/v1/state.
type StateHandler struct {
	engine StateManager
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(m StateManager) *StateHandler {
	return &StateHandler{engine: m}
}

// StateBody describes the checkpoint.
type StateBody struct {
	LastSeenItemID string `json:"last_seen_item_id,omitempty" example:"1183" doc:"Newest item already announced"`
	HasCheckpoint  bool   `json:"has_checkpoint" doc:"False until the first successful poll"`
}

// StateOutput is the response for GET and PUT /api/v1/state.
type StateOutput struct {
	Body StateBody
}

// SetStateInput is the request for PUT /api/v1/state.
type SetStateInput struct {
	Body struct {
		LastSeenItemID string `json:"last_seen_item_id" minLength:"1" example:"1183" doc:"Checkpoint to store"`
	}
}

// GetState returns the current checkpoint.
func (h *StateHandler) GetState(ctx context.Context, _ *struct{}) (*StateOutput, error) {
	st, err := h.engine.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read checkpoint: " + err.Error())
	}
	out := &StateOutput{}
	out.Body.LastSeenItemID = string(st.LastSeenItemID)
	out.Body.HasCheckpoint = st.HasCheckpoint
	return out, nil
}

// SetState overwrites the checkpoint. Moving it backwards replays
// announcements on the next cycle.
func (h *StateHandler) SetState(ctx context.Context, in *SetStateInput) (*StateOutput, error) {
	id := domain.ItemID(in.Body.LastSeenItemID)
	if err := h.engine.SetState(ctx, id); err != nil {
		if errors.Is(err, engine.ErrInvalidItemID) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, huma.Error500InternalServerError("failed to store checkpoint: " + err.Error())
	}
	out := &StateOutput{}
	out.Body.LastSeenItemID = string(id)
	out.Body.HasCheckpoint = true
	return out, nil
}

// ResetState clears the checkpoint.
func (h *StateHandler) ResetState(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := h.engine.ResetState(ctx); err != nil {
		return nil, huma.Error500InternalServerError("failed to clear checkpoint: " + err.Error())
	}
	return nil, nil
}

// RegisterStateRoutes registers the checkpoint routes on the Huma API.
func RegisterStateRoutes(api huma.API, h *StateHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/api/v1/state",
		Summary:     "Get checkpoint",
		Tags:        []string{"state"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.GetState)

	huma.Register(api, huma.Operation{
		OperationID: "set-state",
		Method:      http.MethodPut,
		Path:        "/api/v1/state",
		Summary:     "Set checkpoint",
		Description: "Overwrites the last-seen item ID. May move the checkpoint backwards.",
		Tags:        []string{"state"},
		Errors:      []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.SetState)

	huma.Register(api, huma.Operation{
		OperationID:   "reset-state",
		Method:        http.MethodDelete,
		Path:          "/api/v1/state",
		Summary:       "Reset checkpoint",
		Description:   "Clears the checkpoint; the next cycle behaves like a first run.",
		Tags:          []string{"state"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusInternalServerError},
	}, h.ResetState)
}
