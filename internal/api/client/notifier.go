package client

import (
	"context"
	"time"
)

// EngineStatus mirrors the engine section of GET /api/v1/status.
type EngineStatus struct {
	LastSeenItemID string    `json:"last_seen_item_id,omitempty"`
	HasCheckpoint  bool      `json:"has_checkpoint"`
	Policy         string    `json:"policy"`
	LastPollAt     time.Time `json:"last_poll_at,omitzero"`
	LastError      string    `json:"last_error,omitempty"`
	Polls          int64     `json:"polls"`
	Notified       int64     `json:"notified"`
	Running        bool      `json:"running"`
}

// Schedule mirrors the schedule section of GET /api/v1/status.
type Schedule struct {
	Interval string    `json:"interval"`
	NextRun  time.Time `json:"next_run,omitzero"`
}

// RateLimit mirrors the rate_limit section of GET /api/v1/status.
type RateLimit struct {
	Requests   int64     `json:"requests"`
	DailyLimit int64     `json:"daily_limit"`
	ResetAt    time.Time `json:"reset_at"`
}

// Status is the response of GET /api/v1/status.
type Status struct {
	Engine    EngineStatus `json:"engine"`
	Schedule  *Schedule    `json:"schedule,omitempty"`
	RateLimit *RateLimit   `json:"rate_limit,omitempty"`
}

// State is the checkpoint as reported by /api/v1/state.
type State struct {
	LastSeenItemID string `json:"last_seen_item_id,omitempty"`
	HasCheckpoint  bool   `json:"has_checkpoint"`
}

// Status returns the notifier status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.get(ctx, "/api/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Poll triggers one poll cycle. Use IsConflict to detect an overlapping
// cycle.
func (c *Client) Poll(ctx context.Context) error {
	return c.post(ctx, "/api/v1/poll", nil, nil)
}

// GetState returns the checkpoint.
func (c *Client) GetState(ctx context.Context) (*State, error) {
	var st State
	if err := c.get(ctx, "/api/v1/state", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetState overwrites the checkpoint.
func (c *Client) SetState(ctx context.Context, id string) (*State, error) {
	req := map[string]string{"last_seen_item_id": id}
	var st State
	if err := c.put(ctx, "/api/v1/state", req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ResetState clears the checkpoint.
func (c *Client) ResetState(ctx context.Context) error {
	return c.del(ctx, "/api/v1/state", nil)
}
