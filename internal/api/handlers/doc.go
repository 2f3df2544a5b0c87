// Package handlers implements the HTTP control surface for item-notifier:
// probes, status, manual polls and operator access to the checkpoint.
package handlers

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
