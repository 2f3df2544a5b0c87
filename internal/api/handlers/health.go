package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/item-notifier/internal/state"
)

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	pinger state.Pinger
}

// NewHealthHandler creates a new HealthHandler. A nil pinger (for example
// the memory backend) makes Readyz always succeed.
func NewHealthHandler(p state.Pinger) *HealthHandler {
	return &HealthHandler{pinger: p}
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 if the state backend is reachable, 503 otherwise.
func (h *HealthHandler) Readyz(c echo.Context) error {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}

// RegisterHealthRoutes registers the probe endpoints on the Echo instance.
func RegisterHealthRoutes(e *echo.Echo, h *HealthHandler) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}
