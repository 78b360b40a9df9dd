package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/anonto42/dongne-market/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

const serviceName = "dongne-market-api"

// Pinger checks that the backing stores answer
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	backends Pinger
}

func NewHealthHandler(backends Pinger) *HealthHandler {
	return &HealthHandler{backends: backends}
}

// HealthCheck reports liveness only
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

// ReadyCheck fails while any backend is unreachable
func (h *HealthHandler) ReadyCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.backends.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("readiness check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "unavailable",
			"service": serviceName,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"service": serviceName,
	})
}
