package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/onurcolak/waapi-campaign-service/pkg/waapi"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type vendorProbe interface {
	CheckServiceAvailability(ctx context.Context) waapi.Availability
}

// HealthHandler handles health checks.
type HealthHandler struct {
	db           *sqlx.DB
	redis        pinger
	vendor       vendorProbe
	checkTimeout time.Duration
}

// NewHealthHandler builds the health check. redisClient and vendor may be nil.
func NewHealthHandler(db *sqlx.DB, redisClient pinger, vendor vendorProbe) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redis:        redisClient,
		vendor:       vendor,
		checkTimeout: 5 * time.Second,
	}
}

// Health returns overall status and basic component statuses.
// @Summary Health check
// @Description Returns overall status with database, Redis and waapi reachability
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "down"
		overallStatus = "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		overallStatus = "down"
	}

	redisStatus := "disabled"
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "down"
			if overallStatus == "ok" {
				overallStatus = "degraded"
			}
		} else {
			redisStatus = "up"
		}
	}

	waapiComponent := map[string]any{"status": "disabled"}
	if h.vendor != nil {
		availability := h.vendor.CheckServiceAvailability(ctx)
		waapiComponent["message"] = availability.Message
		if availability.Available {
			waapiComponent["status"] = "up"
		} else {
			waapiComponent["status"] = "down"
			if overallStatus == "ok" {
				overallStatus = "degraded"
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"redis": map[string]any{
				"status": redisStatus,
			},
			"waapi": waapiComponent,
		},
	})
}
