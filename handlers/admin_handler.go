package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/internal/monitor"
	"github.com/onurcolak/waapi-campaign-service/pkg/response"
)

type senderMigrator interface {
	MigrateMissingInstanceIDs(ctx context.Context) (*domain.MigrationReport, error)
}

type runMonitor interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	GetStatus() monitor.Status
}

type AdminHandler struct {
	senders senderMigrator
	monitor runMonitor
	ctx     context.Context
}

// NewAdminHandler takes the application context so a monitor started over
// HTTP outlives the request that started it.
func NewAdminHandler(ctx context.Context, senders senderMigrator, mon runMonitor) *AdminHandler {
	return &AdminHandler{
		senders: senders,
		monitor: mon,
		ctx:     ctx,
	}
}

// MigrateSenders godoc
// @Summary Resolve missing sender instance ids
// @Description Detects and stores the instance id of every sender that has none
// @Tags admin
// @Produce json
// @Param x-api-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/admin/migrate-senders [post]
func (h *AdminHandler) MigrateSenders(c echo.Context) error {
	report, err := h.senders.MigrateMissingInstanceIDs(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Sender migration completed", report)
}

// GetMonitorStatus godoc
// @Summary Stale-run monitor status
// @Description Returns the monitor state and the campaigns it currently reports as stuck
// @Tags admin
// @Produce json
// @Param x-api-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/admin/monitor [get]
func (h *AdminHandler) GetMonitorStatus(c echo.Context) error {
	return response.Ok(c, h.monitor.GetStatus())
}

// StartMonitor godoc
// @Summary Start the stale-run monitor
// @Tags admin
// @Produce json
// @Param x-api-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/admin/monitor/start [post]
func (h *AdminHandler) StartMonitor(c echo.Context) error {
	if h.monitor.IsRunning() {
		return response.OkWithMessage(c, "Monitor is already running", h.monitor.GetStatus())
	}

	if err := h.monitor.Start(h.ctx); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Monitor started successfully", h.monitor.GetStatus())
}

// StopMonitor godoc
// @Summary Stop the stale-run monitor
// @Tags admin
// @Produce json
// @Param x-api-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/admin/monitor/stop [post]
func (h *AdminHandler) StopMonitor(c echo.Context) error {
	if !h.monitor.IsRunning() {
		return response.OkWithMessage(c, "Monitor is already stopped", h.monitor.GetStatus())
	}

	if err := h.monitor.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Monitor stopped successfully", h.monitor.GetStatus())
}
