package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/internal/service"
	"github.com/onurcolak/waapi-campaign-service/pkg/response"
	"github.com/onurcolak/waapi-campaign-service/pkg/validator"
)

type campaignService interface {
	Create(ctx context.Context, in service.CampaignInput) (*domain.Campaign, error)
	GetAll(ctx context.Context, page, pageSize int) ([]domain.Campaign, int64, error)
	Get(ctx context.Context, id int64) (*domain.Campaign, error)
	GetProgress(ctx context.Context, id int64) (*domain.Progress, error)
	Delete(ctx context.Context, id int64) error
	StartSend(ctx context.Context, id int64) (*service.SendStarted, error)
	GetStats(ctx context.Context) (*domain.DashboardStats, error)
}

type CampaignHandler struct {
	service campaignService
}

func NewCampaignHandler(service campaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

type CreateCampaignRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Message     string `json:"message" validate:"max=4096"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=text media"`
	MediaURL    string `json:"mediaUrl" validate:"required_if=MessageType media,omitempty,url"`
	SenderID    int64  `json:"senderId" validate:"required,gt=0"`
	ListID      int64  `json:"listId" validate:"required,gt=0"`
}

// GetCampaigns godoc
// @Summary List campaigns
// @Description Retrieves a paginated list of campaigns, newest first
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) GetCampaigns(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaigns, totalCount, err := h.service.GetAll(c.Request().Context(), page, pageSize)
	if err != nil {
		return respondError(c, err)
	}

	return response.Paginated(c, campaigns, page, pageSize, totalCount)
}

// CreateCampaign godoc
// @Summary Create a campaign
// @Description Creates a draft campaign for a sender and contact list
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param campaign body CreateCampaignRequest true "Campaign to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c echo.Context) error {
	var req CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	campaign, err := h.service.Create(c.Request().Context(), service.CampaignInput{
		Title:       req.Title,
		Message:     req.Message,
		MessageType: domain.MessageType(req.MessageType),
		MediaURL:    req.MediaURL,
		SenderID:    req.SenderID,
		ListID:      req.ListID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return response.Created(c, "Campaign created successfully", campaign)
}

// GetCampaign godoc
// @Summary Get a campaign
// @Description Returns a campaign with its delivery logs
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, campaign)
}

// GetCampaignProgress godoc
// @Summary Get campaign progress
// @Description Returns counters of a campaign, served from cache while it is sending
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/progress [get]
func (h *CampaignHandler) GetCampaignProgress(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	progress, err := h.service.GetProgress(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, progress)
}

// DeleteCampaign godoc
// @Summary Delete a campaign
// @Description Deletes a campaign that is not currently sending
// @Tags campaigns
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	return response.NoContent(c)
}

// SendCampaign godoc
// @Summary Start sending a campaign
// @Description Moves a draft campaign to sending and dispatches it in the background
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 202 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/send [post]
func (h *CampaignHandler) SendCampaign(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	started, err := h.service.StartSend(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Accepted(c, "Campaign sending started", started)
}

// GetDashboardStats godoc
// @Summary Dashboard statistics
// @Description Returns sender, list, contact and campaign totals
// @Tags dashboard
// @Produce json
// @Param x-api-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dashboard/stats [get]
func (h *CampaignHandler) GetDashboardStats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, stats)
}
