package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/internal/service"
	"github.com/onurcolak/waapi-campaign-service/pkg/response"
	"github.com/onurcolak/waapi-campaign-service/pkg/validator"
)

type senderService interface {
	Create(ctx context.Context, in service.SenderInput) (*domain.Sender, error)
	Update(ctx context.Context, id int64, in service.SenderInput) (*domain.Sender, error)
	Get(ctx context.Context, id int64) (*domain.Sender, error)
	GetAll(ctx context.Context) ([]domain.Sender, error)
	Delete(ctx context.Context, id int64) error
	TestConnection(ctx context.Context, id int64) error
}

type SenderHandler struct {
	service senderService
}

func NewSenderHandler(service senderService) *SenderHandler {
	return &SenderHandler{service: service}
}

// SenderRequest creates or replaces a sender. InstanceID is detected from the
// token when omitted.
type SenderRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Token      string `json:"token" validate:"required"`
	InstanceID string `json:"instanceId" validate:"omitempty,max=64"`
}

func (r SenderRequest) input() service.SenderInput {
	return service.SenderInput{Name: r.Name, Token: r.Token, InstanceID: r.InstanceID}
}

// GetSenders godoc
// @Summary List senders
// @Tags senders
// @Produce json
// @Param x-api-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/senders [get]
func (h *SenderHandler) GetSenders(c echo.Context) error {
	senders, err := h.service.GetAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, senders)
}

// CreateSender godoc
// @Summary Create a sender
// @Description Stores a waapi credential, detecting the instance id and verifying it
// @Tags senders
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param sender body SenderRequest true "Sender to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/senders [post]
func (h *SenderHandler) CreateSender(c echo.Context) error {
	var req SenderRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	sender, err := h.service.Create(c.Request().Context(), req.input())
	if err != nil {
		return respondError(c, err)
	}

	return response.Created(c, "Sender created successfully", sender)
}

// GetSender godoc
// @Summary Get a sender
// @Tags senders
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Sender ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/senders/{id} [get]
func (h *SenderHandler) GetSender(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	sender, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, sender)
}

// UpdateSender godoc
// @Summary Update a sender
// @Description Replaces the sender credential and re-verifies it
// @Tags senders
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Sender ID"
// @Param sender body SenderRequest true "Sender fields"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/senders/{id} [put]
func (h *SenderHandler) UpdateSender(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req SenderRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	sender, err := h.service.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Sender updated successfully", sender)
}

// DeleteSender godoc
// @Summary Delete a sender
// @Tags senders
// @Param x-api-key header string true "API key"
// @Param id path int true "Sender ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/senders/{id} [delete]
func (h *SenderHandler) DeleteSender(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	return response.NoContent(c)
}

// TestSender godoc
// @Summary Test a sender connection
// @Description Probes the vendor with the stored credential
// @Tags senders
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Sender ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/senders/{id}/test [post]
func (h *SenderHandler) TestSender(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.TestConnection(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Connection successful", map[string]any{"connected": true})
}
