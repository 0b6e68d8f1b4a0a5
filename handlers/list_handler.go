package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/pkg/response"
	"github.com/onurcolak/waapi-campaign-service/pkg/validator"
)

// maxImportSize caps the uploaded CSV at 5 MiB.
const maxImportSize = 5 << 20

type listService interface {
	GetLists(ctx context.Context) ([]domain.List, error)
	GetList(ctx context.Context, id int64) (*domain.List, error)
	CreateList(ctx context.Context, name, description string) (*domain.List, error)
	UpdateList(ctx context.Context, id int64, name, description string) (*domain.List, error)
	DeleteList(ctx context.Context, id int64) error
	GetContacts(ctx context.Context, listID int64) ([]domain.Contact, error)
	AddContact(ctx context.Context, listID int64, name, phone string) (*domain.Contact, error)
	GetContact(ctx context.Context, id int64) (*domain.Contact, error)
	UpdateContact(ctx context.Context, id, listID int64, name, phone string) (*domain.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
	ImportCSV(ctx context.Context, listID int64, r io.Reader) (*domain.ImportResult, error)
}

type ListHandler struct {
	service listService
}

func NewListHandler(service listService) *ListHandler {
	return &ListHandler{service: service}
}

type CreateListRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
}

type CreateContactRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"required,phone"`
}

type UpdateContactRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Phone  string `json:"phone" validate:"required,phone"`
	ListID int64  `json:"listId" validate:"required,gt=0"`
}

// GetLists godoc
// @Summary List contact lists
// @Tags lists
// @Produce json
// @Param x-api-key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/lists [get]
func (h *ListHandler) GetLists(c echo.Context) error {
	lists, err := h.service.GetLists(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, lists)
}

// CreateList godoc
// @Summary Create a contact list
// @Tags lists
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param list body CreateListRequest true "List to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/lists [post]
func (h *ListHandler) CreateList(c echo.Context) error {
	var req CreateListRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	list, err := h.service.CreateList(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return respondError(c, err)
	}

	return response.Created(c, "List created successfully", list)
}

// GetList godoc
// @Summary Get a contact list
// @Tags lists
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "List ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/lists/{id} [get]
func (h *ListHandler) GetList(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	list, err := h.service.GetList(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, list)
}

// UpdateList godoc
// @Summary Update a contact list
// @Description Renames a list and replaces its description
// @Tags lists
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "List ID"
// @Param list body CreateListRequest true "List fields"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/lists/{id} [put]
func (h *ListHandler) UpdateList(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req CreateListRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	list, err := h.service.UpdateList(c.Request().Context(), id, req.Name, req.Description)
	if err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "List updated successfully", list)
}

// DeleteList godoc
// @Summary Delete a contact list
// @Description Deletes a list together with its contacts
// @Tags lists
// @Param x-api-key header string true "API key"
// @Param id path int true "List ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/lists/{id} [delete]
func (h *ListHandler) DeleteList(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.DeleteList(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	return response.NoContent(c)
}

// GetContacts godoc
// @Summary List contacts of a list
// @Tags lists
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "List ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/lists/{id}/contacts [get]
func (h *ListHandler) GetContacts(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	contacts, err := h.service.GetContacts(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, contacts)
}

// AddContact godoc
// @Summary Add a contact to a list
// @Tags lists
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "List ID"
// @Param contact body CreateContactRequest true "Contact to add"
// @Success 201 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/lists/{id}/contacts [post]
func (h *ListHandler) AddContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req CreateContactRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	contact, err := h.service.AddContact(c.Request().Context(), id, req.Name, req.Phone)
	if err != nil {
		return respondError(c, err)
	}

	return response.Created(c, "Contact added successfully", contact)
}

// GetContact godoc
// @Summary Get a contact
// @Tags contacts
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Contact ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/contacts/{id} [get]
func (h *ListHandler) GetContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	contact, err := h.service.GetContact(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, contact)
}

// UpdateContact godoc
// @Summary Update a contact
// @Description Replaces name and phone; listId may move the contact to another list
// @Tags contacts
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Contact ID"
// @Param contact body UpdateContactRequest true "Contact fields"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/contacts/{id} [put]
func (h *ListHandler) UpdateContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req UpdateContactRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	contact, err := h.service.UpdateContact(c.Request().Context(), id, req.ListID, req.Name, req.Phone)
	if err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Contact updated successfully", contact)
}

// DeleteContact godoc
// @Summary Delete a contact
// @Tags contacts
// @Param x-api-key header string true "API key"
// @Param id path int true "Contact ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/contacts/{id} [delete]
func (h *ListHandler) DeleteContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.DeleteContact(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	return response.NoContent(c)
}

// ImportContacts godoc
// @Summary Import contacts from CSV
// @Description Accepts a multipart "file" with a name,phone header row
// @Tags lists
// @Accept multipart/form-data
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "List ID"
// @Param file formData file true "CSV file"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/lists/{id}/contacts/import [post]
func (h *ListHandler) ImportContacts(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return response.BadRequestWithMessage(c, "CSV file is required in the 'file' field")
	}
	if header.Size > maxImportSize {
		return response.BadRequest(c, fmt.Errorf("file exceeds %d bytes", maxImportSize))
	}

	file, err := header.Open()
	if err != nil {
		return response.BadRequest(c, err)
	}
	defer file.Close()

	result, err := h.service.ImportCSV(c.Request().Context(), id, file)
	if err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, fmt.Sprintf("Imported %d contacts", result.Imported), result)
}
