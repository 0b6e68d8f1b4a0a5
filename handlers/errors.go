package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
	"github.com/onurcolak/waapi-campaign-service/pkg/response"
)

// respondError maps service errors to HTTP responses.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		return response.Conflict(c, err)
	case errors.Is(err, domain.ErrSenderUnavailable), errors.Is(err, domain.ErrEmptyList):
		return response.BadRequest(c, err)
	case errors.Is(err, domain.ErrServiceUnavailable):
		return response.ServiceUnavailable(c, err)
	case errors.Is(err, domain.ErrValidation):
		return response.UnprocessableEntity(c, err)
	default:
		logger.Errorf("%s %s failed: %v", c.Request().Method, c.Path(), err)
		return response.InternalServerError(c, err)
	}
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
