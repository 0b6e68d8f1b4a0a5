package middlewares

import (
	"crypto/subtle"
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
	"github.com/onurcolak/waapi-campaign-service/pkg/response"
)

// APIKeyHeader carries the operator key. A bearer token in Authorization is
// accepted as well.
const APIKeyHeader = "x-api-key"

var errAPIKeyNotConfigured = errors.New("API key is not configured on the server")

// APIKeyAuth guards the operator API. Without a configured key every request
// is refused with 500 rather than served open.
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(c, errAPIKeyNotConfigured)
			}
		}
	}

	expected := []byte(apiKey)

	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + APIKeyHeader + ",header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), expected) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			logger.Debugf("Rejected %s %s: %v", c.Request().Method, c.Path(), err)
			return response.Unauthorized(c)
		},
	})
}
