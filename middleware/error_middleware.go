// ABOUTME: Centralized error handling for the Echo server
// ABOUTME: Echo HTTP errors keep their status; everything else becomes a generic 500
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

// CustomHTTPErrorHandler converts handler errors into consistent JSON
// responses. Internal error details never reach the client.
func CustomHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ctx := c.Request().Context()

		status := http.StatusInternalServerError
		message := "internal server error"

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			}
		}

		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "request failed",
				"status", status,
				"path", c.Request().URL.Path,
				"error", err)
		}

		if writeErr := c.JSON(status, errorResponse{Error: message}); writeErr != nil {
			logger.ErrorContext(ctx, "failed to write error response", "error", writeErr)
		}
	}
}
