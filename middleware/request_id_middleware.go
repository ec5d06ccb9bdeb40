// ABOUTME: This file tags every request with an ID for log correlation
// ABOUTME: Inbound X-Request-ID headers are honored, otherwise a UUID is issued
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"bias-tracker/utils/logger"
)

// RequestIDHeader carries the request ID in and out of the service.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware stores the request ID in the request context so the
// logger can attach it to every line, and echoes it back to the caller.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := logger.WithRequestID(req.Context(), requestID)
			c.SetRequest(req.WithContext(ctx))

			c.Response().Header().Set(RequestIDHeader, requestID)

			return next(c)
		}
	}
}
