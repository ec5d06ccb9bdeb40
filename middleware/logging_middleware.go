// ABOUTME: This file provides HTTP access logging middleware
// ABOUTME: Logs request completion with status, size, and timing
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"bias-tracker/utils/logger"
)

func LoggingMiddleware(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			start := time.Now()

			ctx := logger.WithOperation(req.Context(), req.Method+" "+req.URL.Path)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			logger.WithContext(ctx, log).InfoContext(ctx, "request completed",
				"method", req.Method,
				"path", req.URL.Path,
				"status_code", res.Status,
				"response_size", res.Size,
				"ip_address", c.RealIP(),
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return err
		}
	}
}
