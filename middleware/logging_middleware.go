// Package middleware provides the HTTP middleware stack for the intel-agent
// server.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// LoggingMiddleware emits one access log line per request with timing and
// status information.
func LoggingMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			logger.Info("request completed",
				"method", req.Method,
				"path", req.URL.Path,
				"status_code", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip_address", c.RealIP(),
			)

			return err
		}
	}
}
