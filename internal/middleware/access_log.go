package middleware

import (
	"strings"
	"time"

	"dmis/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AccessLog writes one structured line per request. Health, metrics and
// swagger GETs are skipped.
func AccessLog(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			if shouldSkipLogging(req.Method, req.URL.Path) {
				return err
			}

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("route", c.Path()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if userID, ok := common.GetUserIDFromContext(req.Context()); ok {
				fields = append(fields, zap.Stringer("actor_id", userID))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch {
			case status >= 500:
				logger.Error("request", fields...)
			case status >= 400 || isWrite(req.Method):
				logger.Info("request", fields...)
			default:
				logger.Debug("request", fields...)
			}
			return err
		}
	}
}

func isWrite(method string) bool {
	return method == "POST" || method == "PUT" || method == "PATCH" || method == "DELETE"
}

// shouldSkipLogging determines if a path should be skipped from logging
func shouldSkipLogging(method, path string) bool {
	if method != "GET" {
		return false
	}
	for _, prefix := range []string{"/health", "/metrics", "/swagger", "/favicon"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
