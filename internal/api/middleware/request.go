package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"dealer-inventory/internal/logging"
	"dealer-inventory/pkg/utils"
)

// Headers used by the inventory API.
const (
	HeaderETag        = "ETag"
	HeaderIfNoneMatch = "If-None-Match"
	HeaderDataSource  = "X-Data-Source"
)

const requestIDKey = "request_id"

// RequestID assigns every request an ID, reusing a caller supplied
// X-Request-ID when present.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" || len(requestID) > 128 {
				requestID = utils.GenerateRequestID()
			}
			c.Set(requestIDKey, requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(c)
		}
	}
}

// GetRequestID returns the ID assigned by RequestID, or a fresh one.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(requestIDKey).(string); ok && id != "" {
		return id
	}
	return utils.GenerateRequestID()
}

// RequestLogger logs one line per request through logger.
func RequestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"request_id": GetRequestID(c),
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Round(time.Millisecond).Milliseconds(),
				"remote_ip":  v.RemoteIP,
				"source":     c.Response().Header().Get(HeaderDataSource),
			}
			if v.Error != nil {
				logger.WithError(v.Error).Warn("Request failed", fields)
				return nil
			}
			logger.Info("Request completed", fields)
			return nil
		},
	})
}
