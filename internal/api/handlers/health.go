package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"dealer-inventory/internal/logging"
	"dealer-inventory/pkg/models"
	"dealer-inventory/pkg/utils"
)

// Version is reported by health endpoints; set at build time.
var Version = "1.0.0"

var startTime = time.Now()

// Check tests one dependency for readiness.
type Check func(ctx context.Context) error

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	logging.GetGlobalLogger().Debug("Health check requested")

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    utils.FormatDuration(time.Since(startTime)),
		Checks: map[string]string{
			"api": "ok",
		},
	})
}

// ReadinessHandler reports ready only when every check passes.
func ReadinessHandler(checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := map[string]string{"api": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logging.GetGlobalLogger().WithError(err).Warn("Readiness check failed", map[string]interface{}{"check": name})
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		response := models.HealthResponse{
			Status:    "ready",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    utils.FormatDuration(time.Since(startTime)),
			Checks:    results,
		}
		if status != http.StatusOK {
			response.Status = "not_ready"
		}
		return c.JSON(status, response)
	}
}

// LivenessHandler handles liveness check requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    utils.FormatDuration(time.Since(startTime)),
	})
}

// StatusHandler provides detailed service status including the cache.
func StatusHandler(svc InventoryService) echo.HandlerFunc {
	return func(c echo.Context) error {
		cache := svc.Status()

		checks := map[string]string{
			"api":                  "operational",
			"cache_state":          cache.State,
			"cache_listings":       strconv.Itoa(cache.Listings),
			"consecutive_failures": strconv.Itoa(cache.ConsecutiveFailures),
		}
		if cache.Refreshing {
			checks["refresh"] = "in_progress"
		}

		status := "operational"
		if cache.ConsecutiveFailures > 0 {
			status = "degraded"
		}

		return c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    utils.FormatDuration(time.Since(startTime)),
			Checks:    checks,
		})
	}
}
