package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"dealer-inventory/internal/api/handlers"
	"dealer-inventory/internal/api/middleware"
	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, svc handlers.InventoryService, logger logging.Logger, checks map[string]handlers.Check) {
	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.CORSConfig(cfg.Server.AllowOrigins))
	e.Use(middleware.TimeoutConfig(cfg.Server.RequestTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(checks))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Status route
	e.GET("/status", handlers.StatusHandler(svc))

	inventory := handlers.InventoryHandler(svc, logger)

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		v1.GET("/inventory", inventory)
		v1.GET("/inventory/status", handlers.CacheStatusHandler(svc))
	}

	// Unversioned alias kept for existing site widgets
	e.GET("/api/inventory", inventory)

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Dealer Inventory",
			"version": handlers.Version,
			"status":  "running",
		})
	})
}
