package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"dealer-inventory/internal/api/handlers"
	"dealer-inventory/internal/api/routes"
	"dealer-inventory/internal/cache"
	"dealer-inventory/internal/config"
	"dealer-inventory/internal/extractor"
	"dealer-inventory/internal/fetcher"
	"dealer-inventory/internal/logging"
	"dealer-inventory/internal/service"
	"dealer-inventory/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting Dealer Inventory service", map[string]interface{}{
		"engine":    cfg.Fetcher.Engine,
		"upstreams": len(cfg.Upstream.URLs),
		"cache_ttl": cfg.Cache.TTL.String(),
	})

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create fetcher")
	}
	defer f.Close()

	checks := map[string]handlers.Check{}
	opts := []service.Option{}

	if cfg.Redis.Enabled {
		store, err := storage.NewRedisStore(cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create snapshot store")
		}
		defer store.Close()
		opts = append(opts, service.WithSnapshotStore(store))
		checks["redis"] = store.Ping
	}

	if cfg.Postgres.Enabled {
		archive, err := storage.NewPostgresArchive(context.Background(), cfg)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect listing archive")
		}
		defer archive.Close()
		if err := archive.EnsureSchema(context.Background()); err != nil {
			logger.WithError(err).Fatal("Failed to prepare listing archive")
		}
		opts = append(opts, service.WithArchive(archive))
		checks["postgres"] = archive.Ping
	}

	inventoryCache := cache.New(cfg.Cache.TTL, cfg.Cache.MaxBackoff)
	svc := service.New(cfg, f, extractor.New(cfg, logger), inventoryCache, logger, opts...)
	defer svc.Close()

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
	if err := svc.Warm(warmCtx); err != nil {
		logger.WithError(err).Warn("Starting with a cold cache")
	}
	cancelWarm()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	// Setup routes
	routes.SetupRoutes(e, cfg, svc, logger, checks)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error shutting down server")
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.WithField("address", address).Info("Server starting")

	if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
