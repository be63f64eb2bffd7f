package fetcher

import (
	"fmt"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
)

// SupportedEngines lists the values accepted by fetcher.engine.
func SupportedEngines() []string {
	return []string{"http", "browser", "firecrawl"}
}

// New creates the Fetcher selected by cfg.Fetcher.Engine.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (*Client, error) {
	switch cfg.Fetcher.Engine {
	case "", "http":
		return NewHTTPFetcher(cfg, logger, opts...), nil
	case "browser":
		return NewBrowserFetcher(cfg, logger, opts...), nil
	case "firecrawl":
		return NewFirecrawlFetcher(cfg, logger, opts...)
	default:
		return nil, fmt.Errorf("unsupported fetch engine: %s", cfg.Fetcher.Engine)
	}
}
