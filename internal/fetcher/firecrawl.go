package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mendableai/firecrawl-go"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
)

// firecrawlEngine delegates rendering to the hosted Firecrawl API. The scrape
// API only loads pages by GET; profile headers are forwarded with it.
type firecrawlEngine struct {
	app *firecrawl.FirecrawlApp
}

// NewFirecrawlFetcher returns a Fetcher backed by the Firecrawl scrape API.
func NewFirecrawlFetcher(cfg *config.Config, logger logging.Logger, opts ...Option) (*Client, error) {
	if cfg.Upstream.Method != "" && cfg.Upstream.Method != http.MethodGet {
		return nil, fmt.Errorf("firecrawl engine: %w: %s", ErrMethodUnsupported, cfg.Upstream.Method)
	}
	app, err := firecrawl.NewFirecrawlApp(cfg.Fetcher.Firecrawl.APIKey, cfg.Fetcher.Firecrawl.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firecrawl: %w", err)
	}
	return newClient(&firecrawlEngine{app: app}, cfg, logger, opts...), nil
}

func (e *firecrawlEngine) Name() string {
	return "firecrawl"
}

func (e *firecrawlEngine) Do(ctx context.Context, a attempt) (*Document, error) {
	if a.Method != http.MethodGet {
		return nil, fmt.Errorf("firecrawl engine: %w: %s", ErrMethodUnsupported, a.Method)
	}

	params := &firecrawl.ScrapeParams{Formats: []string{"html"}}
	if len(a.Profile.Headers) > 0 {
		headers := a.Profile.Headers
		params.Headers = &headers
	}

	type result struct {
		doc *firecrawl.FirecrawlDocument
		err error
	}

	// The SDK call is not context aware; abandon it when ctx ends.
	done := make(chan result, 1)
	go func() {
		doc, err := e.app.ScrapeURL(a.URL, params)
		done <- result{doc: doc, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &NetworkError{URL: a.URL, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return nil, &NetworkError{URL: a.URL, Err: r.err}
		}
		if r.doc == nil || r.doc.HTML == "" {
			return nil, &ContentError{URL: a.URL, Reason: "firecrawl returned no html"}
		}
		return &Document{
			URL:        a.URL,
			Body:       r.doc.HTML,
			StatusCode: http.StatusOK,
			FetchedAt:  time.Now(),
		}, nil
	}
}

func (e *firecrawlEngine) Close() error {
	return nil
}
