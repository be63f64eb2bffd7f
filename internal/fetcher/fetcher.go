// Package fetcher retrieves raw inventory documents from the upstream dealer
// site. Every engine shares one retry loop: per-attempt URL and header profile
// rotation, a short randomized delay, an outbound rate limit and exponential
// backoff between failed attempts.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
)

// Source describes where inventory documents can be fetched from.
type Source struct {
	URLs   []string
	Method string
	Form   map[string]string
}

// SourceFromConfig builds the upstream source descriptor from configuration.
func SourceFromConfig(cfg *config.Config) Source {
	return Source{
		URLs:   cfg.Upstream.URLs,
		Method: cfg.Upstream.Method,
		Form:   cfg.Upstream.Form,
	}
}

// Document is the raw markup returned by one successful attempt.
type Document struct {
	URL        string
	Body       string
	StatusCode int
	FetchedAt  time.Time
	Attempts   int
	Engine     string
}

// Fetcher returns raw documents from an upstream source.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) (*Document, error)
}

// attempt is what an engine needs to perform a single request.
type attempt struct {
	Number  int
	URL     string
	Method  string
	Form    map[string]string
	Profile config.HeaderProfile
}

// engine performs one network round trip without retrying.
type engine interface {
	Name() string
	Do(ctx context.Context, a attempt) (*Document, error)
	Close() error
}

// RetryPolicy bounds how hard a single Fetch call tries.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MinJitter   time.Duration
	MaxJitter   time.Duration
}

// Backoff is the wait after the given failed attempt: base * 2^(attempt-1).
func (p RetryPolicy) Backoff(failedAttempt int) time.Duration {
	if failedAttempt < 1 {
		failedAttempt = 1
	}
	return p.BaseBackoff * time.Duration(1<<uint(failedAttempt-1))
}

// Client is the Fetcher used by the service. It owns no shared mutable
// state beyond the rate limiter.
type Client struct {
	engine       engine
	policy       RetryPolicy
	profiles     []config.HeaderProfile
	selector     ProfileSelector
	limiter      *rate.Limiter
	minBodyBytes int
	logger       logging.Logger
	sleep        func(ctx context.Context, d time.Duration) error
	jitter       func(min, max time.Duration) time.Duration
	now          func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithSelector injects the URL/profile selector, typically a deterministic one in tests.
func WithSelector(selector ProfileSelector) Option {
	return func(c *Client) { c.selector = selector }
}

// WithSleep replaces the context-aware sleep used for jitter and backoff.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithRateLimit limits outbound requests to perMinute. Zero disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

func newClient(e engine, cfg *config.Config, logger logging.Logger, opts ...Option) *Client {
	profiles := cfg.Upstream.Profiles
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}

	c := &Client{
		engine: e,
		policy: RetryPolicy{
			MaxAttempts: cfg.Fetcher.MaxAttempts,
			BaseBackoff: cfg.Fetcher.BaseBackoff,
			MinJitter:   cfg.Fetcher.MinJitter,
			MaxJitter:   cfg.Fetcher.MaxJitter,
		},
		profiles:     profiles,
		selector:     NewRandomSelector(),
		minBodyBytes: cfg.Fetcher.MinBodyBytes,
		logger:       logger.WithFields(map[string]interface{}{"component": "fetcher", "engine": e.Name()}),
		sleep:        sleepContext,
		jitter:       randomJitter,
		now:          time.Now,
	}
	WithRateLimit(cfg.Fetcher.RateLimit)(c)

	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxAttempts < 1 {
		c.policy.MaxAttempts = 1
	}
	return c
}

// Fetch tries the source up to MaxAttempts times and returns the first usable
// document. The last attempt's error is returned once the budget is spent.
func (c *Client) Fetch(ctx context.Context, src Source) (*Document, error) {
	if len(src.URLs) == 0 {
		return nil, fmt.Errorf("fetch: source has no candidate URLs")
	}

	method := src.Method
	if method == "" {
		method = http.MethodGet
	}

	var lastErr error
	made := 0
	for n := 1; n <= c.policy.MaxAttempts; n++ {
		made = n
		a := attempt{
			Number:  n,
			URL:     src.URLs[c.selector.Select(n, len(src.URLs))],
			Method:  method,
			Form:    src.Form,
			Profile: c.profiles[c.selector.Select(n, len(c.profiles))],
		}

		if err := c.sleep(ctx, c.jitter(c.policy.MinJitter, c.policy.MaxJitter)); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("fetch: rate limiter: %w", err)
			}
		}

		start := c.now()
		doc, err := c.engine.Do(ctx, a)
		if err == nil {
			err = checkContent(a.URL, doc.Body, c.minBodyBytes)
		}
		if err == nil {
			doc.Attempts = n
			doc.Engine = c.engine.Name()
			if doc.FetchedAt.IsZero() {
				doc.FetchedAt = c.now()
			}
			c.logger.Info("Upstream document fetched", map[string]interface{}{
				"attempt":  n,
				"profile":  a.Profile.Name,
				"bytes":    len(doc.Body),
				"duration": c.now().Sub(start).String(),
			})
			return doc, nil
		}

		if errors.Is(err, ErrMethodUnsupported) {
			return nil, err
		}

		lastErr = err
		c.logger.Warn("Fetch attempt failed", map[string]interface{}{
			"attempt":      n,
			"max_attempts": c.policy.MaxAttempts,
			"url":          a.URL,
			"profile":      a.Profile.Name,
			"error":        err.Error(),
		})

		if ctx.Err() != nil {
			break
		}
		if n < c.policy.MaxAttempts {
			if err := c.sleep(ctx, c.policy.Backoff(n)); err != nil {
				break
			}
		}
	}

	return nil, fmt.Errorf("fetch failed after %d attempts: %w", made, lastErr)
}

// Close releases engine resources such as a running browser.
func (c *Client) Close() error {
	return c.engine.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
