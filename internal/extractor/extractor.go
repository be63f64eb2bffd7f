package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
	"dealer-inventory/pkg/models"
)

// DefaultMinRecords is the number of valid records a strategy must produce
// before later strategies are skipped.
const DefaultMinRecords = 3

// Strategy extracts candidate listings from a parsed page.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, n *Normalizer) []models.Listing
}

// Chain runs strategies in order and stops at the first one that yields at
// least Min valid records.
type Chain struct {
	Min        int
	Strategies []Strategy
}

// FirstMatch builds a Chain over strategies.
func FirstMatch(min int, strategies ...Strategy) Chain {
	if min < 1 {
		min = 1
	}
	return Chain{Min: min, Strategies: strategies}
}

// Run returns the winning records and the strategy that produced them. When
// no strategy reaches Min, the largest partial result is returned instead.
func (c Chain) Run(doc *goquery.Document, n *Normalizer) ([]models.Listing, string) {
	var (
		best     []models.Listing
		bestName string
	)
	for _, s := range c.Strategies {
		records := s.Extract(doc, n)
		if len(records) >= c.Min {
			return records, s.Name()
		}
		if len(records) > len(best) {
			best, bestName = records, s.Name()
		}
	}
	if len(best) == 0 {
		return []models.Listing{}, "none"
	}
	return best, bestName
}

// DefaultStrategies returns structured data, selector sets and the text
// heuristic, in that order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		StructuredData{},
		NewSelectorSets(DefaultSelectorSets()),
		Heuristic{},
	}
}

// Result is the outcome of one extraction.
type Result struct {
	Listings []models.Listing
	Strategy string
}

// Extractor converts fetched HTML into validated listings.
type Extractor struct {
	chain  Chain
	origin string
	now    func() time.Time
	logger logging.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the clock used to validate model years.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// WithStrategies replaces the default strategy order.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.chain.Strategies = strategies
	}
}

// New creates an Extractor from configuration.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) *Extractor {
	min := cfg.Extractor.MinRecords
	if min < 1 {
		min = DefaultMinRecords
	}
	e := &Extractor{
		chain:  FirstMatch(min, DefaultStrategies()...),
		origin: cfg.Upstream.Origin,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses body and runs the strategy chain. Relative links resolve
// against pageURL, falling back to the configured site origin. An empty
// result is not an error.
func (e *Extractor) Extract(body, pageURL string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse document: %w", err)
	}

	base := pageURL
	if base == "" || !strings.HasPrefix(base, "http") {
		base = e.origin
	}

	listings, strategy := e.chain.Run(doc, NewNormalizer(base, e.now()))

	if e.logger != nil {
		e.logger.Debug("Extraction completed", map[string]interface{}{
			"strategy": strategy,
			"records":  len(listings),
			"url":      pageURL,
		})
	}

	return Result{Listings: listings, Strategy: strategy}, nil
}
