package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"dealer-inventory/internal/cache"
	"dealer-inventory/internal/config"
	"dealer-inventory/internal/extractor"
	"dealer-inventory/internal/fetcher"
	"dealer-inventory/internal/logging"
	"dealer-inventory/internal/query"
	"dealer-inventory/internal/validation"
	"dealer-inventory/pkg/models"
	"dealer-inventory/pkg/utils"
)

const refreshKey = "inventory"

var errRefreshInProgress = errors.New("refresh already in progress")

// Extractor turns a fetched page into listings.
type Extractor interface {
	Extract(body, pageURL string) (extractor.Result, error)
}

// SnapshotStore persists the latest snapshot across process restarts.
type SnapshotStore interface {
	Load(ctx context.Context) (models.Snapshot, bool, error)
	Save(ctx context.Context, snapshot models.Snapshot) error
}

// Archive records every successful snapshot.
type Archive interface {
	WriteSnapshot(ctx context.Context, snapshot models.Snapshot) error
}

// Request is one inventory query.
type Request struct {
	Criteria     models.QueryCriteria
	ForceRefresh bool
	IfNoneMatch  string
}

// Response is the outcome of a successful inventory query. Body is nil when
// NotModified is set.
type Response struct {
	Status       int
	Body         *models.InventoryResponse
	ETag         string
	Source       string
	CacheControl string
	NotModified  bool
}

// InventoryService orchestrates cache, fetcher, extractor and query engine.
type InventoryService struct {
	fetcher   fetcher.Fetcher
	extractor Extractor
	cache     *cache.Cache
	engine    *query.Engine
	source    fetcher.Source
	store     SnapshotStore
	archive   Archive
	logger    logging.Logger
	now       func() time.Time
	validate  *validator.Validate

	refreshTimeout time.Duration
	persistTimeout time.Duration
	cacheControl   string
	defaultPerPage int

	group   singleflight.Group
	pending sync.WaitGroup
}

// Option configures an InventoryService.
type Option func(*InventoryService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) {
		s.now = now
	}
}

// WithSnapshotStore enables warm starts and snapshot persistence.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *InventoryService) {
		s.store = store
	}
}

// WithArchive enables the listing archive.
func WithArchive(archive Archive) Option {
	return func(s *InventoryService) {
		s.archive = archive
	}
}

// New wires an InventoryService. The cache is owned by the caller and may be
// shared with status reporting.
func New(cfg *config.Config, f fetcher.Fetcher, x Extractor, c *cache.Cache, logger logging.Logger, opts ...Option) *InventoryService {
	s := &InventoryService{
		fetcher:        f,
		extractor:      x,
		cache:          c,
		engine:         query.New(cfg.Query.DefaultPerPage, cfg.Query.MaxPerPage),
		source:         fetcher.SourceFromConfig(cfg),
		logger:         logger,
		now:            time.Now,
		validate:       validation.New(),
		refreshTimeout: cfg.Fetcher.RefreshTimeout,
		persistTimeout: cfg.Redis.Timeout,
		cacheControl:   fmt.Sprintf("public, max-age=%d", int(cfg.HTTPCache.MaxAge.Seconds())),
		defaultPerPage: cfg.Query.DefaultPerPage,
	}
	if s.refreshTimeout <= 0 {
		s.refreshTimeout = time.Minute
	}
	if s.persistTimeout <= 0 {
		s.persistTimeout = 5 * time.Second
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle answers one inventory query, refreshing the cache when needed.
func (s *InventoryService) Handle(ctx context.Context, req Request) (*Response, error) {
	criteria := req.Criteria
	if criteria.Page < 1 {
		criteria.Page = 1
	}
	if criteria.PerPage < 1 {
		criteria.PerPage = s.defaultPerPage
	}
	if err := s.ValidateCriteria(criteria); err != nil {
		return nil, err
	}

	snapshot, source, err := s.snapshot(ctx, req.ForceRefresh)
	if err != nil {
		return nil, err
	}

	result := s.engine.Apply(snapshot.Listings, criteria)
	body := &models.InventoryResponse{
		Success:    true,
		Vehicles:   result.Listings,
		TotalCount: result.Total,
		Pagination: models.Pagination{
			Page:       result.Page,
			PerPage:    result.PerPage,
			TotalPages: result.TotalPages,
		},
		LastUpdated: snapshot.FetchedAt.UTC(),
	}

	etag, err := Fingerprint(body)
	if err != nil {
		return nil, utils.NewInternalError(err)
	}

	resp := &Response{
		Status:       http.StatusOK,
		Body:         body,
		ETag:         etag,
		Source:       source,
		CacheControl: s.cacheControl,
	}
	if MatchesETag(req.IfNoneMatch, etag) {
		resp.Status = http.StatusNotModified
		resp.Body = nil
		resp.NotModified = true
	}
	return resp, nil
}

// ValidateCriteria rejects out-of-range query criteria.
func (s *InventoryService) ValidateCriteria(c models.QueryCriteria) error {
	if err := validation.Criteria(s.validate, c); err != nil {
		return utils.NewInvalidRequestError(err.Error())
	}
	return nil
}

// snapshot returns the data to query and the X-Data-Source value for it.
func (s *InventoryService) snapshot(ctx context.Context, force bool) (models.Snapshot, string, error) {
	if !force && !s.cache.ShouldRefresh(s.now()) {
		if snap, ok := s.cache.Get(); ok {
			return snap, s.cachedSource(), nil
		}
	}

	// Readers arriving mid-refresh keep serving the prior snapshot.
	if !force && s.cache.Refreshing() {
		if snap, ok := s.cache.Get(); ok {
			return snap, s.cachedSource(), nil
		}
	}

	ch := s.group.DoChan(refreshKey, func() (interface{}, error) {
		return s.refresh(ctx)
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(models.Snapshot), models.SourceFresh, nil
		}
		if snap, ok := s.cache.Get(); ok {
			source := models.SourceStaleCache
			if errors.Is(res.Err, errRefreshInProgress) {
				source = s.cachedSource()
			}
			return snap, source, nil
		}
		return models.Snapshot{}, "", utils.NewUpstreamUnavailableError(res.Err)

	case <-ctx.Done():
		if snap, ok := s.cache.Get(); ok {
			return snap, s.cachedSource(), nil
		}
		return models.Snapshot{}, "", utils.NewUpstreamUnavailableError(ctx.Err())
	}
}

// cachedSource labels a snapshot served without a refresh. A stale snapshot
// kept alive by failed refreshes is stale-cache.
func (s *InventoryService) cachedSource() string {
	if s.cache.ConsecutiveFailures() > 0 && s.cache.State(s.now()) == cache.StateStale {
		return models.SourceStaleCache
	}
	return models.SourceCache
}

// Refresh forces one fetch and extract cycle outside a request.
func (s *InventoryService) Refresh(ctx context.Context) (models.Snapshot, error) {
	res, err, _ := s.group.Do(refreshKey, func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return models.Snapshot{}, err
	}
	return res.(models.Snapshot), nil
}

// refresh runs detached from the caller's cancellation, bounded by
// refreshTimeout. Callers sharing it through singleflight see one result.
func (s *InventoryService) refresh(ctx context.Context) (models.Snapshot, error) {
	if !s.cache.TryBeginRefresh() {
		return models.Snapshot{}, errRefreshInProgress
	}
	defer s.cache.EndRefresh()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
	defer cancel()

	started := s.now()
	doc, err := s.fetcher.Fetch(ctx, s.source)
	if err != nil {
		return models.Snapshot{}, s.fail(err, started)
	}

	result, err := s.extractor.Extract(doc.Body, doc.URL)
	if err != nil {
		return models.Snapshot{}, s.fail(fmt.Errorf("extraction failed: %w", err), started)
	}

	s.cache.RecordSuccess(models.Snapshot{Listings: result.Listings, Source: doc.URL}, s.now())
	snapshot, _ := s.cache.Get()

	s.logger.Info("Inventory refreshed", map[string]interface{}{
		"listings": len(result.Listings),
		"strategy": result.Strategy,
		"engine":   doc.Engine,
		"attempts": doc.Attempts,
		"url":      doc.URL,
		"duration": s.now().Sub(started).String(),
	})
	if len(result.Listings) == 0 {
		s.logger.Warn("Upstream page yielded no listings", map[string]interface{}{"url": doc.URL})
	}

	s.persist(snapshot)
	return snapshot, nil
}

func (s *InventoryService) fail(err error, started time.Time) error {
	s.cache.RecordFailure(s.now())
	s.logger.WithError(err).Warn("Inventory refresh failed", map[string]interface{}{
		"consecutive_failures": s.cache.ConsecutiveFailures(),
		"backoff":              s.cache.BackoffWindow().String(),
		"duration":             s.now().Sub(started).String(),
	})
	return err
}

func (s *InventoryService) persist(snapshot models.Snapshot) {
	if s.store != nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
			defer cancel()
			if err := s.store.Save(ctx, snapshot); err != nil {
				s.logger.WithError(err).Warn("Failed to persist snapshot")
			}
		}()
	}

	if s.archive != nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 4*s.persistTimeout)
			defer cancel()
			if err := s.archive.WriteSnapshot(ctx, snapshot); err != nil {
				s.logger.WithError(err).Warn("Failed to archive snapshot")
			}
		}()
	}
}

// Warm seeds an empty cache from the snapshot store.
func (s *InventoryService) Warm(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	snapshot, ok, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm cache: %w", err)
	}
	if !ok {
		s.logger.Info("No persisted snapshot to warm from")
		return nil
	}

	if s.cache.Restore(snapshot) {
		s.logger.Info("Cache warmed from persisted snapshot", map[string]interface{}{
			"listings":   len(snapshot.Listings),
			"fetched_at": snapshot.FetchedAt,
			"state":      string(s.cache.State(s.now())),
		})
	}
	return nil
}

// Status reports the cache state machine.
func (s *InventoryService) Status() models.CacheStatusResponse {
	stats := s.cache.Stats(s.now())

	status := models.CacheStatusResponse{
		State:               string(stats.State),
		Listings:            stats.Listings,
		AgeSeconds:          stats.Age.Seconds(),
		TTLSeconds:          stats.TTL.Seconds(),
		ConsecutiveFailures: stats.ConsecutiveFailures,
		Refreshing:          stats.Refreshing,
	}
	if !stats.FetchedAt.IsZero() {
		fetchedAt := stats.FetchedAt.UTC()
		status.FetchedAt = &fetchedAt
	}
	if !stats.LastFailureAt.IsZero() {
		lastFailure := stats.LastFailureAt.UTC()
		status.LastFailureAt = &lastFailure
	}
	if !stats.BackoffUntil.IsZero() {
		until := stats.BackoffUntil.UTC()
		status.BackoffUntil = &until
	}
	return status
}

// Close waits for in-flight snapshot persistence.
func (s *InventoryService) Close() {
	s.pending.Wait()
}
