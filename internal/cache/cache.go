package cache

import (
	"sync"
	"time"

	"dealer-inventory/pkg/models"
)

// State is the freshness of the cached snapshot.
type State string

const (
	StateCold  State = "COLD"
	StateFresh State = "FRESH"
	StateStale State = "STALE"
)

const (
	DefaultTTL        = 30 * time.Minute
	DefaultMaxBackoff = 24 * time.Hour
)

// maxBackoffExponent keeps 2^n seconds inside time.Duration.
const maxBackoffExponent = 32

// Stats is a point-in-time view of the cache.
type Stats struct {
	State               State
	Listings            int
	FetchedAt           time.Time
	Age                 time.Duration
	TTL                 time.Duration
	ConsecutiveFailures int
	LastFailureAt       time.Time
	BackoffUntil        time.Time
	Refreshing          bool
}

// Cache holds the last good snapshot together with its error backoff state.
// All methods are safe for concurrent use. Snapshots are replaced wholesale
// and never modified in place.
type Cache struct {
	mu sync.RWMutex

	ttl        time.Duration
	maxBackoff time.Duration

	snapshot    models.Snapshot
	hasSnapshot bool

	consecutiveFailures int
	lastFailureAt       time.Time
	refreshing          bool
}

// New creates an empty (COLD) cache. Non-positive durations take defaults.
func New(ttl, maxBackoff time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	return &Cache{ttl: ttl, maxBackoff: maxBackoff}
}

// TTL returns the configured snapshot lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// State reports COLD, FRESH or STALE at now.
func (c *Cache) State(now time.Time) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked(now)
}

func (c *Cache) stateLocked(now time.Time) State {
	if !c.hasSnapshot {
		return StateCold
	}
	if now.Sub(c.snapshot.FetchedAt) < c.ttl {
		return StateFresh
	}
	return StateStale
}

// ShouldRefresh is true when the cache is COLD, or STALE and outside the
// error backoff window.
func (c *Cache) ShouldRefresh(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.stateLocked(now) {
	case StateCold:
		return true
	case StateStale:
		return !c.inBackoffLocked(now)
	default:
		return false
	}
}

// Get returns the current snapshot and whether one exists.
func (c *Cache) Get() (models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.hasSnapshot
}

// RecordSuccess replaces the snapshot, stamps it with now and clears the
// failure counter.
func (c *Cache) RecordSuccess(snapshot models.Snapshot, now time.Time) {
	snapshot.FetchedAt = now
	if snapshot.Listings == nil {
		snapshot.Listings = []models.Listing{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = snapshot
	c.hasSnapshot = true
	c.consecutiveFailures = 0
	c.lastFailureAt = time.Time{}
}

// RecordFailure counts a failed refresh. The snapshot is kept.
func (c *Cache) RecordFailure(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	c.lastFailureAt = now
}

// Restore seeds a COLD cache with a previously persisted snapshot, keeping
// its original fetch time. It reports whether the snapshot was applied.
func (c *Cache) Restore(snapshot models.Snapshot) bool {
	if snapshot.FetchedAt.IsZero() {
		return false
	}
	if snapshot.Listings == nil {
		snapshot.Listings = []models.Listing{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasSnapshot {
		return false
	}
	c.snapshot = snapshot
	c.hasSnapshot = true
	return true
}

// ConsecutiveFailures returns the number of failed refreshes since the last
// success.
func (c *Cache) ConsecutiveFailures() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.consecutiveFailures
}

// BackoffWindow returns min(2^consecutiveFailures seconds, maxBackoff), or
// zero when there are no failures.
func (c *Cache) BackoffWindow() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backoffWindowLocked()
}

func (c *Cache) backoffWindowLocked() time.Duration {
	if c.consecutiveFailures == 0 {
		return 0
	}
	if c.consecutiveFailures >= maxBackoffExponent {
		return c.maxBackoff
	}
	window := time.Duration(int64(1)<<c.consecutiveFailures) * time.Second
	if window > c.maxBackoff {
		return c.maxBackoff
	}
	return window
}

func (c *Cache) inBackoffLocked(now time.Time) bool {
	if c.consecutiveFailures == 0 {
		return false
	}
	return now.Before(c.lastFailureAt.Add(c.backoffWindowLocked()))
}

// TryBeginRefresh marks a refresh as in progress. It returns false when one
// is already running.
func (c *Cache) TryBeginRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshing {
		return false
	}
	c.refreshing = true
	return true
}

// EndRefresh clears the in-progress flag.
func (c *Cache) EndRefresh() {
	c.mu.Lock()
	c.refreshing = false
	c.mu.Unlock()
}

// Refreshing reports whether a refresh is in progress.
func (c *Cache) Refreshing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshing
}

// Stats returns a consistent view of the cache at now.
func (c *Cache) Stats(now time.Time) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		State:               c.stateLocked(now),
		TTL:                 c.ttl,
		ConsecutiveFailures: c.consecutiveFailures,
		LastFailureAt:       c.lastFailureAt,
		Refreshing:          c.refreshing,
	}
	if c.hasSnapshot {
		s.Listings = len(c.snapshot.Listings)
		s.FetchedAt = c.snapshot.FetchedAt
		s.Age = now.Sub(c.snapshot.FetchedAt)
	}
	if c.consecutiveFailures > 0 {
		s.BackoffUntil = c.lastFailureAt.Add(c.backoffWindowLocked())
	}
	return s
}
