package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer-inventory/pkg/models"
)

var t0 = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func snapshotOf(n int) models.Snapshot {
	listings := make([]models.Listing, n)
	for i := range listings {
		listings[i] = models.Listing{ID: string(rune('a' + i)), Title: "2021 Cadillac Escalade"}
	}
	return models.Snapshot{Listings: listings, Source: "https://dealer.example.com/inventory"}
}

func TestColdCacheRefreshes(t *testing.T) {
	c := New(time.Minute, time.Hour)

	assert.Equal(t, StateCold, c.State(t0))
	assert.True(t, c.ShouldRefresh(t0))

	_, ok := c.Get()
	assert.False(t, ok)
}

func TestColdCacheRefreshesDuringBackoff(t *testing.T) {
	c := New(time.Minute, time.Hour)
	c.RecordFailure(t0)

	assert.Equal(t, StateCold, c.State(t0))
	assert.True(t, c.ShouldRefresh(t0.Add(time.Millisecond)))
}

func TestStateTransitions(t *testing.T) {
	c := New(time.Minute, time.Hour)
	c.RecordSuccess(snapshotOf(2), t0)

	assert.Equal(t, StateFresh, c.State(t0.Add(59*time.Second)))
	assert.False(t, c.ShouldRefresh(t0.Add(59*time.Second)))

	assert.Equal(t, StateStale, c.State(t0.Add(time.Minute)))
	assert.True(t, c.ShouldRefresh(t0.Add(time.Minute)))

	c.RecordSuccess(snapshotOf(3), t0.Add(2*time.Minute))
	assert.Equal(t, StateFresh, c.State(t0.Add(2*time.Minute)))
}

func TestRoundTrip(t *testing.T) {
	c := New(time.Minute, time.Hour)
	s := snapshotOf(4)
	c.RecordSuccess(s, t0)

	got, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, s.Listings, got.Listings)
	assert.Equal(t, s.Source, got.Source)
	assert.Equal(t, t0, got.FetchedAt)

	c.RecordFailure(t0.Add(2 * time.Minute))
	got, _ = c.Get()
	assert.Equal(t, s.Listings, got.Listings)
}

func TestEmptySnapshotCountsAsPresent(t *testing.T) {
	c := New(time.Minute, time.Hour)
	c.RecordSuccess(models.Snapshot{}, t0)

	got, ok := c.Get()
	require.True(t, ok)
	assert.NotNil(t, got.Listings)
	assert.Empty(t, got.Listings)
	assert.Equal(t, StateFresh, c.State(t0))
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	c := New(time.Minute, 30*time.Second)

	var previous time.Duration
	for i := 1; i <= 4; i++ {
		c.RecordFailure(t0)
		assert.Equal(t, i, c.ConsecutiveFailures())
		window := c.BackoffWindow()
		assert.Greater(t, window, previous)
		previous = window
	}
	assert.Equal(t, 16*time.Second, previous)

	c.RecordFailure(t0)
	assert.Equal(t, 30*time.Second, c.BackoffWindow())

	for i := 0; i < 100; i++ {
		c.RecordFailure(t0)
	}
	assert.Equal(t, 30*time.Second, c.BackoffWindow())
}

func TestDefaultMaxBackoff(t *testing.T) {
	c := New(0, 0)
	for i := 0; i < 40; i++ {
		c.RecordFailure(t0)
	}
	assert.Equal(t, 24*time.Hour, c.BackoffWindow())
	assert.Equal(t, DefaultTTL, c.TTL())
}

func TestStaleCacheWaitsOutBackoff(t *testing.T) {
	c := New(time.Minute, time.Hour)
	c.RecordSuccess(snapshotOf(1), t0)

	failedAt := t0.Add(2 * time.Minute)
	c.RecordFailure(failedAt)
	c.RecordFailure(failedAt)

	assert.Equal(t, 4*time.Second, c.BackoffWindow())
	assert.False(t, c.ShouldRefresh(failedAt.Add(3*time.Second)))
	assert.True(t, c.ShouldRefresh(failedAt.Add(4*time.Second)))
}

func TestSuccessResetsFailures(t *testing.T) {
	c := New(time.Minute, time.Hour)
	c.RecordFailure(t0)
	c.RecordFailure(t0)

	c.RecordSuccess(snapshotOf(1), t0.Add(time.Second))
	assert.Zero(t, c.ConsecutiveFailures())
	assert.Zero(t, c.BackoffWindow())

	stats := c.Stats(t0.Add(time.Second))
	assert.True(t, stats.LastFailureAt.IsZero())
	assert.True(t, stats.BackoffUntil.IsZero())
}

func TestRestoreOnlyWhenCold(t *testing.T) {
	c := New(time.Minute, time.Hour)

	assert.False(t, c.Restore(models.Snapshot{}))

	persisted := snapshotOf(2)
	persisted.FetchedAt = t0.Add(-time.Hour)
	require.True(t, c.Restore(persisted))
	assert.Equal(t, StateStale, c.State(t0))

	c.RecordSuccess(snapshotOf(5), t0)
	assert.False(t, c.Restore(persisted))
	got, _ := c.Get()
	assert.Len(t, got.Listings, 5)
}

func TestRefreshFlag(t *testing.T) {
	c := New(time.Minute, time.Hour)

	require.True(t, c.TryBeginRefresh())
	assert.False(t, c.TryBeginRefresh())
	assert.True(t, c.Refreshing())

	c.EndRefresh()
	assert.False(t, c.Refreshing())
	assert.True(t, c.TryBeginRefresh())
}

func TestStats(t *testing.T) {
	c := New(time.Minute, time.Hour)
	c.RecordSuccess(snapshotOf(3), t0)
	c.RecordFailure(t0.Add(2 * time.Minute))

	stats := c.Stats(t0.Add(2 * time.Minute))
	assert.Equal(t, StateStale, stats.State)
	assert.Equal(t, 3, stats.Listings)
	assert.Equal(t, 2*time.Minute, stats.Age)
	assert.Equal(t, 1, stats.ConsecutiveFailures)
	assert.Equal(t, t0.Add(2*time.Minute+2*time.Second), stats.BackoffUntil)
}

func TestConcurrentReadersNeverSeeTornSnapshots(t *testing.T) {
	c := New(time.Minute, time.Hour)
	c.RecordSuccess(snapshotOf(1), t0)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.RecordSuccess(snapshotOf(n+1), t0)
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s, ok := c.Get()
				if assert.True(t, ok) {
					assert.Contains(t, []int{1, 2, 3, 4}, len(s.Listings))
				}
			}
		}()
	}
	wg.Wait()
}
