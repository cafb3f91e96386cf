package services

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/metrics"
)

// DefaultLatestMonthTTL is how long a resolved latest month is served
// before it is looked up again.
const DefaultLatestMonthTTL = 5 * time.Minute

// Clock abstracts time for the latest-month cache.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// VersionLoader returns the newest reference month and the catalog
// generation.
type VersionLoader func(ctx context.Context) (fipe.CatalogVersion, error)

type monthSnapshot struct {
	version   fipe.CatalogVersion
	fetchedAt time.Time
}

// LatestMonthCache serves the latest reference month from a snapshot that is
// swapped atomically. Readers see either the old or the new snapshot, never a
// mix, and concurrent refreshes share one load.
type LatestMonthCache struct {
	load    VersionLoader
	ttl     time.Duration
	clock   Clock
	metrics *metrics.MetricsRegistry

	snapshot atomic.Pointer[monthSnapshot]
	group    singleflight.Group
}

func NewLatestMonthCache(load VersionLoader, ttl time.Duration, clock Clock, m *metrics.MetricsRegistry) *LatestMonthCache {
	if ttl <= 0 {
		ttl = DefaultLatestMonthTTL
	}
	if clock == nil {
		clock = SystemClock
	}
	return &LatestMonthCache{load: load, ttl: ttl, clock: clock, metrics: m}
}

// Get returns the cached month, loading it when the snapshot is missing or
// older than the TTL. An empty catalog yields "".
func (c *LatestMonthCache) Get(ctx context.Context) (string, error) {
	v, err := c.Version(ctx)
	return v.Month, err
}

// Version is Get with the catalog generation the month was read at.
func (c *LatestMonthCache) Version(ctx context.Context) (fipe.CatalogVersion, error) {
	if snap := c.fresh(); snap != nil {
		c.count(true)
		return snap.version, nil
	}
	c.count(false)

	v, err, _ := c.group.Do("latest", func() (interface{}, error) {
		if snap := c.fresh(); snap != nil {
			return snap.version, nil
		}
		version, err := c.load(ctx)
		if err != nil {
			return fipe.CatalogVersion{}, err
		}
		c.snapshot.Store(&monthSnapshot{version: version, fetchedAt: c.clock.Now()})
		c.publish(version.Month)
		logging.Debug("[LatestMonth] Refreshed", "reference_month", version.Month, "generation", version.Generation)
		return version, nil
	})
	if err != nil {
		return fipe.CatalogVersion{}, err
	}
	return v.(fipe.CatalogVersion), nil
}

// Invalidate drops the snapshot so the next Get reloads.
func (c *LatestMonthCache) Invalidate() {
	c.snapshot.Store(nil)
}

func (c *LatestMonthCache) fresh() *monthSnapshot {
	snap := c.snapshot.Load()
	if snap == nil || c.clock.Now().Sub(snap.fetchedAt) >= c.ttl {
		return nil
	}
	return snap
}

func (c *LatestMonthCache) count(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.WithLabelValues("latest_month").Inc()
	} else {
		c.metrics.CacheMissesTotal.WithLabelValues("latest_month").Inc()
	}
}

func (c *LatestMonthCache) publish(month string) {
	if c.metrics == nil || month == "" {
		return
	}
	c.metrics.LatestReferenceInfo.Reset()
	c.metrics.LatestReferenceInfo.WithLabelValues(month).Set(1)
}
