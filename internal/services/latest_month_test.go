package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLatestMonthCachePinsWithinTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	month := "2024-05"
	var loads int32
	loader := func(context.Context) (fipe.CatalogVersion, error) {
		atomic.AddInt32(&loads, 1)
		return fipe.CatalogVersion{Month: month}, nil
	}
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	cache := NewLatestMonthCache(loader, 5*time.Minute, clock, reg)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-05", got)

	// A new month lands but the snapshot is still fresh.
	month = "2024-06"
	clock.Advance(4 * time.Minute)
	got, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-05", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	clock.Advance(time.Minute)
	got, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-06", got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))

	assert.Equal(t, float64(1), testutil.ToFloat64(reg.CacheHitsTotal.WithLabelValues("latest_month")))
	assert.Equal(t, float64(2), testutil.ToFloat64(reg.CacheMissesTotal.WithLabelValues("latest_month")))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.LatestReferenceInfo.WithLabelValues("2024-06")))
}

func TestLatestMonthCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	month, generation := "2024-05", int64(1)
	cache := NewLatestMonthCache(func(context.Context) (fipe.CatalogVersion, error) {
		return fipe.CatalogVersion{Month: month, Generation: generation}, nil
	}, time.Hour, clock, nil)

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	month = "2024-06"
	cache.Invalidate()
	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-06", got)

	// Same month, new generation.
	generation = 2
	cache.Invalidate()
	v, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, fipe.CatalogVersion{Month: "2024-06", Generation: 2}, v)
}

func TestLatestMonthCacheErrorNotStored(t *testing.T) {
	ctx := context.Background()
	fail := true
	cache := NewLatestMonthCache(func(context.Context) (fipe.CatalogVersion, error) {
		if fail {
			return fipe.CatalogVersion{}, errors.New("connection refused")
		}
		return fipe.CatalogVersion{Month: "2024-05"}, nil
	}, time.Hour, &fakeClock{now: time.Now()}, nil)

	_, err := cache.Get(ctx)
	assert.Error(t, err)

	fail = false
	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-05", got)
}

func TestLatestMonthCacheCollapsesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var loads int32
	cache := NewLatestMonthCache(func(context.Context) (fipe.CatalogVersion, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return fipe.CatalogVersion{Month: "2024-05"}, nil
	}, time.Hour, &fakeClock{now: time.Now()}, nil)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.Get(ctx)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "2024-05", r)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&loads), int32(2))
}
