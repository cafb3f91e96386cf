package common

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheService is the in-memory cache implementation
type CacheService struct {
	cache *cache.Cache
}

// Ensure CacheService implements CacheInterface
var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultExpiration, cleanUpInterval time.Duration) *CacheService {
	return &CacheService{cache: cache.New(defaultExpiration, cleanUpInterval)}
}

func (cs *CacheService) Set(_ context.Context, key string, value []byte, duration time.Duration) {
	cs.cache.Set(key, value, duration)
}

func (cs *CacheService) Get(_ context.Context, key string) ([]byte, bool) {
	val, found := cs.cache.Get(key)
	if !found {
		return nil, false
	}
	b, ok := val.([]byte)
	return b, ok
}

func (cs *CacheService) Delete(_ context.Context, key string) {
	cs.cache.Delete(key)
}

func (cs *CacheService) GetOrSet(
	ctx context.Context,
	key string,
	duration time.Duration,
	loader func() ([]byte, error)) ([]byte, error) {
	if val, found := cs.Get(ctx, key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	cs.Set(ctx, key, val, duration)
	return val, nil
}

// Close closes the cache (no-op for in-memory cache)
func (cs *CacheService) Close() error {
	return nil
}
