package common

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"autovitrine/precos/internal/logging"
)

// RedisCacheService implements CacheInterface using Redis
type RedisCacheService struct {
	client *redis.Client
	prefix string
}

// Ensure RedisCacheService implements CacheInterface
var _ CacheInterface = (*RedisCacheService)(nil)

// NewRedisCacheService wraps client; every key is stored under prefix.
func NewRedisCacheService(client *redis.Client, prefix string) *RedisCacheService {
	return &RedisCacheService{client: client, prefix: prefix}
}

// Set stores a value in Redis with the given key and duration
func (r *RedisCacheService) Set(ctx context.Context, key string, value []byte, duration time.Duration) {
	if err := r.client.Set(ctx, r.prefix+key, value, duration).Err(); err != nil {
		logging.Warn("Redis cache set failed", "key", key, "error", err.Error())
	}
}

// Get retrieves a value from Redis by key
func (r *RedisCacheService) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis cache get failed", "key", key, "error", err.Error())
		return nil, false
	}
	return data, true
}

// Delete removes a value from Redis by key
func (r *RedisCacheService) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		logging.Warn("Redis cache delete failed", "key", key, "error", err.Error())
	}
}

// GetOrSet retrieves a value from cache, or loads it using the loader function if not found
func (r *RedisCacheService) GetOrSet(
	ctx context.Context,
	key string,
	duration time.Duration,
	loader func() ([]byte, error),
) ([]byte, error) {
	if val, found := r.Get(ctx, key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	r.Set(ctx, key, val, duration)
	return val, nil
}

// Ping checks the Redis connection.
func (r *RedisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCacheService) Close() error {
	return r.client.Close()
}
