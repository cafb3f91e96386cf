package common

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"autovitrine/precos/internal/logging"
)

// NewRedisClient connects to addr and pings it. Unlike the pool's lazy
// reconnects, a failed first ping is returned to the caller.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	logging.Info("Initializing Redis client", "addr", addr, "db", db)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Successfully connected to Redis")
	return client, nil
}
