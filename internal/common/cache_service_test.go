package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceGetOrSet(t *testing.T) {
	ctx := context.Background()
	cs := NewCacheService(time.Minute, time.Minute)

	calls := 0
	loader := func() ([]byte, error) {
		calls++
		return []byte("honda"), nil
	}

	v, err := cs.GetOrSet(ctx, "brands", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "honda", string(v))

	v, err = cs.GetOrSet(ctx, "brands", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "honda", string(v))
	assert.Equal(t, 1, calls)

	cs.Delete(ctx, "brands")
	_, found := cs.Get(ctx, "brands")
	assert.False(t, found)
}

func TestCacheServiceLoaderErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	cs := NewCacheService(time.Minute, time.Minute)

	_, err := cs.GetOrSet(ctx, "k", time.Minute, func() ([]byte, error) { return nil, errors.New("db down") })
	assert.Error(t, err)

	_, found := cs.Get(ctx, "k")
	assert.False(t, found)
}
