package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCache struct{ err error }

func (b brokenCache) Set(context.Context, string, interface{}, time.Duration) error { return b.err }
func (b brokenCache) Get(context.Context, string, interface{}) error                { return b.err }
func (b brokenCache) Delete(context.Context, ...string) error                       { return b.err }
func (b brokenCache) Close() error                                                  { return nil }

func TestTieredCacheBackfillsNear(t *testing.T) {
	near := NewMemoryCache(time.Minute, 0)
	far := NewMemoryCache(time.Minute, 0)
	c := NewTieredCache(near, far, time.Minute)
	ctx := context.Background()

	require.NoError(t, far.Set(ctx, "office:7", officeEntry{Name: "Station 7"}, 0))

	var got officeEntry
	require.NoError(t, c.Get(ctx, "office:7", &got))
	assert.Equal(t, "Station 7", got.Name)

	var fromNear officeEntry
	require.NoError(t, near.Get(ctx, "office:7", &fromNear))
	assert.Equal(t, "Station 7", fromNear.Name)
}

func TestTieredCacheMiss(t *testing.T) {
	c := NewTieredCache(NewMemoryCache(time.Minute, 0), NewMemoryCache(time.Minute, 0), time.Minute)

	var got officeEntry
	assert.ErrorIs(t, c.Get(context.Background(), "office:1", &got), ErrCacheMiss)
}

func TestTieredCacheSurvivesFarOutage(t *testing.T) {
	down := errors.New("connection refused")
	c := NewTieredCache(NewMemoryCache(time.Minute, 0), brokenCache{err: down}, time.Minute)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "office:2", officeEntry{Name: "Station 2"}, 0), down)

	var got officeEntry
	require.NoError(t, c.Get(ctx, "office:2", &got))
	assert.Equal(t, "Station 2", got.Name)

	assert.ErrorIs(t, c.Get(ctx, "office:9", &got), down)
}

func TestRedisOptionsPreferURL(t *testing.T) {
	options, err := redisOptions(&RedisConfig{
		URL:      "redis://:pw@cache.internal:6380/2",
		Host:     "localhost",
		Port:     6379,
		PoolSize: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", options.Addr)
	assert.Equal(t, "pw", options.Password)
	assert.Equal(t, 2, options.DB)
	assert.Equal(t, 4, options.PoolSize)

	_, err = redisOptions(&RedisConfig{URL: "http://nope"})
	assert.Error(t, err)

	options, err = redisOptions(&RedisConfig{Host: "localhost", Port: 6379})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", options.Addr)
}
