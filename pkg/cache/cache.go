package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: miss")

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
