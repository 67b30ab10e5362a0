package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the default, process-local cache.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultExpiration, cleanupInterval)}
}

// Values are stored encoded so callers never share mutable state.
func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	m.store.Set(key, data, expiration)
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := m.store.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.store.Delete(key)
	}
	return nil
}

func (m *MemoryCache) ItemCount() int {
	return m.store.ItemCount()
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}
