package cache

import (
	"context"
	"errors"
	"time"
)

// TieredCache reads through a process-local near cache to a shared far
// cache. Near writes happen even when the far write fails.
type TieredCache struct {
	near    Cache
	far     Cache
	nearTTL time.Duration
}

func NewTieredCache(near, far Cache, nearTTL time.Duration) *TieredCache {
	return &TieredCache{near: near, far: far, nearTTL: nearTTL}
}

func (t *TieredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	nearErr := t.near.Set(ctx, key, value, t.nearExpiration(expiration))
	farErr := t.far.Set(ctx, key, value, expiration)
	if nearErr != nil {
		return nearErr
	}
	return farErr
}

func (t *TieredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := t.near.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := t.far.Get(ctx, key, dest); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return ErrCacheMiss
		}
		return err
	}
	_ = t.near.Set(ctx, key, dest, t.nearTTL)
	return nil
}

func (t *TieredCache) Delete(ctx context.Context, keys ...string) error {
	nearErr := t.near.Delete(ctx, keys...)
	if err := t.far.Delete(ctx, keys...); err != nil {
		return err
	}
	return nearErr
}

func (t *TieredCache) Close() error {
	return errors.Join(t.near.Close(), t.far.Close())
}

func (t *TieredCache) nearExpiration(expiration time.Duration) time.Duration {
	if t.nearTTL > 0 && (expiration <= 0 || t.nearTTL < expiration) {
		return t.nearTTL
	}
	return expiration
}
