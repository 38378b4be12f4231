package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cache is a best-effort key/value store in front of Postgres.
// Get reports a miss with false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

type NopCache struct{}

func (NopCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, interface{}) error         { return nil }
func (NopCache) Delete(context.Context, ...string) error                { return nil }

type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *logrus.Logger
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "campus-chat:",
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache get failed")
		return false, err
	}

	if err = json.Unmarshal(raw, dest); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache entry is malformed")
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	err = c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache set failed")
	}
	return err
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.prefix + key
	}

	err := c.client.Del(ctx, prefixed...).Err()
	if err != nil {
		c.logger.WithError(err).WithField("keys", keys).Error("cache invalidation failed")
	}
	return err
}

func chatCacheKey(chatID string) string {
	return "chat:" + chatID
}

func userCacheKey(userID string) string {
	return "user:" + userID
}

// invalidations counts invalidations per key stripe. A reader compares the
// count before and after its load to tell whether a write raced with it.
// Keys sharing a stripe only cause extra misses.
type invalidations struct {
	stripes [256]atomic.Uint64
}

func (v *invalidations) stripe(key string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &v.stripes[h.Sum32()%uint32(len(v.stripes))]
}

func (v *invalidations) version(key string) uint64 {
	if v == nil {
		return 0
	}
	return v.stripe(key).Load()
}

func (v *invalidations) bump(keys ...string) {
	if v == nil {
		return
	}
	for _, key := range keys {
		v.stripe(key).Add(1)
	}
}

// invalidator drops cache keys on writes. Inside a transaction the keys are
// dropped once more after commit, so readers that refilled the cache from
// the pre-commit state do not keep it.
type invalidator struct {
	cache    Cache
	hooks    *commitHooks
	versions *invalidations
}

func (i invalidator) inTx() bool {
	return i.hooks != nil
}

func (i invalidator) invalidate(ctx context.Context, keys ...string) error {
	i.versions.bump(keys...)
	if err := i.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("can't invalidate cache: %w", err)
	}
	if i.hooks != nil {
		i.hooks.add(func(ctx context.Context) {
			i.versions.bump(keys...)
			_ = i.cache.Delete(ctx, keys...)
		})
	}
	return nil
}

// readThrough serves key from the cache and fills it from load on a miss.
// Reads inside a transaction skip the cache so uncommitted rows never leak into it.
// A fill that raced with an invalidation in this process is dropped again.
// Writers in other processes are only bounded by the cache ttl.
func readThrough[T any](ctx context.Context, i invalidator, key string, load func() (*T, error)) (*T, error) {
	if i.inTx() {
		return load()
	}

	var cached T
	if ok, err := i.cache.Get(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	seen := i.versions.version(key)
	res, err := load()
	if err != nil {
		return nil, err
	}
	_ = i.cache.Set(ctx, key, res)
	if i.versions.version(key) != seen {
		_ = i.cache.Delete(ctx, key)
	}
	return res, nil
}
