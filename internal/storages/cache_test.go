package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/practice-sem-2/campus-chat-service/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries   map[string]interface{}
	deleted   []string
	deleteErr error
	getErr    error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.Chat)) = *(v.(*models.Chat))
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func TestReadThrough(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	inv := invalidator{cache: cache}

	loads := 0
	load := func() (*models.Chat, error) {
		loads++
		return &models.Chat{ChatID: "c1", Name: "Group"}, nil
	}

	for i := 0; i < 3; i++ {
		chat, err := readThrough(ctx, inv, chatCacheKey("c1"), load)
		require.NoError(t, err)
		assert.Equal(t, "Group", chat.Name)
	}
	assert.Equal(t, 1, loads, "only the first read hits the loader")

	cache.getErr = errors.New("redis is down")
	_, err := readThrough(ctx, inv, chatCacheKey("c1"), load)
	require.NoError(t, err, "cache failures fall through to the loader")
	assert.Equal(t, 2, loads)
}

func TestReadThrough_InTransactionBypassesCache(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	inv := invalidator{cache: cache, hooks: &commitHooks{}}

	_, err := readThrough(ctx, inv, chatCacheKey("c1"), func() (*models.Chat, error) {
		return &models.Chat{ChatID: "c1"}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, cache.entries, "uncommitted reads must not fill the cache")
}

func TestReadThrough_LoaderError(t *testing.T) {
	cache := newMemoryCache()
	_, err := readThrough(context.Background(), invalidator{cache: cache}, "k", func() (*models.Chat, error) {
		return nil, ErrChatNotFound
	})
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.Empty(t, cache.entries)
}

func TestInvalidator(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	hooks := &commitHooks{}
	inv := invalidator{cache: cache, hooks: hooks}

	require.NoError(t, inv.invalidate(ctx, "a", "b"))
	assert.Equal(t, []string{"a", "b"}, cache.deleted)

	hooks.run(ctx)
	assert.Equal(t, []string{"a", "b", "a", "b"}, cache.deleted, "keys are dropped again after commit")

	cache.deleteErr = errors.New("redis is down")
	assert.Error(t, inv.invalidate(ctx, "a"), "failed invalidation fails the write")
}

func TestReadThrough_InvalidatedDuringLoad(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	versions := &invalidations{}
	reader := invalidator{cache: cache, versions: versions}
	hooks := &commitHooks{}
	writer := invalidator{cache: cache, hooks: hooks, versions: versions}

	key := chatCacheKey("c1")
	require.NoError(t, writer.invalidate(ctx, key))

	chat, err := readThrough(ctx, reader, key, func() (*models.Chat, error) {
		hooks.run(ctx)
		return &models.Chat{ChatID: "c1", Name: "Before rename"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Before rename", chat.Name)
	assert.NotContains(t, cache.entries, key, "a fill that raced with a commit is dropped")

	_, err = readThrough(ctx, reader, key, func() (*models.Chat, error) {
		return &models.Chat{ChatID: "c1", Name: "After rename"}, nil
	})
	require.NoError(t, err)
	assert.Contains(t, cache.entries, key, "quiet reads fill the cache again")
}

func TestInvalidations(t *testing.T) {
	var nilVersions *invalidations
	nilVersions.bump("a")
	assert.Zero(t, nilVersions.version("a"))

	v := &invalidations{}
	before := v.version("a")
	v.bump("a", "a")
	assert.Equal(t, before+2, v.version("a"))
}

func TestRedisCache_Unreachable(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cache := NewRedisCache(client, time.Minute, logger)
	ctx := context.Background()

	var chat models.Chat
	ok, err := cache.Get(ctx, "chat:1", &chat)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, "chat:1", &chat))
	assert.Error(t, cache.Delete(ctx, "chat:1"))
	assert.NoError(t, cache.Delete(ctx), "nothing to delete")
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	ok, err := c.Get(context.Background(), "k", nil)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.NoError(t, c.Set(context.Background(), "k", 1))
	assert.NoError(t, c.Delete(context.Background(), "k"))
}
