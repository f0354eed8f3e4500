package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finportal/internal/config"
	"github.com/magabrotheeeer/finportal/internal/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache, err := InitServer(context.Background(), config.RedisConnection{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := models.Subscription{ID: "sub-1", UserID: "user-1", Plan: "pro", Active: true,
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, cache.Set(ctx, "subscription:active:user-1", expected, time.Minute))

	var actual models.Subscription
	found, err := cache.Get(ctx, "subscription:active:user-1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out models.Subscription
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	mr.FastForward(2 * time.Minute)

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "key"))

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out models.Subscription
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestRedisUnavailable(t *testing.T) {
	cache, mr := setupTestCache(t)
	mr.Close()

	var out string
	_, err := cache.Get(context.Background(), "key", &out)
	assert.Error(t, err)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cache, err := InitServer(context.Background(), config.RedisConnection{
		Address:     "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	assert.Nil(t, cache)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c Noop
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	var out string
	found, err := c.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Invalidate(ctx, "key"))
}

func TestPing(t *testing.T) {
	c, mr := setupTestCache(t)
	assert.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}
