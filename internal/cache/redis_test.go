package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/thread-forge/internal/config"
)

type testStruct struct {
	Name  string
	Count int
}

func setupTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache
}

func TestSetAndGet(t *testing.T) {
	cache := setupTestCache(t)

	in := testStruct{Name: "usage:testuser", Count: 3}
	require.NoError(t, cache.Set("usage:testuser", in, time.Hour))

	var out testStruct
	found, err := cache.Get("usage:testuser", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestGet_MissingKey(t *testing.T) {
	cache := setupTestCache(t)

	var out testStruct
	found, err := cache.Get("usage:unknown", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache := setupTestCache(t)

	require.NoError(t, cache.Set("usage:testuser", testStruct{Name: "x"}, time.Hour))
	require.NoError(t, cache.Invalidate("usage:testuser"))

	var out testStruct
	found, err := cache.Get("usage:testuser", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
