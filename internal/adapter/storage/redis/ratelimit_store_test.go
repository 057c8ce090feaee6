package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimitStore(t *testing.T) (*RateLimitStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRateLimitStore(client)
	fixed := time.Date(2024, 6, 15, 10, 30, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	return store, mr
}

func TestRateLimitStore_Allow(t *testing.T) {
	store, mr := newTestRateLimitStore(t)
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := store.Allow(ctx, "key1:charge", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should be allowed", i)
			assert.Equal(t, int64(3), result.Limit)
			assert.Equal(t, 3-i, result.Remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		result, err := store.Allow(ctx, "key1:charge", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.Remaining)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		result, err := store.Allow(ctx, "key2:charge", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(4), result.Remaining)
	})

	t.Run("counter carries a ttl", func(t *testing.T) {
		_, err := store.Allow(ctx, "key3:read", 10, time.Minute)
		require.NoError(t, err)

		var found bool
		for _, k := range mr.Keys() {
			if ttl := mr.TTL(k); ttl > 0 {
				found = true
				assert.LessOrEqual(t, ttl, 61*time.Second)
			}
		}
		assert.True(t, found)
	})

	t.Run("next window starts fresh", func(t *testing.T) {
		key := "key4:refund"
		_, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)

		result, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)

		later := store.now().Add(time.Minute)
		store.now = func() time.Time { return later }

		result, err = store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

func TestRateLimitStore_ResetAt(t *testing.T) {
	store, _ := newTestRateLimitStore(t)

	result, err := store.Allow(context.Background(), "k", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 10, 31, 0, 0, time.UTC).Unix(), result.ResetAt)
}

func TestRateLimitStore_RedisDown(t *testing.T) {
	store, mr := newTestRateLimitStore(t)
	mr.Close()

	_, err := store.Allow(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
}
