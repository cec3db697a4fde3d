package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRequestLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks after the limit inside one window", func(t *testing.T) {
		_, client := newMiniRedis(t)
		limiter := NewRedisRequestLimiter(client, "test:", 3, time.Minute)

		for i := 0; i < 3; i++ {
			d, err := limiter.Allow(ctx, "203.0.113.7")
			require.NoError(t, err)
			assert.True(t, d.Allowed, "request %d", i+1)
			assert.Equal(t, 2-i, d.Remaining)
		}

		d, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Zero(t, d.Remaining)
		assert.Greater(t, d.RetryAfter, time.Duration(0))
		assert.LessOrEqual(t, d.RetryAfter, time.Minute)
	})

	t.Run("keys are independent", func(t *testing.T) {
		_, client := newMiniRedis(t)
		limiter := NewRedisRequestLimiter(client, "", 1, time.Minute)

		d, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = limiter.Allow(ctx, "b")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("window expiry resets the count", func(t *testing.T) {
		mr, client := newMiniRedis(t)
		limiter := NewRedisRequestLimiter(client, "test:", 1, time.Minute)

		d, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		d, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.False(t, d.Allowed)

		mr.FastForward(61 * time.Second)

		d, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("uses the key prefix", func(t *testing.T) {
		mr, client := newMiniRedis(t)
		limiter := NewRedisRequestLimiter(client, "otp:", 5, time.Minute)

		_, err := limiter.Allow(ctx, "198.51.100.1")
		require.NoError(t, err)
		assert.True(t, mr.Exists("otp:198.51.100.1"))
		assert.Greater(t, mr.TTL("otp:198.51.100.1"), time.Duration(0))
	})

	t.Run("redis failure is returned", func(t *testing.T) {
		mr, client := newMiniRedis(t)
		limiter := NewRedisRequestLimiter(client, "", 1, time.Minute)
		mr.SetError("LOADING")

		_, err := limiter.Allow(ctx, "k")
		assert.Error(t, err)
	})
}

func TestLimiterFactory_Create(t *testing.T) {
	_, client := newMiniRedis(t)

	redisBacked := NewLimiterFactory(client).Create("otp", 5, time.Minute)
	assert.IsType(t, &RedisRequestLimiter{}, redisBacked)

	local := NewLimiterFactory(nil).Create("otp", 5, time.Minute)
	require.IsType(t, &InMemoryRequestLimiter{}, local)
	_ = local.(*InMemoryRequestLimiter).Close()
}
