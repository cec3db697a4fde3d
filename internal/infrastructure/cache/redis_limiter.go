package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLimiterPrefix = "ratelimit:"

// fixedWindow increments the counter and starts its window on the first hit.
// Returns the count and the remaining window in milliseconds.
var fixedWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisRequestLimiter is a fixed-window limiter shared by every instance using the same Redis
type RedisRequestLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedisRequestLimiter creates a limiter allowing limit requests per window per key
func NewRedisRequestLimiter(client redis.UniversalClient, keyPrefix string, limit int, window time.Duration) *RedisRequestLimiter {
	if keyPrefix == "" {
		keyPrefix = defaultLimiterPrefix
	}
	return &RedisRequestLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
	}
}

// Allow counts one request for key
func (l *RedisRequestLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := fixedWindow.Run(ctx, l.client, []string{l.keyPrefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count request: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("unexpected limiter reply: %v", res)
	}
	return decide(res[0], l.limit, time.Duration(res[1])*time.Millisecond), nil
}

var _ RequestLimiter = (*RedisRequestLimiter)(nil)
