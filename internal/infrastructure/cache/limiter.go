package cache

import (
	"context"
	"time"
)

// Decision is the outcome of one limiter check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// RequestLimiter counts requests per key inside a fixed window
type RequestLimiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count int64, limit int, ttl time.Duration) Decision {
	d := Decision{Limit: limit, Allowed: count <= int64(limit)}
	if remaining := int64(limit) - count; remaining > 0 {
		d.Remaining = int(remaining)
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}
