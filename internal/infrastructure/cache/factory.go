package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/merchant/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// LimiterFactory builds request limiters backed by Redis when a client is available
type LimiterFactory struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
}

// LimiterFactoryOption configures a LimiterFactory
type LimiterFactoryOption func(*LimiterFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LimiterFactoryOption {
	return func(f *LimiterFactory) {
		f.logger = logger
	}
}

// WithKeyPrefix namespaces the Redis keys of every limiter the factory builds
func WithKeyPrefix(prefix string) LimiterFactoryOption {
	return func(f *LimiterFactory) {
		f.keyPrefix = prefix
	}
}

// NewLimiterFactory creates a factory. A nil client yields in-memory limiters.
func NewLimiterFactory(client redis.UniversalClient, opts ...LimiterFactoryOption) *LimiterFactory {
	f := &LimiterFactory{
		client:    client,
		keyPrefix: defaultLimiterPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a limiter named name allowing limit requests per window
func (f *LimiterFactory) Create(name string, limit int, window time.Duration) RequestLimiter {
	if f.client != nil {
		f.logger.Info("Using Redis request limiter", zap.String("limiter", name))
		return NewRedisRequestLimiter(f.client, f.keyPrefix+name+":", limit, window)
	}
	// In-memory counters are per process: behind a load balancer each instance allows limit on its own.
	f.logger.Warn("Using in-memory request limiter", zap.String("limiter", name))
	return NewInMemoryRequestLimiter(limit, window)
}
