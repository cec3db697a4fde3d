package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/merchant/backend/internal/infrastructure/cache"
	"github.com/merchant/backend/internal/infrastructure/logger"
	"github.com/merchant/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// KeyFunc derives the throttling key for a request
type KeyFunc func(c *gin.Context) string

// ClientIPKey throttles per client address
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// RouteClientIPKey throttles per route and client address
func RouteClientIPKey(c *gin.Context) string {
	return c.FullPath() + "|" + c.ClientIP()
}

// RateLimitConfig holds configuration for rate limit middleware
type RateLimitConfig struct {
	Limiter cache.RequestLimiter
	KeyFunc KeyFunc
	Logger  *zap.Logger
}

// RateLimit rejects requests over the limiter's budget with 429.
// A limiter failure lets the request through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := keyFunc(c)
		decision, err := cfg.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("Rate limiter unavailable, allowing request",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests, please try again later",
				c.GetString(logger.GinRequestIDKey),
			))
			return
		}

		c.Next()
	}
}
