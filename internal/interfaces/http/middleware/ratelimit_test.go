package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/merchant/backend/internal/infrastructure/cache"
	"github.com/merchant/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (cache.Decision, error) {
	return cache.Decision{}, errors.New("connection refused")
}

func newRateLimitRouter(cfg RateLimitConfig) *gin.Engine {
	router := gin.New()
	router.Use(RateLimit(cfg))
	router.POST("/api/v1/auth/otp/request", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/v1/auth/otp/verify", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func hit(router *gin.Engine, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":4242"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	t.Run("blocks after limit with retry-after", func(t *testing.T) {
		limiter := cache.NewInMemoryRequestLimiter(2, time.Minute)
		t.Cleanup(func() { _ = limiter.Close() })
		router := newRateLimitRouter(RateLimitConfig{Limiter: limiter})

		first := hit(router, "/api/v1/auth/otp/request", "10.0.0.1")
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusOK, hit(router, "/api/v1/auth/otp/request", "10.0.0.1").Code)

		blocked := hit(router, "/api/v1/auth/otp/request", "10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
		assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
		assert.Contains(t, blocked.Body.String(), dto.ErrCodeRateLimited)

		// other clients keep their own budget
		assert.Equal(t, http.StatusOK, hit(router, "/api/v1/auth/otp/request", "10.0.0.2").Code)
	})

	t.Run("route key separates endpoints", func(t *testing.T) {
		limiter := cache.NewInMemoryRequestLimiter(1, time.Minute)
		t.Cleanup(func() { _ = limiter.Close() })
		router := newRateLimitRouter(RateLimitConfig{Limiter: limiter, KeyFunc: RouteClientIPKey})

		assert.Equal(t, http.StatusOK, hit(router, "/api/v1/auth/otp/request", "10.0.0.1").Code)
		assert.Equal(t, http.StatusOK, hit(router, "/api/v1/auth/otp/verify", "10.0.0.1").Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(router, "/api/v1/auth/otp/verify", "10.0.0.1").Code)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		router := newRateLimitRouter(RateLimitConfig{Limiter: brokenLimiter{}})
		w := hit(router, "/api/v1/auth/otp/request", "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})
}
