package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/merchant/backend/internal/infrastructure/auth"
	"github.com/merchant/backend/internal/infrastructure/config"
	"github.com/merchant/backend/internal/infrastructure/logger"
	"github.com/merchant/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	})
}

func newTestTokenPair(t *testing.T, jwtService *auth.JWTService) (*auth.TokenPair, uuid.UUID) {
	t.Helper()
	accountID := uuid.New()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{AccountID: accountID, Username: "merchant"})
	require.NoError(t, err)
	return pair, accountID
}

type failingBlacklist struct{}

func (failingBlacklist) Revoke(context.Context, string, time.Duration) error { return nil }
func (failingBlacklist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func serveWithToken(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/merchant/next-step", nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	pair, accountID := newTestTokenPair(t, jwtService)

	router := gin.New()
	router.Use(JWTAuthMiddleware(jwtService))
	router.GET("/merchant/next-step", func(c *gin.Context) {
		id, ok := GetAccountID(c)
		assert.True(t, ok)
		assert.Equal(t, accountID, id)
		assert.Equal(t, accountID.String(), c.GetString(logger.GinAccountIDKey))
		assert.Equal(t, accountID.String(), logger.GetAccountID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	rec := serveWithToken(router, BearerPrefix+pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	jwtService := newTestJWTService()
	pair, _ := newTestTokenPair(t, jwtService)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeTokenInvalid},
		{"not bearer", "Basic abc", dto.ErrCodeTokenInvalid},
		{"garbage token", BearerPrefix + "not-a-jwt", dto.ErrCodeTokenInvalid},
		{"refresh token used as access", BearerPrefix + pair.RefreshToken, dto.ErrCodeTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(JWTAuthMiddleware(jwtService))
			router.GET("/merchant/next-step", func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := serveWithToken(router, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestJWTAuthMiddleware_Blacklist(t *testing.T) {
	jwtService := newTestJWTService()
	pair, _ := newTestTokenPair(t, jwtService)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	t.Run("revoked token is rejected", func(t *testing.T) {
		blacklist := auth.NewInMemoryTokenBlacklist()
		require.NoError(t, blacklist.Revoke(context.Background(), claims.ID, time.Minute))

		router := gin.New()
		router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{JWTService: jwtService, TokenBlacklist: blacklist}))
		router.GET("/merchant/next-step", func(c *gin.Context) { c.Status(http.StatusOK) })

		rec := serveWithToken(router, BearerPrefix+pair.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, errorCode(t, rec))
	})

	t.Run("blacklist failure fails open", func(t *testing.T) {
		router := gin.New()
		router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{JWTService: jwtService, TokenBlacklist: failingBlacklist{}}))
		router.GET("/merchant/next-step", func(c *gin.Context) { c.Status(http.StatusOK) })

		rec := serveWithToken(router, BearerPrefix+pair.AccessToken)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService: newTestJWTService(),
		SkipPaths:  []string{"/merchant/next-step"},
	}))
	router.GET("/merchant/next-step", func(c *gin.Context) {
		_, ok := GetAccountID(c)
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serveWithToken(router, "").Code)
}

func TestAuthErrorCode(t *testing.T) {
	code, _ := authErrorCode(auth.ErrExpiredToken)
	assert.Equal(t, dto.ErrCodeTokenExpired, code)
	code, _ = authErrorCode(errors.New("other"))
	assert.Equal(t, dto.ErrCodeAuthenticationRequired, code)
}
