package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "merchant-test",
		MaxRefreshCount:        2,
	})
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, []byte("test-secret"), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	accountID := uuid.New()

	pair, err := svc.GenerateTokenPair(GenerateTokenInput{AccountID: accountID, Username: "+966500000001"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	got, err := claims.GetAccountUUID()
	require.NoError(t, err)
	assert.Equal(t, accountID, got)
	assert.Equal(t, "+966500000001", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	t.Run("requires account id", func(t *testing.T) {
		_, err := svc.GenerateTokenPair(GenerateTokenInput{})
		assert.ErrorIs(t, err, ErrMissingAccountID)
	})
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(GenerateTokenInput{AccountID: uuid.New()})
	require.NoError(t, err)

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		assert.Error(t, err)
	})

	t.Run("garbage is invalid", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-ch", Issuer: "merchant-test", AccessTokenExpiration: time.Minute})
		_, err := other.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRefreshTokenPair(t *testing.T) {
	svc := newTestJWTService()
	accountID := uuid.New()
	pair, err := svc.GenerateTokenPair(GenerateTokenInput{AccountID: accountID, Username: "owner@shop.sa"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshTokenPair(pair.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.ValidateRefreshToken(refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.RefreshCount)
	assert.Equal(t, "owner@shop.sa", claims.Username)

	again, err := svc.RefreshTokenPair(refreshed.RefreshToken)
	require.NoError(t, err)

	_, err = svc.RefreshTokenPair(again.RefreshToken)
	assert.ErrorIs(t, err, ErrMaxRefreshExceeded)

	_, err = svc.RefreshTokenPair(pair.AccessToken)
	assert.Error(t, err)
}
