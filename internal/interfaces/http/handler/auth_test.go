package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	appidentity "github.com/merchant/backend/internal/application/identity"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/domain/shared"
	"github.com/merchant/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testTokens() appidentity.TokenResult {
	now := time.Now()
	return appidentity.TokenResult{
		AccessToken:           "access",
		RefreshToken:          "refresh",
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(7 * 24 * time.Hour),
		TokenType:             "Bearer",
	}
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

func TestAuthHandler_Entry(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	svc.On("ResolveAuthEntry", mock.Anything, "Owner@Example.com").Return(&identity.AuthEntry{
		AccountExists:    true,
		Identifier:       identity.Identifier{Value: "owner@example.com", Type: identity.IdentifierTypeEmail},
		AvailableMethods: []identity.AuthMethod{identity.AuthMethodOTP, identity.AuthMethodPassword},
		DefaultMethod:    identity.AuthMethodPassword,
		HasEmail:         true,
		HasPassword:      true,
		SocialProviders:  []identity.SocialProvider{identity.SocialProviderGoogle},
	}, nil)

	w := performJSON(h.Entry, http.MethodPost, AuthEntryRequest{Identifier: "Owner@Example.com"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decodeResponse(t, w))
	assert.Equal(t, "owner@example.com", data["identifier"])
	assert.Equal(t, "email", data["identifier_type"])
	assert.Equal(t, "password", data["default_method"])
	assert.Equal(t, []any{"otp", "password"}, data["available_methods"])
	svc.AssertExpectations(t)
}

func TestAuthHandler_EntryValidation(t *testing.T) {
	svc := new(MockAuthService)
	w := performJSON(NewAuthHandler(svc).Entry, http.MethodPost, map[string]string{}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "identifier", resp.Error.Field)
	svc.AssertNotCalled(t, "ResolveAuthEntry", mock.Anything, mock.Anything)
}

func TestAuthHandler_Register(t *testing.T) {
	accountID := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := new(MockAuthService)
		input := appidentity.RegisterInput{FullName: "Ada Merchant", Phone: "+12025550123", Password: "s3cret-pass", AcceptTerms: true}
		svc.On("Register", mock.Anything, input).Return(&appidentity.RegisterResult{
			Account:     appidentity.AccountInfo{ID: accountID, Username: "+12025550123", Phone: "+12025550123", HasPassword: true},
			Tokens:      testTokens(),
			OTPRequired: true,
			NextStep:    identity.AuthNextStepOTPVerify,
		}, nil)

		w := performJSON(NewAuthHandler(svc).Register, http.MethodPost, RegisterRequest{
			FullName: input.FullName, Phone: input.Phone, Password: input.Password, AcceptTerms: true,
		}, nil)

		require.Equal(t, http.StatusCreated, w.Code)
		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, "otp_verify", data["next_step"])
		assert.Equal(t, true, data["otp_required"])
		assert.Equal(t, "access", data["token"].(map[string]any)["access_token"])
		assert.Equal(t, accountID.String(), data["account"].(map[string]any)["id"])
	})

	t.Run("duplicate phone", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Register", mock.Anything, mock.Anything).
			Return(nil, shared.NewFieldError(shared.CodeAlreadyExists, "Phone number is already registered", "phone"))

		w := performJSON(NewAuthHandler(svc).Register, http.MethodPost, RegisterRequest{Phone: "+12025550123"}, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
		assert.Equal(t, "phone", resp.Error.Field)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("dashboard for merchants with a store", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, appidentity.LoginInput{Identifier: "owner@example.com", Password: "pw"}).
			Return(&appidentity.LoginResult{
				Account:  appidentity.AccountInfo{ID: uuid.New()},
				Tokens:   testTokens(),
				HasStore: true,
				NextStep: identity.AuthNextStepDashboard,
			}, nil)

		w := performJSON(NewAuthHandler(svc).Login, http.MethodPost, LoginRequest{Identifier: "owner@example.com", Password: "pw"}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, "dashboard", data["next_step"])
		assert.Equal(t, true, data["has_store"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError(shared.CodeInvalidCredentials, "Invalid identifier or password"))

		w := performJSON(NewAuthHandler(svc).Login, http.MethodPost, LoginRequest{Identifier: "x", Password: "y"}, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidCredentials, decodeResponse(t, w).Error.Code)
	})

	t.Run("inactive account", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, mock.Anything).Return(nil, appidentity.ErrAccountInactive)

		w := performJSON(NewAuthHandler(svc).Login, http.MethodPost, LoginRequest{Identifier: "x", Password: "y"}, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeAccountInactive, decodeResponse(t, w).Error.Code)
	})
}

func TestAuthHandler_RequestOTP(t *testing.T) {
	t.Run("issued", func(t *testing.T) {
		svc := new(MockAuthService)
		expires := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second)
		svc.On("RequestOTP", mock.Anything, appidentity.RequestOTPInput{Identifier: "+12025550123", Purpose: otp.PurposeLogin}).
			Return(&appidentity.RequestOTPResult{Identifier: "+12025550123", Channel: otp.ChannelSMS, ExpiresAt: expires, Sent: true}, nil)

		w := performJSON(NewAuthHandler(svc).RequestOTP, http.MethodPost, OTPRequest{Identifier: "+12025550123", Purpose: "login"}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, "sms", data["channel"])
		assert.Equal(t, true, data["sent"])
		assert.NotContains(t, w.Body.String(), "code")
	})

	t.Run("unsupported purpose is rejected before the service", func(t *testing.T) {
		svc := new(MockAuthService)
		w := performJSON(NewAuthHandler(svc).RequestOTP, http.MethodPost, OTPRequest{Identifier: "+12025550123", Purpose: "email_verify"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "purpose", decodeResponse(t, w).Error.Field)
		svc.AssertNotCalled(t, "RequestOTP", mock.Anything, mock.Anything)
	})

	t.Run("rate limited", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("RequestOTP", mock.Anything, mock.Anything).
			Return(nil, otp.NewRateLimitedError("Too many code requests", 42*time.Second))

		w := performJSON(NewAuthHandler(svc).RequestOTP, http.MethodPost, OTPRequest{Identifier: "+12025550123"}, nil)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "42", w.Header().Get("Retry-After"))
		assert.Equal(t, "otp_rate_limited", decodeResponse(t, w).Error.Reason)
	})

	t.Run("delivery failure", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("RequestOTP", mock.Anything, mock.Anything).Return(nil, otp.ErrDeliveryFailed)

		w := performJSON(NewAuthHandler(svc).RequestOTP, http.MethodPost, OTPRequest{Identifier: "owner@example.com"}, nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, otp.CodeDeliveryFailed, decodeResponse(t, w).Error.Code)
	})
}

func TestAuthHandler_VerifyOTP(t *testing.T) {
	t.Run("new account session", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("VerifyOTP", mock.Anything, appidentity.VerifyOTPInput{Identifier: "+12025550123", Code: "123456"}).
			Return(&appidentity.OTPSessionResult{
				Account:  appidentity.AccountInfo{ID: uuid.New()},
				Created:  true,
				Channel:  otp.ChannelSMS,
				Tokens:   testTokens(),
				NextStep: identity.NextStepCompleteProfile,
			}, nil)

		w := performJSON(NewAuthHandler(svc).VerifyOTP, http.MethodPost, OTPVerifyRequest{Identifier: "+12025550123", Code: "123456"}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, true, data["created"])
		assert.Equal(t, "complete_profile", data["next_step"])
	})

	errs := []struct {
		name   string
		err    error
		status int
	}{
		{"wrong", otp.ErrWrong, http.StatusBadRequest},
		{"not requested", otp.ErrNotRequested, http.StatusBadRequest},
		{"expired", otp.ErrExpired, http.StatusGone},
		{"too many attempts", otp.ErrTooManyAttempts, http.StatusTooManyRequests},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			svc.On("VerifyOTP", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := performJSON(NewAuthHandler(svc).VerifyOTP, http.MethodPost, OTPVerifyRequest{Identifier: "+12025550123", Code: "000000"}, nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAuthHandler_LoginOTP(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	svc.On("RequestLoginOTP", mock.Anything, "owner@example.com").
		Return(&appidentity.EmailCodeResult{Email: "owner@example.com", ExpiresAt: time.Now().Add(10 * time.Minute), Sent: true}, nil)
	svc.On("VerifyLoginOTP", mock.Anything, "owner@example.com", "654321").
		Return(&appidentity.OTPSessionResult{Account: appidentity.AccountInfo{ID: uuid.New()}, Channel: otp.ChannelEmail, Tokens: testTokens()}, nil)

	w := performJSON(h.RequestLoginOTP, http.MethodPost, LoginOTPRequest{Identifier: "owner@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "email", dataMap(t, decodeResponse(t, w))["channel"])

	w = performJSON(h.VerifyLoginOTP, http.MethodPost, LoginOTPVerifyRequest{Identifier: "owner@example.com", Code: "654321"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, dataMap(t, decodeResponse(t, w))["created"])

	svc.AssertExpectations(t)
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("rotated", func(t *testing.T) {
		svc := new(MockAuthService)
		tokens := testTokens()
		svc.On("RefreshToken", mock.Anything, "old-refresh").Return(&tokens, nil)

		w := performJSON(NewAuthHandler(svc).Refresh, http.MethodPost, RefreshTokenRequest{RefreshToken: "old-refresh"}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "refresh", dataMap(t, decodeResponse(t, w))["token"].(map[string]any)["refresh_token"])
	})

	t.Run("revoked", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("RefreshToken", mock.Anything, "old-refresh").
			Return(nil, shared.NewDomainError(appidentity.CodeTokenRevoked, "Token has been revoked"))

		w := performJSON(NewAuthHandler(svc).Refresh, http.MethodPost, RefreshTokenRequest{RefreshToken: "old-refresh"}, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeResponse(t, w).Error.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("revokes access and refresh tokens", func(t *testing.T) {
		svc := new(MockAuthService)
		claims := testClaims(uuid.New())
		svc.On("Logout", mock.Anything, mock.MatchedBy(func(in appidentity.LogoutInput) bool {
			return in.AccessTokenID == claims.ID && in.RefreshToken == "r-1"
		})).Return(nil)

		w := performJSON(NewAuthHandler(svc).Logout, http.MethodPost, LogoutRequest{RefreshToken: "r-1"}, claims)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, dataMap(t, decodeResponse(t, w))["logged_out"])
		svc.AssertExpectations(t)
	})

	t.Run("body is optional", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Logout", mock.Anything, mock.Anything).Return(nil)

		w := performJSON(NewAuthHandler(svc).Logout, http.MethodPost, nil, testClaims(uuid.New()))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("requires a session", func(t *testing.T) {
		svc := new(MockAuthService)
		w := performJSON(NewAuthHandler(svc).Logout, http.MethodPost, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
	})
}
