package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/merchant/backend/internal/application/identity"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/infrastructure/auth"
	"github.com/merchant/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
)

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) ResolveAuthEntry(ctx context.Context, raw string) (*identity.AuthEntry, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AuthEntry), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, input appidentity.RegisterInput) (*appidentity.RegisterResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.RegisterResult), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.LoginResult), args.Error(1)
}

func (m *MockAuthService) RequestOTP(ctx context.Context, input appidentity.RequestOTPInput) (*appidentity.RequestOTPResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.RequestOTPResult), args.Error(1)
}

func (m *MockAuthService) VerifyOTP(ctx context.Context, input appidentity.VerifyOTPInput) (*appidentity.OTPSessionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.OTPSessionResult), args.Error(1)
}

func (m *MockAuthService) RequestLoginOTP(ctx context.Context, raw string) (*appidentity.EmailCodeResult, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.EmailCodeResult), args.Error(1)
}

func (m *MockAuthService) VerifyLoginOTP(ctx context.Context, raw, code string) (*appidentity.OTPSessionResult, error) {
	args := m.Called(ctx, raw, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.OTPSessionResult), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, token string) (*appidentity.TokenResult, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.TokenResult), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, input appidentity.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *MockAuthService) RequestEmailVerification(ctx context.Context, accountID uuid.UUID) (*appidentity.EmailCodeResult, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.EmailCodeResult), args.Error(1)
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, accountID uuid.UUID, code string) (*appidentity.VerifyEmailResult, error) {
	args := m.Called(ctx, accountID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.VerifyEmailResult), args.Error(1)
}

// MockOnboardingService is a mock implementation of OnboardingService
type MockOnboardingService struct {
	mock.Mock
}

func (m *MockOnboardingService) NextStep(ctx context.Context, accountID uuid.UUID) (*appidentity.NextStepResult, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.NextStepResult), args.Error(1)
}

func (m *MockOnboardingService) CompleteProfile(ctx context.Context, accountID uuid.UUID, input appidentity.CompleteProfileInput) (*appidentity.CompleteProfileResult, error) {
	args := m.Called(ctx, accountID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.CompleteProfileResult), args.Error(1)
}

func (m *MockOnboardingService) SelectCountry(ctx context.Context, accountID uuid.UUID, raw string) (*appidentity.OnboardingResult, error) {
	args := m.Called(ctx, accountID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.OnboardingResult), args.Error(1)
}

func (m *MockOnboardingService) SelectBusinessTypes(ctx context.Context, accountID uuid.UUID, raw []string) (*appidentity.OnboardingResult, error) {
	args := m.Called(ctx, accountID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.OnboardingResult), args.Error(1)
}

func (m *MockOnboardingService) CreateStore(ctx context.Context, accountID uuid.UUID, input appidentity.CreateStoreInput) (*appidentity.CreateStoreResult, error) {
	args := m.Called(ctx, accountID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.CreateStoreResult), args.Error(1)
}

// performJSON runs a JSON request through handler. Claims, when given, are
// placed in the context the way the JWT middleware does.
func performJSON(handler gin.HandlerFunc, method string, body any, claims *auth.Claims) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	router := gin.New()
	router.Handle(method, "/", func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.JWTClaimsKey, claims)
		}
		handler(c)
	})

	req := httptest.NewRequest(method, "/", &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testClaims(accountID uuid.UUID) *auth.Claims {
	claims := &auth.Claims{AccountID: accountID.String(), TokenType: auth.TokenTypeAccess}
	claims.ID = "jti-" + accountID.String()[:8]
	return claims
}
