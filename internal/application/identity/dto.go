package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/infrastructure/auth"
)

// AccountInfo is the account summary returned to clients
type AccountInfo struct {
	ID            uuid.UUID
	Username      string
	Email         string
	FullName      string
	Phone         string
	EmailVerified bool
	HasPassword   bool
}

// TokenResult is an issued session token pair
type TokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

func newTokenResult(pair *auth.TokenPair) TokenResult {
	return TokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}

// RegisterInput contains the registration form
type RegisterInput struct {
	FullName    string
	Phone       string
	Email       string
	Password    string
	AcceptTerms bool
}

// RegisterResult contains the created account and its first session
type RegisterResult struct {
	Account     AccountInfo
	Tokens      TokenResult
	OTPRequired bool
	NextStep    identity.AuthNextStep
}

// LoginInput contains password login credentials
type LoginInput struct {
	Identifier string
	Password   string
}

// LoginResult contains the session opened by a password login
type LoginResult struct {
	Account     AccountInfo
	Tokens      TokenResult
	OTPRequired bool
	HasStore    bool
	NextStep    identity.AuthNextStep
}

// RequestOTPInput asks for a hybrid code for an identifier
type RequestOTPInput struct {
	Identifier string
	Purpose    otp.Purpose // defaults to login
}

// RequestOTPResult reports where a code was sent. Sent is false when the
// current code was delivered recently and the request was suppressed.
type RequestOTPResult struct {
	Identifier string
	Channel    otp.Channel
	ExpiresAt  time.Time
	Sent       bool
}

// VerifyOTPInput submits a hybrid code
type VerifyOTPInput struct {
	Identifier string
	Code       string
	Purpose    otp.Purpose // defaults to login
}

// OTPSessionResult is the session opened by a successful code verification
type OTPSessionResult struct {
	Account  AccountInfo
	Created  bool
	Channel  otp.Channel
	Tokens   TokenResult
	NextStep identity.NextStep
}

// EmailCodeResult reports an own-account code issuance
type EmailCodeResult struct {
	Email     string
	ExpiresAt time.Time
	Sent      bool
}

// VerifyEmailResult reports a completed email verification
type VerifyEmailResult struct {
	EmailVerified bool
	NextStep      identity.NextStep
}

// LogoutInput identifies the tokens to revoke
type LogoutInput struct {
	AccessTokenID  string
	AccessTokenTTL time.Duration
	RefreshToken   string // optional
}

// CompleteProfileInput is the profile completion form
type CompleteProfileInput struct {
	FullName    string
	Phone       string
	Email       string
	Password    string
	AcceptTerms bool
}

// CompleteProfileResult reports whether the email still needs a code
type CompleteProfileResult struct {
	Account     AccountInfo
	OTPRequired bool
	NextStep    identity.NextStep
}

// OnboardingResult is the state after an onboarding step
type OnboardingResult struct {
	Stage         identity.OnboardingStage
	Country       identity.CountryCode
	BusinessTypes []identity.BusinessType
	NextStep      identity.NextStep
}

// CreateStoreInput is the store form
type CreateStoreInput struct {
	Name string
	Slug string
}

// CreateStoreResult describes the created store
type CreateStoreResult struct {
	StoreID  uuid.UUID
	Name     string
	Slug     string
	Currency string
	Language string
	NextStep identity.NextStep
}

// NextStepResult is the navigation target for a session
type NextStepResult struct {
	NextStep        identity.NextStep
	OnboardingStep  identity.OnboardingStep
	ProfileComplete bool
	OTPRequired     bool
	HasStore        bool
}

func newAccountInfo(account *identity.Account, profile *identity.AccountProfile) AccountInfo {
	info := AccountInfo{
		ID:          account.ID,
		Username:    account.Username,
		Email:       account.Email,
		HasPassword: account.HasUsablePassword(),
	}
	if profile != nil {
		info.FullName = profile.FullName
		info.Phone = profile.Phone
		info.EmailVerified = profile.IsEmailVerified()
	}
	return info
}
