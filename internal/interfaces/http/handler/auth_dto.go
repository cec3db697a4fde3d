package handler

import (
	"time"

	"github.com/google/uuid"
	appidentity "github.com/merchant/backend/internal/application/identity"
	"github.com/merchant/backend/internal/domain/identity"
)

// =====================
// Auth Request DTOs
// =====================

// AuthEntryRequest asks which sign-in methods apply to an identifier
type AuthEntryRequest struct {
	Identifier string `json:"identifier" binding:"required,max=254"`
}

// RegisterRequest creates a password account. Field rules are enforced by
// the account policies so errors name the offending field.
type RegisterRequest struct {
	FullName    string `json:"full_name" binding:"max=200"`
	Phone       string `json:"phone" binding:"max=32"`
	Email       string `json:"email" binding:"max=254"`
	Password    string `json:"password" binding:"max=128"`
	AcceptTerms bool   `json:"accept_terms"`
}

// LoginRequest signs in with an identifier and password
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required,max=254"`
	Password   string `json:"password" binding:"max=128"`
}

// OTPRequest asks for a one-time code
type OTPRequest struct {
	Identifier string `json:"identifier" binding:"required,max=254"`
	Purpose    string `json:"purpose" binding:"omitempty,oneof=login password_reset"`
}

// OTPVerifyRequest submits a one-time code
type OTPVerifyRequest struct {
	Identifier string `json:"identifier" binding:"required,max=254"`
	Code       string `json:"code" binding:"required,max=16"`
	Purpose    string `json:"purpose" binding:"omitempty,oneof=login password_reset"`
}

// LoginOTPRequest asks for an emailed sign-in code
type LoginOTPRequest struct {
	Identifier string `json:"identifier" binding:"required,max=254"`
}

// LoginOTPVerifyRequest submits an emailed sign-in code
type LoginOTPVerifyRequest struct {
	Identifier string `json:"identifier" binding:"required,max=254"`
	Code       string `json:"code" binding:"required,max=16"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the session
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// =====================
// Auth Response DTOs
// =====================

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

func toTokenResponse(t appidentity.TokenResult) TokenResponse {
	return TokenResponse{
		AccessToken:           t.AccessToken,
		RefreshToken:          t.RefreshToken,
		AccessTokenExpiresAt:  t.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: t.RefreshTokenExpiresAt,
		TokenType:             t.TokenType,
	}
}

// AccountResponse is the public view of a merchant account
type AccountResponse struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	FullName      string    `json:"full_name,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	HasPassword   bool      `json:"has_password"`
}

func toAccountResponse(a appidentity.AccountInfo) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		Phone:         a.Phone,
		EmailVerified: a.EmailVerified,
		HasPassword:   a.HasPassword,
	}
}

// AuthEntryResponse lists the sign-in options for an identifier
type AuthEntryResponse struct {
	AccountExists    bool     `json:"account_exists"`
	Identifier       string   `json:"identifier"`
	IdentifierType   string   `json:"identifier_type"`
	AvailableMethods []string `json:"available_methods"`
	DefaultMethod    string   `json:"default_method"`
	CanRegister      bool     `json:"can_register"`
	HasEmail         bool     `json:"has_email"`
	HasPassword      bool     `json:"has_password"`
	SocialProviders  []string `json:"social_providers"`
}

func toAuthEntryResponse(e *identity.AuthEntry) AuthEntryResponse {
	methods := make([]string, len(e.AvailableMethods))
	for i, m := range e.AvailableMethods {
		methods[i] = string(m)
	}
	social := make([]string, len(e.SocialProviders))
	for i, p := range e.SocialProviders {
		social[i] = string(p)
	}
	return AuthEntryResponse{
		AccountExists:    e.AccountExists,
		Identifier:       e.Identifier.Value,
		IdentifierType:   string(e.Identifier.Type),
		AvailableMethods: methods,
		DefaultMethod:    string(e.DefaultMethod),
		CanRegister:      e.CanRegister,
		HasEmail:         e.HasEmail,
		HasPassword:      e.HasPassword,
		SocialProviders:  social,
	}
}

// SessionResponse is returned by register and password login
type SessionResponse struct {
	Account     AccountResponse `json:"account"`
	Token       TokenResponse   `json:"token"`
	OTPRequired bool            `json:"otp_required"`
	HasStore    bool            `json:"has_store,omitempty"`
	NextStep    string          `json:"next_step"`
}

// OTPIssuedResponse describes an issued code without revealing it
type OTPIssuedResponse struct {
	Identifier string    `json:"identifier"`
	Channel    string    `json:"channel,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	Sent       bool      `json:"sent"`
}

// OTPSessionResponse is returned after a successful code sign-in
type OTPSessionResponse struct {
	Account  AccountResponse `json:"account"`
	Created  bool            `json:"created"`
	Channel  string          `json:"channel"`
	Token    TokenResponse   `json:"token"`
	NextStep string          `json:"next_step"`
}

func toOTPSessionResponse(r *appidentity.OTPSessionResult) OTPSessionResponse {
	return OTPSessionResponse{
		Account:  toAccountResponse(r.Account),
		Created:  r.Created,
		Channel:  string(r.Channel),
		Token:    toTokenResponse(r.Tokens),
		NextStep: string(r.NextStep),
	}
}

// RefreshTokenResponse carries a rotated token pair
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

// LogoutResponse confirms a logout
type LogoutResponse struct {
	LoggedOut bool `json:"logged_out"`
}
