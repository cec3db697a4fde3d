package handler

import (
	"time"

	"github.com/google/uuid"
	appidentity "github.com/merchant/backend/internal/application/identity"
)

// VerifyEmailRequest submits the emailed verification code
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required,max=16"`
}

// CompleteProfileRequest fills in the merchant profile
type CompleteProfileRequest struct {
	FullName    string `json:"full_name" binding:"max=200"`
	Phone       string `json:"phone" binding:"max=32"`
	Email       string `json:"email" binding:"max=254"`
	Password    string `json:"password" binding:"max=128"`
	AcceptTerms bool   `json:"accept_terms"`
}

// SelectCountryRequest picks the operating country
type SelectCountryRequest struct {
	Country string `json:"country" binding:"required,max=8"`
}

// SelectBusinessTypesRequest picks the business categories
type SelectBusinessTypesRequest struct {
	BusinessTypes []string `json:"business_types" binding:"required,max=16"`
}

// CreateStoreRequest creates the first store
type CreateStoreRequest struct {
	Name string `json:"name" binding:"max=200"`
	Slug string `json:"slug" binding:"max=100"`
}

// NextStepResponse tells the client where to send the merchant
type NextStepResponse struct {
	NextStep        string `json:"next_step"`
	OnboardingStep  string `json:"onboarding_step,omitempty"`
	ProfileComplete bool   `json:"profile_complete"`
	OTPRequired     bool   `json:"otp_required"`
	HasStore        bool   `json:"has_store"`
}

// EmailCodeResponse describes an issued email verification code
type EmailCodeResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Sent      bool      `json:"sent"`
}

// VerifyEmailResponse confirms email verification
type VerifyEmailResponse struct {
	EmailVerified bool   `json:"email_verified"`
	NextStep      string `json:"next_step"`
}

// CompleteProfileResponse returns the updated account
type CompleteProfileResponse struct {
	Account     AccountResponse `json:"account"`
	OTPRequired bool            `json:"otp_required"`
	NextStep    string          `json:"next_step"`
}

// OnboardingResponse reports the onboarding record after a selection
type OnboardingResponse struct {
	Stage         string   `json:"stage"`
	Country       string   `json:"country,omitempty"`
	BusinessTypes []string `json:"business_types,omitempty"`
	NextStep      string   `json:"next_step"`
}

func toOnboardingResponse(r *appidentity.OnboardingResult) OnboardingResponse {
	types := make([]string, len(r.BusinessTypes))
	for i, t := range r.BusinessTypes {
		types[i] = string(t)
	}
	return OnboardingResponse{
		Stage:         string(r.Stage),
		Country:       string(r.Country),
		BusinessTypes: types,
		NextStep:      string(r.NextStep),
	}
}

// StoreResponse describes a created store
type StoreResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Currency string    `json:"currency"`
	Language string    `json:"language"`
	NextStep string    `json:"next_step"`
}
