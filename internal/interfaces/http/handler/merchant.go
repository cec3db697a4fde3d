package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/merchant/backend/internal/application/identity"
	"github.com/merchant/backend/internal/interfaces/http/middleware"
)

// EmailVerifier issues and checks own-account email codes
type EmailVerifier interface {
	RequestEmailVerification(ctx context.Context, accountID uuid.UUID) (*appidentity.EmailCodeResult, error)
	VerifyEmail(ctx context.Context, accountID uuid.UUID, code string) (*appidentity.VerifyEmailResult, error)
}

// OnboardingService is the onboarding surface used by MerchantHandler
type OnboardingService interface {
	NextStep(ctx context.Context, accountID uuid.UUID) (*appidentity.NextStepResult, error)
	CompleteProfile(ctx context.Context, accountID uuid.UUID, input appidentity.CompleteProfileInput) (*appidentity.CompleteProfileResult, error)
	SelectCountry(ctx context.Context, accountID uuid.UUID, rawCountry string) (*appidentity.OnboardingResult, error)
	SelectBusinessTypes(ctx context.Context, accountID uuid.UUID, rawTypes []string) (*appidentity.OnboardingResult, error)
	CreateStore(ctx context.Context, accountID uuid.UUID, input appidentity.CreateStoreInput) (*appidentity.CreateStoreResult, error)
}

// MerchantHandler serves the authenticated onboarding endpoints
type MerchantHandler struct {
	BaseHandler
	emails     EmailVerifier
	onboarding OnboardingService
}

// NewMerchantHandler creates a new merchant handler
func NewMerchantHandler(emails EmailVerifier, onboarding OnboardingService) *MerchantHandler {
	return &MerchantHandler{emails: emails, onboarding: onboarding}
}

// NextStep godoc
// @Summary      Resolve the next onboarding step
// @Tags         merchant
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=NextStepResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /merchant/next-step [get]
func (h *MerchantHandler) NextStep(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	result, err := h.onboarding.NextStep(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NextStepResponse{
		NextStep:        string(result.NextStep),
		OnboardingStep:  string(result.OnboardingStep),
		ProfileComplete: result.ProfileComplete,
		OTPRequired:     result.OTPRequired,
		HasStore:        result.HasStore,
	})
}

// RequestEmailVerification godoc
// @Summary      Send an email verification code
// @Tags         merchant
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=EmailCodeResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /merchant/email/verify/request [post]
func (h *MerchantHandler) RequestEmailVerification(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	result, err := h.emails.RequestEmailVerification(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, EmailCodeResponse{Email: result.Email, ExpiresAt: result.ExpiresAt, Sent: result.Sent})
}

// VerifyEmail godoc
// @Summary      Verify the account email
// @Tags         merchant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body VerifyEmailRequest true "Code"
// @Success      200 {object} dto.Response{data=VerifyEmailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /merchant/email/verify [post]
func (h *MerchantHandler) VerifyEmail(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	var req VerifyEmailRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.emails.VerifyEmail(c.Request.Context(), accountID, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, VerifyEmailResponse{EmailVerified: result.EmailVerified, NextStep: string(result.NextStep)})
}

// CompleteProfile godoc
// @Summary      Complete the merchant profile
// @Tags         merchant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CompleteProfileRequest true "Profile"
// @Success      200 {object} dto.Response{data=CompleteProfileResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /merchant/profile/complete [post]
func (h *MerchantHandler) CompleteProfile(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	var req CompleteProfileRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.onboarding.CompleteProfile(c.Request.Context(), accountID, appidentity.CompleteProfileInput{
		FullName:    req.FullName,
		Phone:       req.Phone,
		Email:       req.Email,
		Password:    req.Password,
		AcceptTerms: req.AcceptTerms,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CompleteProfileResponse{
		Account:     toAccountResponse(result.Account),
		OTPRequired: result.OTPRequired,
		NextStep:    string(result.NextStep),
	})
}

// SelectCountry godoc
// @Summary      Select the operating country
// @Tags         merchant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SelectCountryRequest true "Country"
// @Success      200 {object} dto.Response{data=OnboardingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /merchant/onboarding/country [post]
func (h *MerchantHandler) SelectCountry(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	var req SelectCountryRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.onboarding.SelectCountry(c.Request.Context(), accountID, req.Country)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOnboardingResponse(result))
}

// SelectBusinessTypes godoc
// @Summary      Select business categories
// @Tags         merchant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SelectBusinessTypesRequest true "Business types"
// @Success      200 {object} dto.Response{data=OnboardingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /merchant/onboarding/business-types [post]
func (h *MerchantHandler) SelectBusinessTypes(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	var req SelectBusinessTypesRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.onboarding.SelectBusinessTypes(c.Request.Context(), accountID, req.BusinessTypes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOnboardingResponse(result))
}

// CreateStore godoc
// @Summary      Create the merchant's store
// @Tags         merchant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateStoreRequest true "Store"
// @Success      201 {object} dto.Response{data=StoreResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /merchant/onboarding/store [post]
func (h *MerchantHandler) CreateStore(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	var req CreateStoreRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.onboarding.CreateStore(c.Request.Context(), accountID, appidentity.CreateStoreInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, StoreResponse{
		ID:       result.StoreID,
		Name:     result.Name,
		Slug:     result.Slug,
		Currency: result.Currency,
		Language: result.Language,
		NextStep: string(result.NextStep),
	})
}
