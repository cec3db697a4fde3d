package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	appidentity "github.com/merchant/backend/internal/application/identity"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/interfaces/http/dto"
	"github.com/merchant/backend/internal/interfaces/http/middleware"
)

// AuthService is the authentication surface used by AuthHandler
type AuthService interface {
	ResolveAuthEntry(ctx context.Context, rawIdentifier string) (*identity.AuthEntry, error)
	Register(ctx context.Context, input appidentity.RegisterInput) (*appidentity.RegisterResult, error)
	Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error)
	RequestOTP(ctx context.Context, input appidentity.RequestOTPInput) (*appidentity.RequestOTPResult, error)
	VerifyOTP(ctx context.Context, input appidentity.VerifyOTPInput) (*appidentity.OTPSessionResult, error)
	RequestLoginOTP(ctx context.Context, rawIdentifier string) (*appidentity.EmailCodeResult, error)
	VerifyLoginOTP(ctx context.Context, rawIdentifier, code string) (*appidentity.OTPSessionResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*appidentity.TokenResult, error)
	Logout(ctx context.Context, input appidentity.LogoutInput) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Entry godoc
// @Summary      Resolve sign-in options
// @Description  Tells the client whether the identifier has an account and which methods apply
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body AuthEntryRequest true "Identifier"
// @Success      200 {object} dto.Response{data=AuthEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/entry [post]
func (h *AuthHandler) Entry(c *gin.Context) {
	var req AuthEntryRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	entry, err := h.authService.ResolveAuthEntry(c.Request.Context(), req.Identifier)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAuthEntryResponse(entry))
}

// Register godoc
// @Summary      Register a merchant
// @Description  Creates a password account and starts onboarding
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration"
// @Success      201 {object} dto.Response{data=SessionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), appidentity.RegisterInput{
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

	h.Created(c, SessionResponse{
		Account:     toAccountResponse(result.Account),
		Token:       toTokenResponse(result.Tokens),
		OTPRequired: result.OTPRequired,
		NextStep:    string(result.NextStep),
	})
}

// Login godoc
// @Summary      Password login
// @Description  Authenticate with an email or phone number and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=SessionResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), appidentity.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SessionResponse{
		Account:     toAccountResponse(result.Account),
		Token:       toTokenResponse(result.Tokens),
		OTPRequired: result.OTPRequired,
		HasStore:    result.HasStore,
		NextStep:    string(result.NextStep),
	})
}

// RequestOTP godoc
// @Summary      Request a one-time code
// @Description  Sends a code to an email address or phone number, with or without an account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body OTPRequest true "Identifier and purpose"
// @Success      200 {object} dto.Response{data=OTPIssuedResponse}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/otp/request [post]
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req OTPRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.RequestOTP(c.Request.Context(), appidentity.RequestOTPInput{
		Identifier: req.Identifier,
		Purpose:    otp.Purpose(req.Purpose),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, OTPIssuedResponse{
		Identifier: result.Identifier,
		Channel:    string(result.Channel),
		ExpiresAt:  result.ExpiresAt,
		Sent:       result.Sent,
	})
}

// VerifyOTP godoc
// @Summary      Verify a one-time code
// @Description  Verifies a code and opens a session; unknown identifiers get a new account on login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body OTPVerifyRequest true "Identifier and code"
// @Success      200 {object} dto.Response{data=OTPSessionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.VerifyOTP(c.Request.Context(), appidentity.VerifyOTPInput{
		Identifier: req.Identifier,
		Code:       req.Code,
		Purpose:    otp.Purpose(req.Purpose),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOTPSessionResponse(result))
}

// RequestLoginOTP godoc
// @Summary      Request an emailed sign-in code
// @Description  Sends a sign-in code to the email of an existing account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginOTPRequest true "Identifier"
// @Success      200 {object} dto.Response{data=OTPIssuedResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login-otp/request [post]
func (h *AuthHandler) RequestLoginOTP(c *gin.Context) {
	var req LoginOTPRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.RequestLoginOTP(c.Request.Context(), req.Identifier)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, OTPIssuedResponse{
		Identifier: result.Email,
		Channel:    string(otp.ChannelEmail),
		ExpiresAt:  result.ExpiresAt,
		Sent:       result.Sent,
	})
}

// VerifyLoginOTP godoc
// @Summary      Verify an emailed sign-in code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginOTPVerifyRequest true "Identifier and code"
// @Success      200 {object} dto.Response{data=OTPSessionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login-otp/verify [post]
func (h *AuthHandler) VerifyLoginOTP(c *gin.Context) {
	var req LoginOTPVerifyRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.VerifyLoginOTP(c.Request.Context(), req.Identifier, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOTPSessionResponse(result))
}

// Refresh godoc
// @Summary      Refresh the session
// @Description  Rotates the token pair; the presented refresh token is revoked
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} dto.Response{data=RefreshTokenResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	tokens, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RefreshTokenResponse{Token: toTokenResponse(*tokens)})
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the access token and, when given, the refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body LogoutRequest false "Refresh token"
// @Success      200 {object} dto.Response{data=LogoutResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	// body is optional
	var req LogoutRequest
	if c.Request.ContentLength > 0 && !middleware.BindJSON(c, &req) {
		return
	}

	err := h.authService.Logout(c.Request.Context(), appidentity.LogoutInput{
		AccessTokenID:  claims.ID,
		AccessTokenTTL: claims.GetRemainingTTL(),
		RefreshToken:   req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, LogoutResponse{LoggedOut: true})
}
