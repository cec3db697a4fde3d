package router

import (
	"github.com/gin-gonic/gin"
	"github.com/merchant/backend/internal/interfaces/http/handler"
)

// Guards are the per-route middleware of the merchant API.
// OTPLimit may be nil when OTP throttling is disabled.
type Guards struct {
	Authenticate gin.HandlerFunc
	OTPLimit     gin.HandlerFunc
}

// AuthRoutes registers the sign-in, registration and session endpoints.
// Everything is public except logout.
func AuthRoutes(h *handler.AuthHandler, guards Guards) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	g.POST("/entry", h.Entry)
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", guards.Authenticate, h.Logout)

	otpGroup := g.Group("otp", "/otp")
	otpGroup.POST("/request", guards.OTPLimit, h.RequestOTP)
	otpGroup.POST("/verify", guards.OTPLimit, h.VerifyOTP)

	loginOTP := g.Group("login-otp", "/login-otp")
	loginOTP.POST("/request", guards.OTPLimit, h.RequestLoginOTP)
	loginOTP.POST("/verify", guards.OTPLimit, h.VerifyLoginOTP)

	return g
}

// MerchantRoutes registers the authenticated onboarding endpoints
func MerchantRoutes(h *handler.MerchantHandler, guards Guards) *DomainGroup {
	g := NewDomainGroup("merchant", "/merchant")
	g.Use(guards.Authenticate)
	g.GET("/next-step", h.NextStep)
	g.POST("/profile/complete", h.CompleteProfile)

	email := g.Group("email", "/email/verify")
	email.POST("/request", guards.OTPLimit, h.RequestEmailVerification)
	email.POST("", guards.OTPLimit, h.VerifyEmail)

	onboarding := g.Group("onboarding", "/onboarding")
	onboarding.POST("/country", h.SelectCountry)
	onboarding.POST("/business-types", h.SelectBusinessTypes)
	onboarding.POST("/store", h.CreateStore)

	return g
}
