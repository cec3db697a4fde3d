package otp

import (
	"errors"
	"time"

	"github.com/merchant/backend/internal/domain/shared"
)

// OTP error codes. The lower-cased code is the reason reported to clients
// and telemetry (e.g. otp_expired).
const (
	CodeInvalidFormat   = "OTP_INVALID_FORMAT"
	CodeWrong           = "OTP_WRONG"
	CodeNotRequested    = "OTP_NOT_REQUESTED"
	CodeExpired         = "OTP_EXPIRED"
	CodeTooManyAttempts = "OTP_TOO_MANY_ATTEMPTS"
	CodeRateLimited     = "OTP_RATE_LIMITED"
	CodeDeliveryFailed  = "OTP_DELIVERY_FAILED"
)

var (
	ErrInvalidFormat   = shared.NewFieldError(CodeInvalidFormat, "Code must be 6 digits", "code")
	ErrWrong           = shared.NewFieldError(CodeWrong, "Invalid verification code", "code")
	ErrNotRequested    = shared.NewDomainError(CodeNotRequested, "No verification code was requested")
	ErrExpired         = shared.NewDomainError(CodeExpired, "Verification code has expired")
	ErrTooManyAttempts = shared.NewDomainError(CodeTooManyAttempts, "Too many attempts, request a new code")
	ErrRateLimited     = shared.NewDomainError(CodeRateLimited, "Too many code requests, try again later")
	ErrDeliveryFailed  = shared.NewDomainError(CodeDeliveryFailed, "Could not deliver the verification code")
)

// NewRateLimitedError returns a rate limit error telling the caller when to retry
func NewRateLimitedError(message string, retryAfter time.Duration) *shared.DomainError {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &shared.DomainError{Code: CodeRateLimited, Message: message, RetryAfter: retryAfter}
}

// IsReason reports whether err is a domain error with the given code
func IsReason(err error, code string) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && de.Code == code
}
