package dto

import (
	"net/http"

	appidentity "github.com/merchant/backend/internal/application/identity"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/domain/shared"
)

// General error codes
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Authentication error codes
const (
	ErrCodeUnauthorized           = "ERR_UNAUTHORIZED"
	ErrCodeAuthenticationRequired = "ERR_AUTHENTICATION_REQUIRED"
	ErrCodeInvalidCredentials     = "ERR_INVALID_CREDENTIALS"
	ErrCodeForbidden              = "ERR_FORBIDDEN"
	ErrCodeAccountInactive        = "ERR_ACCOUNT_INACTIVE"
	ErrCodeTokenExpired           = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid           = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked           = "ERR_TOKEN_REVOKED"
	ErrCodeTokenMaxRefresh        = "ERR_TOKEN_MAX_REFRESH"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is returned by the per-client request throttle
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// One-time code errors keep their domain codes on the wire.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeUnauthorized:           http.StatusUnauthorized,
	ErrCodeAuthenticationRequired: http.StatusUnauthorized,
	ErrCodeInvalidCredentials:     http.StatusUnauthorized,
	ErrCodeTokenExpired:           http.StatusUnauthorized,
	ErrCodeTokenInvalid:           http.StatusUnauthorized,
	ErrCodeTokenRevoked:           http.StatusUnauthorized,
	ErrCodeTokenMaxRefresh:        http.StatusUnauthorized,
	ErrCodeForbidden:              http.StatusForbidden,
	ErrCodeAccountInactive:        http.StatusForbidden,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	otp.CodeInvalidFormat:   http.StatusBadRequest,
	otp.CodeWrong:           http.StatusBadRequest,
	otp.CodeNotRequested:    http.StatusBadRequest,
	otp.CodeExpired:         http.StatusGone,
	otp.CodeTooManyAttempts: http.StatusTooManyRequests,
	otp.CodeRateLimited:     http.StatusTooManyRequests,
	otp.CodeDeliveryFailed:  http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodeMapping maps domain error codes to the wire codes
var domainCodeMapping = map[string]string{
	shared.CodeNotFound:               ErrCodeNotFound,
	shared.CodeAlreadyExists:          ErrCodeAlreadyExists,
	shared.CodeInvalidInput:           ErrCodeInvalidInput,
	shared.CodeValidation:             ErrCodeValidation,
	shared.CodeInvalidState:           ErrCodeInvalidState,
	shared.CodeUnauthorized:           ErrCodeUnauthorized,
	shared.CodeAuthenticationRequired: ErrCodeAuthenticationRequired,
	shared.CodeInvalidCredentials:     ErrCodeInvalidCredentials,
	appidentity.CodeAccountInactive:   ErrCodeAccountInactive,
	appidentity.CodeTokenExpired:      ErrCodeTokenExpired,
	appidentity.CodeTokenInvalid:      ErrCodeTokenInvalid,
	appidentity.CodeTokenRevoked:      ErrCodeTokenRevoked,
	appidentity.CodeTokenMaxRefresh:   ErrCodeTokenMaxRefresh,
}

// NormalizeErrorCode converts a domain error code to its wire code.
// Codes without a mapping (the OTP_* family) are returned unchanged.
func NormalizeErrorCode(code string) string {
	if wire, ok := domainCodeMapping[code]; ok {
		return wire
	}
	return code
}
