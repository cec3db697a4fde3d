package otp

import (
	"time"

	"github.com/merchant/backend/internal/domain/shared"
)

// Policy holds the issuance and verification limits of one OTP flow
type Policy struct {
	TTL                time.Duration
	MaxAttempts        int
	RateLimitWindow    time.Duration
	RateLimitThreshold int
	ResendWindow       time.Duration
}

// DefaultHybridPolicy is used by the anonymous login-or-register flow
func DefaultHybridPolicy() Policy {
	return Policy{
		TTL:                5 * time.Minute,
		MaxAttempts:        5,
		RateLimitWindow:    10 * time.Minute,
		RateLimitThreshold: 3,
		ResendWindow:       10 * time.Minute,
	}
}

// DefaultEmailPolicy is used by own-account email codes
func DefaultEmailPolicy() Policy {
	p := DefaultHybridPolicy()
	p.TTL = 10 * time.Minute
	return p
}

// Validate rejects non-positive limits
func (p Policy) Validate() error {
	switch {
	case p.TTL <= 0:
		return shared.NewValidationError("OTP ttl must be positive", "ttl")
	case p.MaxAttempts <= 0:
		return shared.NewValidationError("OTP max attempts must be positive", "max_attempts")
	case p.RateLimitWindow <= 0:
		return shared.NewValidationError("OTP rate limit window must be positive", "rate_limit_window")
	case p.RateLimitThreshold <= 0:
		return shared.NewValidationError("OTP rate limit threshold must be positive", "rate_limit_threshold")
	case p.ResendWindow < 0:
		return shared.NewValidationError("OTP resend window must not be negative", "resend_window")
	}
	return nil
}
