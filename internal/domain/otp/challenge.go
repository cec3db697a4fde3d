package otp

import (
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/shared"
)

// Channel is the delivery medium for a code
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// IsValid reports whether c is a known channel
func (c Channel) IsValid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// Purpose is the reason a code was requested
type Purpose string

const (
	PurposeLogin         Purpose = "login"
	PurposeEmailVerify   Purpose = "email_verify"
	PurposePasswordReset Purpose = "password_reset"
)

// IsValid reports whether p is a known purpose
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeLogin, PurposeEmailVerify, PurposePasswordReset:
		return true
	}
	return false
}

// Scope identifies the challenges that compete for the "current" slot.
// AccountID is nil for identifier-scoped (hybrid) challenges and set for
// challenges issued to an already authenticated account.
type Scope struct {
	Identifier string
	AccountID  *uuid.UUID
	Channel    Channel
	Purpose    Purpose
}

// Validate checks the scope is complete
func (s Scope) Validate() error {
	if s.Identifier == "" {
		return shared.NewValidationError("Identifier is required", "identifier")
	}
	if !s.Channel.IsValid() {
		return shared.NewValidationError("Unsupported channel", "channel")
	}
	if !s.Purpose.IsValid() {
		return shared.NewValidationError("Unsupported purpose", "purpose")
	}
	return nil
}

// Challenge is a single issued OTP. The raw code is never stored.
// ConsumedAt is terminal: a consumed, expired or exhausted challenge is
// never revived, only superseded by a new one.
type Challenge struct {
	shared.BaseEntity
	Identifier   string
	AccountID    *uuid.UUID
	Channel      Channel
	Purpose      Purpose
	CodeHash     string
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
	AttemptCount int
	LastSentAt   *time.Time
}

// NewChallenge allocates a challenge for scope. The id is assigned up front
// because the code hash is keyed on it; call Rotate before persisting.
func NewChallenge(scope Scope, now time.Time) *Challenge {
	return &Challenge{
		BaseEntity: shared.NewBaseEntityAt(now),
		Identifier: scope.Identifier,
		AccountID:  scope.AccountID,
		Channel:    scope.Channel,
		Purpose:    scope.Purpose,
	}
}

// Scope returns the scope the challenge belongs to
func (c *Challenge) Scope() Scope {
	return Scope{Identifier: c.Identifier, AccountID: c.AccountID, Channel: c.Channel, Purpose: c.Purpose}
}

// IsConsumed reports whether the challenge was used
func (c *Challenge) IsConsumed() bool {
	return c.ConsumedAt != nil
}

// IsExpired reports whether the challenge expired at now
func (c *Challenge) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// AttemptsExhausted reports whether the failed-attempt budget is spent
func (c *Challenge) AttemptsExhausted(maxAttempts int) bool {
	return c.AttemptCount >= maxAttempts
}

// IsActive reports whether the challenge can still be verified
func (c *Challenge) IsActive(now time.Time, maxAttempts int) bool {
	return !c.IsConsumed() && !c.IsExpired(now) && !c.AttemptsExhausted(maxAttempts)
}

// SentWithin reports whether the code was delivered less than window ago
func (c *Challenge) SentWithin(window time.Duration, now time.Time) bool {
	return c.LastSentAt != nil && !c.LastSentAt.Before(now.Add(-window))
}

// Rotate installs a new code hash, resets the attempt budget and restarts
// the expiry clock.
func (c *Challenge) Rotate(codeHash string, ttl time.Duration, now time.Time) error {
	if c.IsConsumed() {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot rotate a consumed challenge")
	}
	c.CodeHash = codeHash
	c.ExpiresAt = now.Add(ttl)
	c.AttemptCount = 0
	sent := now
	c.LastSentAt = &sent
	c.Touch(now)
	return nil
}

// RecordFailedAttempt spends one attempt from the budget
func (c *Challenge) RecordFailedAttempt(now time.Time) {
	c.AttemptCount++
	c.Touch(now)
}

// Consume marks the challenge used. It fails if already consumed.
func (c *Challenge) Consume(now time.Time) error {
	if c.IsConsumed() {
		return ErrNotRequested
	}
	c.ConsumedAt = &now
	c.Touch(now)
	return nil
}

// MarkUnsent clears the delivery stamp so the next request sends again
func (c *Challenge) MarkUnsent(now time.Time) {
	c.LastSentAt = nil
	c.Touch(now)
}
