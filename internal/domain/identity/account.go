package identity

import (
	"strings"
	"time"

	"github.com/merchant/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost is the bcrypt cost for account passwords
var passwordHashCost = bcrypt.DefaultCost

// Account is the login identity of a merchant.
// Username holds the login identifier: a normalized phone number or a
// normalized email address. PasswordHash is empty for OTP-only accounts.
type Account struct {
	shared.BaseEntity
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
}

// NewAccount creates an active account without a usable password
func NewAccount(username, email string, now time.Time) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, shared.NewValidationError("Identifier is required", "identifier")
	}
	return &Account{
		BaseEntity: shared.NewBaseEntityAt(now),
		Username:   username,
		Email:      NormalizeEmail(email),
		IsActive:   true,
	}, nil
}

// NewAccountForIdentifier creates an OTP-only account from a verified identifier.
// Email identifiers become both username and email; phone identifiers only the username.
func NewAccountForIdentifier(id Identifier, now time.Time) (*Account, error) {
	if id.IsEmail() {
		return NewAccount(id.Value, id.Value, now)
	}
	return NewAccount(id.Value, "", now)
}

// SetPassword validates and stores a bcrypt hash of password
func (a *Account) SetPassword(password string, now time.Time) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	a.PasswordHash = string(hash)
	a.Touch(now)
	return nil
}

// VerifyPassword reports whether password matches the stored hash
func (a *Account) VerifyPassword(password string) bool {
	if !a.HasUsablePassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// HasUsablePassword reports whether password login is possible
func (a *Account) HasUsablePassword() bool {
	return a.PasswordHash != ""
}

// HasEmail reports whether the account has an email address
func (a *Account) HasEmail() bool {
	return strings.TrimSpace(a.Email) != ""
}

// SetEmail sets the normalized email address
func (a *Account) SetEmail(email string, now time.Time) {
	a.Email = NormalizeEmail(email)
	a.Touch(now)
}

// SetUsername replaces the login identifier
func (a *Account) SetUsername(username string, now time.Time) {
	a.Username = strings.TrimSpace(username)
	a.Touch(now)
}

// RecordLogin stamps the last successful login
func (a *Account) RecordLogin(now time.Time) {
	a.LastLoginAt = &now
	a.Touch(now)
}
