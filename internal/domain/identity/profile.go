package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/shared"
)

// AccountProfile holds merchant details, 1:1 with Account.
// Phone is unique across profiles when present.
type AccountProfile struct {
	shared.BaseEntity
	AccountID       uuid.UUID
	FullName        string
	Phone           string
	Country         CountryCode
	BusinessTypes   []BusinessType
	AcceptedTermsAt *time.Time
	EmailVerifiedAt *time.Time
}

// NewAccountProfile creates an empty profile for an account
func NewAccountProfile(accountID uuid.UUID, now time.Time) *AccountProfile {
	return &AccountProfile{
		BaseEntity:    shared.NewBaseEntityAt(now),
		AccountID:     accountID,
		BusinessTypes: make([]BusinessType, 0),
	}
}

// MarkEmailVerified sets the verification timestamp once.
// Returns false when the email was already verified; the existing timestamp is kept.
func (p *AccountProfile) MarkEmailVerified(now time.Time) bool {
	if p.EmailVerifiedAt != nil {
		return false
	}
	p.EmailVerifiedAt = &now
	p.Touch(now)
	return true
}

// IsEmailVerified reports whether the email was verified
func (p *AccountProfile) IsEmailVerified() bool {
	return p.EmailVerifiedAt != nil
}

// AcceptTerms records terms acceptance once
func (p *AccountProfile) AcceptTerms(now time.Time) {
	if p.AcceptedTermsAt == nil {
		p.AcceptedTermsAt = &now
		p.Touch(now)
	}
}

// SetFullName sets the display name
func (p *AccountProfile) SetFullName(name string, now time.Time) {
	p.FullName = name
	p.Touch(now)
}

// SetPhone sets the profile phone
func (p *AccountProfile) SetPhone(phone string, now time.Time) {
	p.Phone = phone
	p.Touch(now)
}

// SetCountry sets the selected country
func (p *AccountProfile) SetCountry(country CountryCode, now time.Time) {
	p.Country = country
	p.Touch(now)
}

// SetBusinessTypes replaces the business type selection
func (p *AccountProfile) SetBusinessTypes(types []BusinessType, now time.Time) {
	p.BusinessTypes = append(make([]BusinessType, 0, len(types)), types...)
	p.Touch(now)
}

// CountrySelected reports whether a country was chosen
func (p *AccountProfile) CountrySelected() bool {
	return p != nil && strings.TrimSpace(string(p.Country)) != ""
}

// BusinessTypesSelected reports whether at least one business type was chosen
func (p *AccountProfile) BusinessTypesSelected() bool {
	return p != nil && len(p.BusinessTypes) > 0
}

// IsComplete reports whether the merchant finished the profile form:
// name, phone, accepted terms and a usable password on the account.
func (p *AccountProfile) IsComplete(account *Account) bool {
	if p == nil || account == nil {
		return false
	}
	return strings.TrimSpace(p.FullName) != "" &&
		p.Phone != "" &&
		p.AcceptedTermsAt != nil &&
		account.HasUsablePassword()
}

// OTPRequired reports whether the account still has an unverified email
func (p *AccountProfile) OTPRequired(account *Account) bool {
	if p == nil || account == nil {
		return false
	}
	return account.HasEmail() && !p.IsEmailVerified()
}
