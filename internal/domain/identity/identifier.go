package identity

import (
	"regexp"
	"strings"

	"github.com/merchant/backend/internal/domain/shared"
)

// IdentifierType classifies a login identifier
type IdentifierType string

const (
	IdentifierTypeEmail IdentifierType = "email"
	IdentifierTypePhone IdentifierType = "phone"
)

// Identifier is a normalized login identifier
type Identifier struct {
	Value string
	Type  IdentifierType
}

// IsEmail reports whether the identifier is an email address
func (i Identifier) IsEmail() bool {
	return i.Type == IdentifierTypeEmail
}

// String returns the normalized value
func (i Identifier) String() string {
	return i.Value
}

var phoneSeparators = regexp.MustCompile(`[\s\-()]+`)

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizePhone trims a phone number, strips whitespace, hyphens and
// parentheses, and rewrites a leading international "00" as "+".
func NormalizePhone(raw string) string {
	phone := phoneSeparators.ReplaceAllString(strings.TrimSpace(raw), "")
	if strings.HasPrefix(phone, "00") {
		phone = "+" + phone[2:]
	}
	return phone
}

// NormalizeIdentifier classifies raw as email (contains "@") or phone and
// normalizes it accordingly.
func NormalizeIdentifier(raw string) (Identifier, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Identifier{}, shared.NewValidationError("Identifier is required", "identifier")
	}
	if strings.Contains(value, "@") {
		return Identifier{Value: NormalizeEmail(value), Type: IdentifierTypeEmail}, nil
	}
	phone := NormalizePhone(value)
	if phone == "" {
		return Identifier{}, shared.NewValidationError("Identifier is required", "identifier")
	}
	return Identifier{Value: phone, Type: IdentifierTypePhone}, nil
}
