package identity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/merchant/backend/internal/domain/shared"
	"golang.org/x/text/unicode/norm"
)

const (
	maxFullNameLength  = 200
	maxPhoneLength     = 32
	maxEmailLength     = 254
	minPasswordLength  = 8
	maxStoreSlugLength = 60
	maxStoreNameLength = 200
	maxBusinessTypes   = 5
)

var (
	phonePattern     = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	emailPattern     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	storeSlugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

var reservedStoreSlugs = map[string]struct{}{
	"admin":     {},
	"api":       {},
	"www":       {},
	"dashboard": {},
	"store":     {},
}

// CountryCode is a supported store country
type CountryCode string

const (
	CountrySA    CountryCode = "SA"
	CountryAE    CountryCode = "AE"
	CountryOther CountryCode = "OTHER"
)

// AllCountryCodes returns the selectable countries in display order
func AllCountryCodes() []CountryCode {
	return []CountryCode{CountrySA, CountryAE, CountryOther}
}

// BusinessType is a store category tag
type BusinessType string

const (
	BusinessTypeFashion     BusinessType = "fashion"
	BusinessTypeElectronics BusinessType = "electronics"
	BusinessTypeFurniture   BusinessType = "furniture"
	BusinessTypeBeauty      BusinessType = "beauty"
	BusinessTypeFood        BusinessType = "food"
	BusinessTypeAccessories BusinessType = "accessories"
	BusinessTypeServices    BusinessType = "services"
)

// AllBusinessTypes returns the selectable business types in display order
func AllBusinessTypes() []BusinessType {
	return []BusinessType{
		BusinessTypeFashion,
		BusinessTypeElectronics,
		BusinessTypeFurniture,
		BusinessTypeBeauty,
		BusinessTypeFood,
		BusinessTypeAccessories,
		BusinessTypeServices,
	}
}

// ValidateFullName returns the trimmed, NFKC-normalized name
func ValidateFullName(raw string) (string, error) {
	name := strings.TrimSpace(norm.NFKC.String(raw))
	if name == "" {
		return "", shared.NewValidationError("Full name is required", "full_name")
	}
	if utf8.RuneCountInString(name) > maxFullNameLength {
		return "", shared.NewValidationError("Full name must be 200 characters or fewer", "full_name")
	}
	return name, nil
}

// ValidatePhone normalizes and validates a phone number
func ValidatePhone(raw string) (string, error) {
	phone := NormalizePhone(raw)
	if phone == "" {
		return "", shared.NewValidationError("Phone number is required", "phone")
	}
	if len(phone) > maxPhoneLength {
		return "", shared.NewValidationError("Phone number is too long", "phone")
	}
	if !phonePattern.MatchString(phone) {
		return "", shared.NewValidationError("Phone must contain digits and may start with '+'", "phone")
	}
	return phone, nil
}

// ValidateEmail normalizes and validates an email address
func ValidateEmail(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return "", shared.NewValidationError("Email is required", "email")
	}
	if len(email) > maxEmailLength {
		return "", shared.NewValidationError("Email must be 254 characters or fewer", "email")
	}
	if !emailPattern.MatchString(email) {
		return "", shared.NewValidationError("Enter a valid email address", "email")
	}
	return email, nil
}

// EnsureTermsAccepted fails unless the terms were accepted
func EnsureTermsAccepted(accepted bool) error {
	if !accepted {
		return shared.NewValidationError("You must accept the terms to continue", "accept_terms")
	}
	return nil
}

// ValidatePassword enforces the minimal password policy
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return shared.NewValidationError("Password must be at least 8 characters", "password")
	}
	allDigits := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return shared.NewValidationError("Password cannot be entirely numeric", "password")
	}
	return nil
}

// ValidateCountryChoice upper-cases and checks the country against the allowed set
func ValidateCountryChoice(raw string) (CountryCode, error) {
	value := CountryCode(strings.ToUpper(strings.TrimSpace(raw)))
	for _, c := range AllCountryCodes() {
		if c == value {
			return value, nil
		}
	}
	return "", shared.NewValidationError("Country selection is required", "country")
}

// ValidateBusinessTypes lower-cases, de-duplicates (keeping order) and checks
// the selection against the allowed set. Between one and five types are required.
func ValidateBusinessTypes(raw []string) ([]BusinessType, error) {
	allowed := make(map[BusinessType]struct{}, len(AllBusinessTypes()))
	for _, b := range AllBusinessTypes() {
		allowed[b] = struct{}{}
	}

	seen := make(map[BusinessType]struct{}, len(raw))
	unique := make([]BusinessType, 0, len(raw))
	for _, v := range raw {
		value := BusinessType(strings.ToLower(strings.TrimSpace(v)))
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		unique = append(unique, value)
	}

	for _, v := range unique {
		if _, ok := allowed[v]; !ok {
			return nil, shared.NewValidationError("Invalid business type selection", "business_types")
		}
	}
	if len(unique) < 1 {
		return nil, shared.NewValidationError("Select at least one business type", "business_types")
	}
	if len(unique) > maxBusinessTypes {
		return nil, shared.NewValidationError("Select up to 5 business types", "business_types")
	}
	return unique, nil
}

// ValidateStoreSlug lower-cases and validates a store slug
func ValidateStoreSlug(raw string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if slug == "" {
		return "", shared.NewValidationError("Store slug is required", "slug")
	}
	if len(slug) > maxStoreSlugLength {
		return "", shared.NewValidationError("Store slug is too long", "slug")
	}
	if _, reserved := reservedStoreSlugs[slug]; reserved {
		return "", shared.NewValidationError("This slug is reserved", "slug")
	}
	if !storeSlugPattern.MatchString(slug) {
		return "", shared.NewValidationError("Slug must be lowercase letters, numbers, and hyphens", "slug")
	}
	return slug, nil
}

// ValidateStoreName trims and validates a store display name
func ValidateStoreName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", shared.NewValidationError("Store name is required", "name")
	}
	if utf8.RuneCountInString(name) > maxStoreNameLength {
		return "", shared.NewValidationError("Store name must be 200 characters or fewer", "name")
	}
	return name, nil
}
