package identity

import "github.com/merchant/backend/internal/domain/shared"

// AuthMethod is a way to sign in
type AuthMethod string

const (
	AuthMethodOTP      AuthMethod = "otp"
	AuthMethodPassword AuthMethod = "password"
)

// SocialProvider is an external sign-in provider advertised to clients
type SocialProvider string

const (
	SocialProviderGoogle SocialProvider = "google"
	SocialProviderApple  SocialProvider = "apple"
)

// AuthEntry tells the client which sign-in methods apply to an identifier
type AuthEntry struct {
	AccountExists    bool
	Identifier       Identifier
	AvailableMethods []AuthMethod
	DefaultMethod    AuthMethod
	CanRegister      bool
	HasEmail         bool
	HasPassword      bool
	SocialProviders  []SocialProvider
}

// BuildAuthEntry derives the auth entry for a normalized identifier and the
// matching account (nil when none exists).
func BuildAuthEntry(id Identifier, account *Account) (AuthEntry, error) {
	social := []SocialProvider{SocialProviderGoogle, SocialProviderApple}
	if account == nil {
		return AuthEntry{
			Identifier:       id,
			AvailableMethods: []AuthMethod{AuthMethodOTP},
			DefaultMethod:    AuthMethodOTP,
			CanRegister:      true,
			HasEmail:         id.IsEmail(),
			SocialProviders:  social,
		}, nil
	}

	entry := AuthEntry{
		AccountExists:   true,
		Identifier:      id,
		HasEmail:        account.HasEmail(),
		HasPassword:     account.HasUsablePassword(),
		SocialProviders: social,
	}
	if id.Type == IdentifierTypePhone || entry.HasEmail {
		entry.AvailableMethods = append(entry.AvailableMethods, AuthMethodOTP)
	}
	if entry.HasPassword {
		entry.AvailableMethods = append(entry.AvailableMethods, AuthMethodPassword)
	}
	if len(entry.AvailableMethods) == 0 {
		return AuthEntry{}, shared.NewValidationError("No available login methods for this account", "identifier")
	}
	entry.DefaultMethod = entry.AvailableMethods[0]
	return entry, nil
}
