package identity

import (
	"context"
	"errors"

	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/shared"
)

// Repositories groups the identity repositories used outside a transaction
type Repositories struct {
	Accounts   identity.AccountRepository
	Profiles   identity.ProfileRepository
	Onboarding identity.OnboardingRepository
	Stores     identity.StoreRepository
}

// IdentityResolver maps a login identifier to an existing account. It never writes.
type IdentityResolver struct {
	accounts identity.AccountRepository
	profiles identity.ProfileRepository
}

// NewIdentityResolver creates a resolver
func NewIdentityResolver(accounts identity.AccountRepository, profiles identity.ProfileRepository) *IdentityResolver {
	return &IdentityResolver{accounts: accounts, profiles: profiles}
}

// Resolve normalizes raw and looks up its account.
// Returns identity.ErrAccountNotFound when nothing matches.
func (r *IdentityResolver) Resolve(ctx context.Context, raw string) (*identity.Account, error) {
	id, err := identity.NormalizeIdentifier(raw)
	if err != nil {
		return nil, err
	}
	return resolveIdentifier(ctx, r.accounts, r.profiles, id)
}

// ResolveIdentifier looks up the account of an already normalized identifier
func (r *IdentityResolver) ResolveIdentifier(ctx context.Context, id identity.Identifier) (*identity.Account, error) {
	return resolveIdentifier(ctx, r.accounts, r.profiles, id)
}

// resolveIdentifier matches emails against the account email and phones
// against the login identifier first, then the profile phone.
func resolveIdentifier(
	ctx context.Context,
	accounts identity.AccountRepository,
	profiles identity.ProfileRepository,
	id identity.Identifier,
) (*identity.Account, error) {
	if id.IsEmail() {
		account, err := accounts.FindByEmail(ctx, id.Value)
		return account, notFoundAsAccount(err)
	}

	account, err := accounts.FindByUsername(ctx, id.Value)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	profile, err := profiles.FindByPhone(ctx, id.Value)
	if err != nil {
		return nil, notFoundAsAccount(err)
	}
	account, err = accounts.FindByID(ctx, profile.AccountID)
	return account, notFoundAsAccount(err)
}

func notFoundAsAccount(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return identity.ErrAccountNotFound
	}
	return err
}

// findProfile returns the account's profile, or nil when it has none
func findProfile(ctx context.Context, profiles identity.ProfileRepository, account *identity.Account) (*identity.AccountProfile, error) {
	profile, err := profiles.FindByAccountID(ctx, account.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return profile, err
}
