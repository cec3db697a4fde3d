package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/shared"
)

// ErrAccountNotFound is returned when no account matches an identifier
var ErrAccountNotFound = shared.NewDomainError(shared.CodeNotFound, "Account not found")

// AccountRepository persists accounts. Lookups by email and username are
// case-insensitive and return shared.ErrNotFound when nothing matches.
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	// ExistsByUsername and ExistsByEmail ignore the account with id exclude (uuid.Nil ignores none)
	ExistsByUsername(ctx context.Context, username string, exclude uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
	// RecordLogin stamps last_login_at only, leaving the rest of the row untouched
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ProfileRepository persists account profiles
type ProfileRepository interface {
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*AccountProfile, error)
	FindByPhone(ctx context.Context, phone string) (*AccountProfile, error)
	ExistsByPhone(ctx context.Context, phone string, excludeAccountID uuid.UUID) (bool, error)
	Save(ctx context.Context, profile *AccountProfile) error
}

// OnboardingRepository persists onboarding records
type OnboardingRepository interface {
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*OnboardingRecord, error)
	// FindByAccountIDForUpdate row-locks the record for the rest of the transaction
	FindByAccountIDForUpdate(ctx context.Context, accountID uuid.UUID) (*OnboardingRecord, error)
	Save(ctx context.Context, record *OnboardingRecord) error
}

// StoreRepository persists stores
type StoreRepository interface {
	ExistsActiveByOwner(ctx context.Context, ownerID uuid.UUID) (bool, error)
	ExistsByOwner(ctx context.Context, ownerID uuid.UUID) (bool, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, store *Store) error
}
