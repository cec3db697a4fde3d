package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/shared"
)

const (
	defaultStoreCurrency = "SAR"
	defaultStoreLanguage = "ar"
)

// Store is the storefront a merchant creates at the end of onboarding.
// A merchant owns at most one store.
type Store struct {
	shared.BaseEntity
	OwnerID  uuid.UUID
	Name     string
	Slug     string
	Currency string
	Language string
	IsActive bool
}

// NewStore creates an active store; name and slug must already be validated
func NewStore(ownerID uuid.UUID, name, slug string, now time.Time) *Store {
	return &Store{
		BaseEntity: shared.NewBaseEntityAt(now),
		OwnerID:    ownerID,
		Name:       name,
		Slug:       slug,
		Currency:   defaultStoreCurrency,
		Language:   defaultStoreLanguage,
		IsActive:   true,
	}
}
