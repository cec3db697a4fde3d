package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStoreRepository implements identity.StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// ExistsActiveByOwner reports whether the owner has an active store
func (r *GormStoreRepository) ExistsActiveByOwner(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	return r.count(ctx, "owner_id = ? AND is_active = ?", ownerID, true)
}

// ExistsByOwner reports whether the owner has any store
func (r *GormStoreRepository) ExistsByOwner(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	return r.count(ctx, "owner_id = ?", ownerID)
}

// ExistsBySlug reports whether a store uses slug
func (r *GormStoreRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return r.count(ctx, "LOWER(slug) = ?", strings.ToLower(slug))
}

func (r *GormStoreRepository) count(ctx context.Context, cond string, args ...any) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.StoreModel{}).Where(cond, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts a store
func (r *GormStoreRepository) Create(ctx context.Context, store *identity.Store) error {
	return r.db.WithContext(ctx).Create(models.StoreModelFromDomain(store)).Error
}

var _ identity.StoreRepository = (*GormStoreRepository)(nil)
