package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/shared"
	"github.com/merchant/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProfileRepository implements identity.ProfileRepository using GORM
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// FindByAccountID finds the profile of an account
func (r *GormProfileRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*identity.AccountProfile, error) {
	var model models.AccountProfileModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByPhone finds the profile holding a normalized phone number
func (r *GormProfileRepository) FindByPhone(ctx context.Context, phone string) (*identity.AccountProfile, error) {
	if phone == "" {
		return nil, shared.ErrNotFound
	}
	var model models.AccountProfileModel
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// ExistsByPhone reports whether a profile of another account holds phone
func (r *GormProfileRepository) ExistsByPhone(ctx context.Context, phone string, excludeAccountID uuid.UUID) (bool, error) {
	if phone == "" {
		return false, nil
	}
	query := r.db.WithContext(ctx).Model(&models.AccountProfileModel{}).Where("phone = ?", phone)
	if excludeAccountID != uuid.Nil {
		query = query.Where("account_id <> ?", excludeAccountID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts or updates a profile
func (r *GormProfileRepository) Save(ctx context.Context, profile *identity.AccountProfile) error {
	return r.db.WithContext(ctx).Save(models.AccountProfileModelFromDomain(profile)).Error
}

var _ identity.ProfileRepository = (*GormProfileRepository)(nil)
