package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOnboardingRepository implements identity.OnboardingRepository using GORM
type GormOnboardingRepository struct {
	db *gorm.DB
}

// NewGormOnboardingRepository creates a new GormOnboardingRepository
func NewGormOnboardingRepository(db *gorm.DB) *GormOnboardingRepository {
	return &GormOnboardingRepository{db: db}
}

// FindByAccountID finds the onboarding record of an account
func (r *GormOnboardingRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*identity.OnboardingRecord, error) {
	var model models.OnboardingModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByAccountIDForUpdate finds the record with a row lock (SELECT ... FOR UPDATE)
func (r *GormOnboardingRepository) FindByAccountIDForUpdate(ctx context.Context, accountID uuid.UUID) (*identity.OnboardingRecord, error) {
	var model models.OnboardingModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", accountID).
		Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// Save inserts or updates a record
func (r *GormOnboardingRepository) Save(ctx context.Context, record *identity.OnboardingRecord) error {
	return r.db.WithContext(ctx).Save(models.OnboardingModelFromDomain(record)).Error
}

var _ identity.OnboardingRepository = (*GormOnboardingRepository)(nil)
