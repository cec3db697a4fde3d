package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/shared"
	"github.com/merchant/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountRepository implements identity.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *identity.Account) error {
	return r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error
}

// Update saves an existing account
func (r *GormAccountRepository) Update(ctx context.Context, account *identity.Account) error {
	result := r.db.WithContext(ctx).Save(models.AccountModelFromDomain(account))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordLogin sets last_login_at without rewriting the other columns
func (r *GormAccountRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByEmail finds an account by case-insensitive email
func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, shared.ErrNotFound
	}
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Order("created_at ASC").
		Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByUsername finds an account by case-insensitive login identifier
func (r *GormAccountRepository) FindByUsername(ctx context.Context, username string) (*identity.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, shared.ErrNotFound
	}
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// ExistsByUsername reports whether another account uses the login identifier
func (r *GormAccountRepository) ExistsByUsername(ctx context.Context, username string, exclude uuid.UUID) (bool, error) {
	return r.exists(ctx, "LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)), exclude)
}

// ExistsByEmail reports whether another account uses the email
func (r *GormAccountRepository) ExistsByEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	return r.exists(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)), exclude)
}

func (r *GormAccountRepository) exists(ctx context.Context, cond string, value string, exclude uuid.UUID) (bool, error) {
	if value == "" {
		return false, nil
	}
	query := r.db.WithContext(ctx).Model(&models.AccountModel{}).Where(cond, value)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// translateNotFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

var _ identity.AccountRepository = (*GormAccountRepository)(nil)
