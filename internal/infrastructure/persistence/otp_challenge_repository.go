package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/domain/shared"
	"github.com/merchant/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormChallengeRepository implements otp.ChallengeRepository using GORM.
// The ForUpdate lookups must run inside a transaction for the lock to hold.
type GormChallengeRepository struct {
	db *gorm.DB
}

// NewGormChallengeRepository creates a new GormChallengeRepository
func NewGormChallengeRepository(db *gorm.DB) *GormChallengeRepository {
	return &GormChallengeRepository{db: db}
}

// LockScope takes a transaction-scoped advisory lock on the scope key.
// SQLite serializes writers on its own, so there it does nothing.
func (r *GormChallengeRepository) LockScope(ctx context.Context, scope otp.Scope) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", scopeLockKey(scope)).Error; err != nil {
		return fmt.Errorf("lock otp scope: %w", err)
	}
	return nil
}

func scopeLockKey(scope otp.Scope) string {
	account := ""
	if scope.AccountID != nil {
		account = scope.AccountID.String()
	}
	return strings.Join([]string{"otp", scope.Identifier, string(scope.Channel), string(scope.Purpose), account}, "|")
}

// CountCreatedSince counts challenges for (identifier, channel) created at or after since
func (r *GormChallengeRepository) CountCreatedSince(ctx context.Context, identifier string, channel otp.Channel, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OTPChallengeModel{}).
		Where("identifier = ? AND channel = ? AND created_at >= ?", identifier, string(channel), since).
		Count(&count).Error
	return count, err
}

// FindLatestActiveForUpdate locks the newest unconsumed, unexpired challenge in scope
func (r *GormChallengeRepository) FindLatestActiveForUpdate(ctx context.Context, scope otp.Scope, now time.Time) (*otp.Challenge, error) {
	return r.findLatest(ctx, scope, func(q *gorm.DB) *gorm.DB {
		return q.Where("consumed_at IS NULL AND expires_at > ?", now)
	})
}

// FindLatestUnconsumedForUpdate locks the newest unconsumed challenge in scope
func (r *GormChallengeRepository) FindLatestUnconsumedForUpdate(ctx context.Context, scope otp.Scope) (*otp.Challenge, error) {
	return r.findLatest(ctx, scope, func(q *gorm.DB) *gorm.DB {
		return q.Where("consumed_at IS NULL")
	})
}

func (r *GormChallengeRepository) findLatest(ctx context.Context, scope otp.Scope, filter func(*gorm.DB) *gorm.DB) (*otp.Challenge, error) {
	query := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("identifier = ? AND channel = ? AND purpose = ?", scope.Identifier, string(scope.Channel), string(scope.Purpose))
	if scope.AccountID == nil {
		query = query.Where("account_id IS NULL")
	} else {
		query = query.Where("account_id = ?", *scope.AccountID)
	}

	var model models.OTPChallengeModel
	if err := filter(query).Order("created_at DESC").Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a challenge
func (r *GormChallengeRepository) Create(ctx context.Context, challenge *otp.Challenge) error {
	return r.db.WithContext(ctx).Create(models.OTPChallengeModelFromDomain(challenge)).Error
}

// Save updates a challenge
func (r *GormChallengeRepository) Save(ctx context.Context, challenge *otp.Challenge) error {
	result := r.db.WithContext(ctx).Save(models.OTPChallengeModelFromDomain(challenge))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormOTPLogRepository implements otp.LogRepository using GORM
type GormOTPLogRepository struct {
	db *gorm.DB
}

// NewGormOTPLogRepository creates a new GormOTPLogRepository
func NewGormOTPLogRepository(db *gorm.DB) *GormOTPLogRepository {
	return &GormOTPLogRepository{db: db}
}

// Create appends a verification log entry
func (r *GormOTPLogRepository) Create(ctx context.Context, log *otp.Log) error {
	return r.db.WithContext(ctx).Create(models.OTPLogModelFromDomain(log)).Error
}

var (
	_ otp.ChallengeRepository = (*GormChallengeRepository)(nil)
	_ otp.LogRepository       = (*GormOTPLogRepository)(nil)
)
