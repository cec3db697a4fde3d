package persistence

import (
	"context"
	"fmt"
	"time"

	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/otp"
	"gorm.io/gorm"
)

// GormTransactionScope implements appotp.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope.
// On PostgreSQL a positive lockTimeout bounds how long a statement waits for
// a row lock before the transaction fails.
func NewGormTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appotp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) ChallengeRepo() otp.ChallengeRepository {
	return NewGormChallengeRepository(r.tx)
}

func (r *gormTransactionalRepositories) LogRepo() otp.LogRepository {
	return NewGormOTPLogRepository(r.tx)
}

func (r *gormTransactionalRepositories) AccountRepo() identity.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProfileRepo() identity.ProfileRepository {
	return NewGormProfileRepository(r.tx)
}

func (r *gormTransactionalRepositories) OnboardingRepo() identity.OnboardingRepository {
	return NewGormOnboardingRepository(r.tx)
}

func (r *gormTransactionalRepositories) StoreRepo() identity.StoreRepository {
	return NewGormStoreRepository(r.tx)
}

var (
	_ appotp.TransactionScope          = (*GormTransactionScope)(nil)
	_ appotp.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
