package otp

import (
	"context"

	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/otp"
)

// TransactionScope runs a unit of work in one database transaction.
// If fn returns an error the transaction is rolled back, otherwise committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories sharing the current
// transaction. Challenge locks taken through ChallengeRepo are held until
// Execute returns.
type TransactionalRepositories interface {
	ChallengeRepo() otp.ChallengeRepository
	LogRepo() otp.LogRepository
	AccountRepo() identity.AccountRepository
	ProfileRepo() identity.ProfileRepository
	OnboardingRepo() identity.OnboardingRepository
	StoreRepo() identity.StoreRepository
}
