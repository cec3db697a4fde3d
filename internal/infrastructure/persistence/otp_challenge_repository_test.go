package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func hybridScope(identifier string) otp.Scope {
	return otp.Scope{Identifier: identifier, Channel: otp.ChannelSMS, Purpose: otp.PurposeLogin}
}

func newTestChallenge(t *testing.T, scope otp.Scope, createdAt time.Time) *otp.Challenge {
	t.Helper()
	challenge := otp.NewChallenge(scope, createdAt)
	require.NoError(t, challenge.Rotate("hash-"+challenge.ID.String(), 5*time.Minute, createdAt))
	return challenge
}

func TestGormChallengeRepository_LockingSQL(t *testing.T) {
	t.Run("unconsumed lookup locks the row and filters hybrid scope", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "otp_challenges" WHERE .*account_id IS NULL.*consumed_at IS NULL ORDER BY created_at DESC LIMIT .* FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		repo := NewGormChallengeRepository(db.DB)
		_, err := repo.FindLatestUnconsumedForUpdate(context.Background(), hybridScope("+966500000001"))
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("own-account lookup filters by account id", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		accountID := uuid.New()
		scope := otp.Scope{Identifier: "owner@example.com", AccountID: &accountID, Channel: otp.ChannelEmail, Purpose: otp.PurposeEmailVerify}

		mock.ExpectQuery(`SELECT \* FROM "otp_challenges" WHERE .*account_id = .*expires_at > .* FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		repo := NewGormChallengeRepository(db.DB)
		_, err := repo.FindLatestActiveForUpdate(context.Background(), scope, testNow)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormChallengeRepository_LockScope(t *testing.T) {
	t.Run("takes an advisory lock on postgres", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		accountID := uuid.New()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
			WithArgs("otp|+966500000001|sms|login|").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
			WithArgs("otp|owner@example.com|email|email_verify|" + accountID.String()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewGormChallengeRepository(db.DB)
		require.NoError(t, repo.LockScope(context.Background(), hybridScope("+966500000001")))
		require.NoError(t, repo.LockScope(context.Background(), otp.Scope{
			Identifier: "owner@example.com", AccountID: &accountID, Channel: otp.ChannelEmail, Purpose: otp.PurposeEmailVerify,
		}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps lock failures", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnError(assert.AnError)

		err := NewGormChallengeRepository(db.DB).LockScope(context.Background(), hybridScope("+966500000001"))
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("no-op on sqlite", func(t *testing.T) {
		repo := NewGormChallengeRepository(setupMerchantTestDB(t))
		assert.NoError(t, repo.LockScope(context.Background(), hybridScope("+966500000001")))
	})
}

func TestGormTransactionScope_LockTimeout(t *testing.T) {
	t.Run("sets a local lock timeout on postgres", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout = '2500ms'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		scope := NewGormTransactionScope(db.DB, 2500*time.Millisecond)
		err := scope.Execute(context.Background(), func(_ appotp.TransactionalRepositories) error { return nil })
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the unit of work fails", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		scope := NewGormTransactionScope(db.DB, 0)
		err := scope.Execute(context.Background(), func(_ appotp.TransactionalRepositories) error { return assert.AnError })
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormChallengeRepository_SQLite(t *testing.T) {
	ctx := context.Background()

	t.Run("finds the newest challenge in scope", func(t *testing.T) {
		db := setupMerchantTestDB(t)
		repo := NewGormChallengeRepository(db)
		scope := hybridScope("+966500000002")

		older := newTestChallenge(t, scope, testNow.Add(-2*time.Minute))
		newer := newTestChallenge(t, scope, testNow.Add(-time.Minute))
		require.NoError(t, repo.Create(ctx, older))
		require.NoError(t, repo.Create(ctx, newer))

		found, err := repo.FindLatestUnconsumedForUpdate(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, found.ID)
		assert.Equal(t, newer.CodeHash, found.CodeHash)
		assert.Nil(t, found.AccountID)
	})

	t.Run("hybrid and own-account challenges do not mix", func(t *testing.T) {
		db := setupMerchantTestDB(t)
		repo := NewGormChallengeRepository(db)

		accountID := uuid.New()
		own := otp.Scope{Identifier: "+966500000003", AccountID: &accountID, Channel: otp.ChannelSMS, Purpose: otp.PurposeLogin}
		require.NoError(t, repo.Create(ctx, newTestChallenge(t, own, testNow)))

		_, err := repo.FindLatestUnconsumedForUpdate(ctx, hybridScope("+966500000003"))
		assert.ErrorIs(t, err, shared.ErrNotFound)

		found, err := repo.FindLatestUnconsumedForUpdate(ctx, own)
		require.NoError(t, err)
		require.NotNil(t, found.AccountID)
		assert.Equal(t, accountID, *found.AccountID)
	})

	t.Run("active lookup skips expired and consumed challenges", func(t *testing.T) {
		db := setupMerchantTestDB(t)
		repo := NewGormChallengeRepository(db)
		scope := hybridScope("+966500000004")

		expired := newTestChallenge(t, scope, testNow.Add(-time.Hour))
		consumed := newTestChallenge(t, scope, testNow.Add(-time.Minute))
		require.NoError(t, consumed.Consume(testNow))
		require.NoError(t, repo.Create(ctx, expired))
		require.NoError(t, repo.Create(ctx, consumed))

		_, err := repo.FindLatestActiveForUpdate(ctx, scope, testNow)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		found, err := repo.FindLatestUnconsumedForUpdate(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, expired.ID, found.ID)
	})

	t.Run("save persists attempts and consumption", func(t *testing.T) {
		db := setupMerchantTestDB(t)
		repo := NewGormChallengeRepository(db)
		scope := hybridScope("+966500000005")

		challenge := newTestChallenge(t, scope, testNow)
		require.NoError(t, repo.Create(ctx, challenge))

		challenge.RecordFailedAttempt(testNow.Add(time.Second))
		challenge.RecordFailedAttempt(testNow.Add(2 * time.Second))
		require.NoError(t, repo.Save(ctx, challenge))

		found, err := repo.FindLatestUnconsumedForUpdate(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, 2, found.AttemptCount)

		require.NoError(t, found.Consume(testNow.Add(3*time.Second)))
		require.NoError(t, repo.Save(ctx, found))

		_, err = repo.FindLatestUnconsumedForUpdate(ctx, scope)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("counts creations per identifier and channel across purposes", func(t *testing.T) {
		db := setupMerchantTestDB(t)
		repo := NewGormChallengeRepository(db)
		identifier := "+966500000006"

		require.NoError(t, repo.Create(ctx, newTestChallenge(t, hybridScope(identifier), testNow.Add(-20*time.Minute))))
		require.NoError(t, repo.Create(ctx, newTestChallenge(t, hybridScope(identifier), testNow.Add(-5*time.Minute))))
		reset := otp.Scope{Identifier: identifier, Channel: otp.ChannelSMS, Purpose: otp.PurposePasswordReset}
		require.NoError(t, repo.Create(ctx, newTestChallenge(t, reset, testNow.Add(-time.Minute))))
		email := otp.Scope{Identifier: identifier, Channel: otp.ChannelEmail, Purpose: otp.PurposeLogin}
		require.NoError(t, repo.Create(ctx, newTestChallenge(t, email, testNow.Add(-time.Minute))))

		count, err := repo.CountCreatedSince(ctx, identifier, otp.ChannelSMS, testNow.Add(-10*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestGormOTPLogRepository_Create(t *testing.T) {
	db := setupMerchantTestDB(t)
	repo := NewGormOTPLogRepository(db)

	entry := otp.NewLog(hybridScope("+966500000007"), otp.CodeTypeTest, testNow)
	require.NoError(t, repo.Create(context.Background(), entry))

	var count int64
	require.NoError(t, db.Table("otp_logs").Where("code_type = ?", "TEST").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
