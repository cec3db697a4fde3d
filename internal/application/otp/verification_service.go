package otp

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// VerifyInput is a code submitted for a scope
type VerifyInput struct {
	Scope otp.Scope
	Code  string
}

// Verification describes a successful verification. ChallengeID is uuid.Nil
// when the test bypass was used.
type Verification struct {
	Scope       otp.Scope
	ChallengeID uuid.UUID
	CodeType    otp.CodeType
}

// VerifiedHook runs inside the verifying transaction after the challenge was
// consumed. Callers use it to resolve or create the account and to stamp
// email verification atomically with consumption. Returning an error rolls
// the whole verification back.
type VerifiedHook func(ctx context.Context, repos TransactionalRepositories, v Verification) error

// VerificationService checks submitted codes and consumes challenges
type VerificationService struct {
	txScope TransactionScope
	hasher  *otp.Hasher
	policy  otp.Policy
	env     Environment
	clock   shared.Clock
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewVerificationService creates a verification service
func NewVerificationService(
	txScope TransactionScope,
	hasher *otp.Hasher,
	policy otp.Policy,
	env Environment,
	logger *zap.Logger,
	opts ...Option,
) *VerificationService {
	o := applyOptions(opts)
	return &VerificationService{
		txScope: txScope,
		hasher:  hasher,
		policy:  policy,
		env:     env,
		clock:   o.clock,
		metrics: o.metrics,
		logger:  logger,
	}
}

// Verify checks in.Code against the latest unconsumed challenge of in.Scope.
//
// Lookup, expiry and attempt checks, hash comparison, consumption, the
// verification log and onVerified all run in one transaction under the
// challenge row lock, so two concurrent submissions cannot both succeed.
// A wrong code spends one attempt; that increment is committed before
// OTP_WRONG is returned.
func (s *VerificationService) Verify(ctx context.Context, in VerifyInput, onVerified VerifiedHook) (*Verification, error) {
	scope := in.Scope
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.With(
		zap.String("identifier", scope.Identifier),
		zap.String("channel", string(scope.Channel)),
		zap.String("purpose", string(scope.Purpose)),
	)

	code := otp.NormalizeCode(in.Code)
	if s.env.MatchesTestCode(code) {
		return s.verifyBypass(ctx, scope, onVerified, log)
	}
	if err := otp.ValidateCodeFormat(code); err != nil {
		return nil, s.fail(ctx, scope, err, log)
	}

	now := s.clock.Now()
	var (
		result   *Verification
		mismatch bool
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		challenges := repos.ChallengeRepo()

		challenge, err := challenges.FindLatestUnconsumedForUpdate(ctx, scope)
		if errors.Is(err, shared.ErrNotFound) {
			return otp.ErrNotRequested
		}
		if err != nil {
			return err
		}
		if challenge.IsExpired(now) {
			return otp.ErrExpired
		}
		if challenge.AttemptsExhausted(s.policy.MaxAttempts) {
			return otp.ErrTooManyAttempts
		}

		if !s.hasher.Verify(challenge.ID, code, challenge.CodeHash) {
			challenge.RecordFailedAttempt(now)
			mismatch = true
			return challenges.Save(ctx, challenge)
		}

		if err := challenge.Consume(now); err != nil {
			return err
		}
		if err := challenges.Save(ctx, challenge); err != nil {
			return err
		}
		if err := repos.LogRepo().Create(ctx, otp.NewLog(scope, otp.CodeTypeReal, now)); err != nil {
			return err
		}

		result = &Verification{Scope: scope, ChallengeID: challenge.ID, CodeType: otp.CodeTypeReal}
		if onVerified != nil {
			return onVerified(ctx, repos, *result)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, scope, err, log)
	}
	if mismatch {
		return nil, s.fail(ctx, scope, otp.ErrWrong, log)
	}

	log.Info("OTP verified", zap.String("challenge_id", result.ChallengeID.String()))
	s.metrics.RecordVerified(ctx, scope.Channel, scope.Purpose, otp.CodeTypeReal)
	return result, nil
}

func (s *VerificationService) verifyBypass(ctx context.Context, scope otp.Scope, onVerified VerifiedHook, log *zap.Logger) (*Verification, error) {
	now := s.clock.Now()
	result := &Verification{Scope: scope, CodeType: otp.CodeTypeTest}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.LogRepo().Create(ctx, otp.NewLog(scope, otp.CodeTypeTest, now)); err != nil {
			return err
		}
		if onVerified != nil {
			return onVerified(ctx, repos, *result)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, scope, err, log)
	}

	log.Warn("OTP verified with test bypass code", zap.String("environment", s.env.Name()))
	s.metrics.RecordVerified(ctx, scope.Channel, scope.Purpose, otp.CodeTypeTest)
	return result, nil
}

func (s *VerificationService) fail(ctx context.Context, scope otp.Scope, err error, log *zap.Logger) error {
	if _, ok := asDomainError(err); ok {
		log.Info("OTP verification failed", zap.String("reason_code", shared.ReasonCode(err)))
		s.metrics.RecordFailed(ctx, scope.Channel, scope.Purpose, shared.ReasonCode(err))
		return err
	}
	log.Error("OTP verification error", zap.Error(err))
	return err
}
