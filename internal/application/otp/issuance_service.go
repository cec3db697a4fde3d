package otp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultDeliveryTimeout = 10 * time.Second

// IssuanceConfig holds the limits of one issuance flow
type IssuanceConfig struct {
	Policy          otp.Policy
	DeliveryTimeout time.Duration
}

// IssueResult describes an issuance. Code is only set when a new code was
// generated and delivered; it must never be returned to clients.
type IssueResult struct {
	ChallengeID uuid.UUID
	Code        string
	ExpiresAt   time.Time
	Sent        bool
}

// IssuanceService creates or rotates challenges and delivers codes
type IssuanceService struct {
	txScope         TransactionScope
	hasher          *otp.Hasher
	sender          NotificationSender
	policy          otp.Policy
	deliveryTimeout time.Duration
	clock           shared.Clock
	metrics         MetricsRecorder
	logger          *zap.Logger
}

// NewIssuanceService creates an issuance service
func NewIssuanceService(
	txScope TransactionScope,
	hasher *otp.Hasher,
	sender NotificationSender,
	cfg IssuanceConfig,
	logger *zap.Logger,
	opts ...Option,
) *IssuanceService {
	o := applyOptions(opts)
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &IssuanceService{
		txScope:         txScope,
		hasher:          hasher,
		sender:          sender,
		policy:          cfg.Policy,
		deliveryTimeout: timeout,
		clock:           o.clock,
		metrics:         o.metrics,
		logger:          logger,
	}
}

// Policy returns the limits this service enforces
func (s *IssuanceService) Policy() otp.Policy {
	return s.policy
}

// Issue creates or rotates the challenge for scope and delivers the code.
//
// The challenge is persisted in one transaction holding the row lock on the
// current challenge; delivery happens after commit so a slow transport never
// holds the lock. A failed delivery clears last_sent_at so the next request
// sends again instead of being suppressed.
func (s *IssuanceService) Issue(ctx context.Context, scope otp.Scope) (*IssueResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	log := s.logger.With(
		zap.String("identifier", scope.Identifier),
		zap.String("channel", string(scope.Channel)),
		zap.String("purpose", string(scope.Purpose)),
	)

	var result IssueResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		challenges := repos.ChallengeRepo()

		if err := challenges.LockScope(ctx, scope); err != nil {
			return err
		}
		recent, err := challenges.CountCreatedSince(ctx, scope.Identifier, scope.Channel, now.Add(-s.policy.RateLimitWindow))
		if err != nil {
			return err
		}
		if recent >= int64(s.policy.RateLimitThreshold) {
			return otp.NewRateLimitedError("Too many code requests, try again later", s.policy.RateLimitWindow)
		}

		active, err := challenges.FindLatestActiveForUpdate(ctx, scope, now)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		if active != nil {
			if active.AttemptsExhausted(s.policy.MaxAttempts) {
				return otp.NewRateLimitedError("Too many attempts on the current code, try again later", active.ExpiresAt.Sub(now))
			}
			if active.SentWithin(s.policy.ResendWindow, now) {
				result = IssueResult{ChallengeID: active.ID, ExpiresAt: active.ExpiresAt}
				return nil
			}
		}

		code, err := otp.GenerateCode()
		if err != nil {
			return err
		}

		challenge := active
		if challenge == nil {
			challenge = otp.NewChallenge(scope, now)
		}
		if err := challenge.Rotate(s.hasher.Hash(challenge.ID, code), s.policy.TTL, now); err != nil {
			return err
		}
		if active == nil {
			err = challenges.Create(ctx, challenge)
		} else {
			err = challenges.Save(ctx, challenge)
		}
		if err != nil {
			return err
		}

		result = IssueResult{ChallengeID: challenge.ID, Code: code, ExpiresAt: challenge.ExpiresAt, Sent: true}
		return nil
	})
	if err != nil {
		if _, ok := asDomainError(err); ok {
			log.Warn("OTP issuance rejected", zap.String("reason_code", shared.ReasonCode(err)))
			s.metrics.RecordFailed(ctx, scope.Channel, scope.Purpose, shared.ReasonCode(err))
			return nil, err
		}
		log.Error("OTP issuance failed", zap.Error(err))
		return nil, err
	}

	if !result.Sent {
		log.Info("OTP resend suppressed", zap.String("challenge_id", result.ChallengeID.String()))
		s.metrics.RecordIssued(ctx, scope.Channel, scope.Purpose, false)
		return &result, nil
	}

	if err := s.deliver(ctx, scope, result); err != nil {
		log.Warn("OTP delivery failed",
			zap.String("challenge_id", result.ChallengeID.String()),
			zap.Error(err))
		s.markUnsent(ctx, scope, result.ChallengeID, log)
		s.metrics.RecordFailed(ctx, scope.Channel, scope.Purpose, shared.ReasonCode(otp.ErrDeliveryFailed))
		return nil, otp.ErrDeliveryFailed
	}

	log.Info("OTP issued", zap.String("challenge_id", result.ChallengeID.String()))
	s.metrics.RecordIssued(ctx, scope.Channel, scope.Purpose, true)
	return &result, nil
}

func (s *IssuanceService) deliver(ctx context.Context, scope otp.Scope, result IssueResult) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	delivered, err := s.sender.SendOTP(sendCtx, Message{
		Identifier: scope.Identifier,
		Channel:    scope.Channel,
		Purpose:    scope.Purpose,
		Code:       result.Code,
		ExpiresAt:  result.ExpiresAt,
	})
	if err != nil {
		return err
	}
	if !delivered {
		return errors.New("sender reported the message as not delivered")
	}
	return nil
}

// markUnsent clears last_sent_at on the challenge if it is still the current one
func (s *IssuanceService) markUnsent(ctx context.Context, scope otp.Scope, challengeID uuid.UUID, log *zap.Logger) {
	now := s.clock.Now()
	ctx = context.WithoutCancel(ctx)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		current, err := repos.ChallengeRepo().FindLatestActiveForUpdate(ctx, scope, now)
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.ID != challengeID {
			return nil
		}
		current.MarkUnsent(now)
		return repos.ChallengeRepo().Save(ctx, current)
	})
	if err != nil {
		log.Error("Failed to reset OTP send time after delivery failure", zap.Error(err))
	}
}

func asDomainError(err error) (*shared.DomainError, bool) {
	var de *shared.DomainError
	ok := errors.As(err, &de)
	return de, ok
}
