package otp

import (
	"context"
	"time"
)

// ChallengeRepository persists challenges. The ForUpdate lookups row-lock the
// returned challenge until the surrounding transaction ends and return
// shared.ErrNotFound when nothing matches.
type ChallengeRepository interface {
	// LockScope serializes issuance for scope until the surrounding transaction
	// ends, including when no challenge row exists yet to lock
	LockScope(ctx context.Context, scope Scope) error
	// CountCreatedSince counts challenges for (identifier, channel) of any purpose
	CountCreatedSince(ctx context.Context, identifier string, channel Channel, since time.Time) (int64, error)
	// FindLatestActiveForUpdate returns the newest unconsumed, unexpired challenge in scope
	FindLatestActiveForUpdate(ctx context.Context, scope Scope, now time.Time) (*Challenge, error)
	// FindLatestUnconsumedForUpdate returns the newest unconsumed challenge in scope, expired or not
	FindLatestUnconsumedForUpdate(ctx context.Context, scope Scope) (*Challenge, error)
	Create(ctx context.Context, challenge *Challenge) error
	Save(ctx context.Context, challenge *Challenge) error
}

// LogRepository appends verification logs
type LogRepository interface {
	Create(ctx context.Context, log *Log) error
}
