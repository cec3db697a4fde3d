package otp

import (
	"time"

	"github.com/google/uuid"
)

// CodeType tells whether a verification used a real code or the test bypass
type CodeType string

const (
	CodeTypeReal CodeType = "REAL"
	CodeTypeTest CodeType = "TEST"
)

// Log is an append-only record of a successful verification
type Log struct {
	ID         uuid.UUID
	Identifier string
	AccountID  *uuid.UUID
	Channel    Channel
	Purpose    Purpose
	CodeType   CodeType
	VerifiedAt time.Time
}

// NewLog creates a verification log entry
func NewLog(scope Scope, codeType CodeType, now time.Time) *Log {
	return &Log{
		ID:         uuid.New(),
		Identifier: scope.Identifier,
		AccountID:  scope.AccountID,
		Channel:    scope.Channel,
		Purpose:    scope.Purpose,
		CodeType:   codeType,
		VerifiedAt: now,
	}
}
