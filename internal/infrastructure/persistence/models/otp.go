package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/otp"
)

// OTPChallengeModel is the persistence model for otp.Challenge
type OTPChallengeModel struct {
	BaseModel
	Identifier   string     `gorm:"type:varchar(254);not null;index:idx_otp_challenge_scope,priority:1"`
	Channel      string     `gorm:"type:varchar(10);not null;index:idx_otp_challenge_scope,priority:2"`
	Purpose      string     `gorm:"type:varchar(32);not null;index:idx_otp_challenge_scope,priority:3"`
	AccountID    *uuid.UUID `gorm:"type:uuid;index"`
	CodeHash     string     `gorm:"type:varchar(128);not null"`
	ExpiresAt    time.Time  `gorm:"not null"`
	ConsumedAt   *time.Time
	AttemptCount int `gorm:"not null;default:0"`
	LastSentAt   *time.Time
}

// TableName returns the table name for GORM
func (OTPChallengeModel) TableName() string {
	return "otp_challenges"
}

// ToDomain converts the model to a domain Challenge
func (m *OTPChallengeModel) ToDomain() *otp.Challenge {
	return &otp.Challenge{
		BaseEntity:   m.BaseModel.ToDomain(),
		Identifier:   m.Identifier,
		AccountID:    m.AccountID,
		Channel:      otp.Channel(m.Channel),
		Purpose:      otp.Purpose(m.Purpose),
		CodeHash:     m.CodeHash,
		ExpiresAt:    m.ExpiresAt,
		ConsumedAt:   m.ConsumedAt,
		AttemptCount: m.AttemptCount,
		LastSentAt:   m.LastSentAt,
	}
}

// OTPChallengeModelFromDomain creates a model from a domain Challenge
func OTPChallengeModelFromDomain(c *otp.Challenge) *OTPChallengeModel {
	m := &OTPChallengeModel{
		Identifier:   c.Identifier,
		Channel:      string(c.Channel),
		Purpose:      string(c.Purpose),
		AccountID:    c.AccountID,
		CodeHash:     c.CodeHash,
		ExpiresAt:    c.ExpiresAt,
		ConsumedAt:   c.ConsumedAt,
		AttemptCount: c.AttemptCount,
		LastSentAt:   c.LastSentAt,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// OTPLogModel is the append-only verification log
type OTPLogModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	Identifier string     `gorm:"type:varchar(254);not null;index"`
	AccountID  *uuid.UUID `gorm:"type:uuid;index"`
	Channel    string     `gorm:"type:varchar(10);not null"`
	Purpose    string     `gorm:"type:varchar(32);not null"`
	CodeType   string     `gorm:"type:varchar(8);not null"`
	VerifiedAt time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (OTPLogModel) TableName() string {
	return "otp_logs"
}

// OTPLogModelFromDomain creates a model from a domain Log
func OTPLogModelFromDomain(l *otp.Log) *OTPLogModel {
	return &OTPLogModel{
		ID:         l.ID,
		Identifier: l.Identifier,
		AccountID:  l.AccountID,
		Channel:    string(l.Channel),
		Purpose:    string(l.Purpose),
		CodeType:   string(l.CodeType),
		VerifiedAt: l.VerifiedAt,
	}
}

// AllModels lists every model, in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&AccountModel{},
		&AccountProfileModel{},
		&OnboardingModel{},
		&StoreModel{},
		&OTPChallengeModel{},
		&OTPLogModel{},
	}
}
