package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/shared"
)

// AccountModel is the persistence model for identity.Account
type AccountModel struct {
	BaseModel
	Username     string     `gorm:"type:varchar(254);not null;uniqueIndex"`
	Email        string     `gorm:"type:varchar(254);index"`
	PasswordHash string     `gorm:"type:varchar(255)"`
	IsActive     bool       `gorm:"not null;default:true"`
	LastLoginAt  *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the model to a domain Account
func (m *AccountModel) ToDomain() *identity.Account {
	return &identity.Account{
		BaseEntity:   m.BaseModel.ToDomain(),
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		LastLoginAt:  m.LastLoginAt,
	}
}

// AccountModelFromDomain creates a model from a domain Account
func AccountModelFromDomain(a *identity.Account) *AccountModel {
	m := &AccountModel{
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		IsActive:     a.IsActive,
		LastLoginAt:  a.LastLoginAt,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}

// AccountProfileModel is the persistence model for identity.AccountProfile.
// Phone is unique when present; empty phones are stored as NULL.
type AccountProfileModel struct {
	BaseModel
	AccountID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	FullName        string    `gorm:"type:varchar(200)"`
	Phone           *string   `gorm:"type:varchar(32);uniqueIndex"`
	Country         string    `gorm:"type:varchar(8)"`
	BusinessTypes   []string  `gorm:"type:text;serializer:json"`
	AcceptedTermsAt *time.Time
	EmailVerifiedAt *time.Time
}

// TableName returns the table name for GORM
func (AccountProfileModel) TableName() string {
	return "account_profiles"
}

// ToDomain converts the model to a domain AccountProfile
func (m *AccountProfileModel) ToDomain() *identity.AccountProfile {
	types := make([]identity.BusinessType, 0, len(m.BusinessTypes))
	for _, t := range m.BusinessTypes {
		types = append(types, identity.BusinessType(t))
	}
	phone := ""
	if m.Phone != nil {
		phone = *m.Phone
	}
	return &identity.AccountProfile{
		BaseEntity:      m.BaseModel.ToDomain(),
		AccountID:       m.AccountID,
		FullName:        m.FullName,
		Phone:           phone,
		Country:         identity.CountryCode(m.Country),
		BusinessTypes:   types,
		AcceptedTermsAt: m.AcceptedTermsAt,
		EmailVerifiedAt: m.EmailVerifiedAt,
	}
}

// AccountProfileModelFromDomain creates a model from a domain AccountProfile
func AccountProfileModelFromDomain(p *identity.AccountProfile) *AccountProfileModel {
	types := make([]string, 0, len(p.BusinessTypes))
	for _, t := range p.BusinessTypes {
		types = append(types, string(t))
	}
	m := &AccountProfileModel{
		AccountID:       p.AccountID,
		FullName:        p.FullName,
		Country:         string(p.Country),
		BusinessTypes:   types,
		AcceptedTermsAt: p.AcceptedTermsAt,
		EmailVerifiedAt: p.EmailVerifiedAt,
	}
	if p.Phone != "" {
		phone := p.Phone
		m.Phone = &phone
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// OnboardingModel is the persistence model for identity.OnboardingRecord
type OnboardingModel struct {
	BaseModel
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Stage     string    `gorm:"type:varchar(20);not null;default:'registered'"`
}

// TableName returns the table name for GORM
func (OnboardingModel) TableName() string {
	return "onboarding_records"
}

// ToDomain converts the model to a domain OnboardingRecord
func (m *OnboardingModel) ToDomain() *identity.OnboardingRecord {
	return &identity.OnboardingRecord{
		BaseEntity: m.BaseModel.ToDomain(),
		AccountID:  m.AccountID,
		Stage:      identity.OnboardingStage(m.Stage),
	}
}

// OnboardingModelFromDomain creates a model from a domain OnboardingRecord
func OnboardingModelFromDomain(r *identity.OnboardingRecord) *OnboardingModel {
	m := &OnboardingModel{AccountID: r.AccountID, Stage: string(r.Stage)}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// StoreModel is the persistence model for identity.Store
type StoreModel struct {
	BaseModel
	OwnerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Name     string    `gorm:"type:varchar(200);not null"`
	Slug     string    `gorm:"type:varchar(60);not null;uniqueIndex"`
	Currency string    `gorm:"type:varchar(3);not null"`
	Language string    `gorm:"type:varchar(8);not null"`
	IsActive bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the model to a domain Store
func (m *StoreModel) ToDomain() *identity.Store {
	return &identity.Store{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		OwnerID:    m.OwnerID,
		Name:       m.Name,
		Slug:       m.Slug,
		Currency:   m.Currency,
		Language:   m.Language,
		IsActive:   m.IsActive,
	}
}

// StoreModelFromDomain creates a model from a domain Store
func StoreModelFromDomain(s *identity.Store) *StoreModel {
	m := &StoreModel{
		OwnerID:  s.OwnerID,
		Name:     s.Name,
		Slug:     s.Slug,
		Currency: s.Currency,
		Language: s.Language,
		IsActive: s.IsActive,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
