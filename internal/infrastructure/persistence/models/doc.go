// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain entities so the domain layer stays free of
// ORM tags; each model has ToDomain and a FromDomain constructor.
//
//   - base.go: BaseModel shared by every table
//   - merchant.go: accounts, account_profiles, onboarding_records, stores
//   - otp.go: otp_challenges, otp_logs
package models
