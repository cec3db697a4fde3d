package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/shared"
)

// OnboardingStage is the persisted onboarding progress of an account
type OnboardingStage string

const (
	OnboardingStageRegistered OnboardingStage = "registered"
	OnboardingStageCountry    OnboardingStage = "country"
	OnboardingStageBusiness   OnboardingStage = "business"
	OnboardingStageStore      OnboardingStage = "store"
	OnboardingStageDone       OnboardingStage = "done"
)

var onboardingOrder = []OnboardingStage{
	OnboardingStageRegistered,
	OnboardingStageCountry,
	OnboardingStageBusiness,
	OnboardingStageStore,
	OnboardingStageDone,
}

// Index returns the position of the stage in the onboarding order, or -1
func (s OnboardingStage) Index() int {
	for i, stage := range onboardingOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether s is a known stage
func (s OnboardingStage) IsValid() bool {
	return s.Index() >= 0
}

// ValidateStageTransition allows moving backward, staying put, or advancing
// exactly one stage.
func ValidateStageTransition(current, target OnboardingStage) error {
	ci, ti := current.Index(), target.Index()
	if ci < 0 || ti < 0 {
		return shared.NewValidationError("Invalid onboarding step", "step")
	}
	if ti-ci > 1 {
		return shared.NewDomainError(shared.CodeInvalidState, "Onboarding steps must be completed in order")
	}
	return nil
}

// OnboardingRecord tracks an account's onboarding stage
type OnboardingRecord struct {
	shared.BaseEntity
	AccountID uuid.UUID
	Stage     OnboardingStage
}

// NewOnboardingRecord creates a record at the registered stage
func NewOnboardingRecord(accountID uuid.UUID, now time.Time) *OnboardingRecord {
	return &OnboardingRecord{
		BaseEntity: shared.NewBaseEntityAt(now),
		AccountID:  accountID,
		Stage:      OnboardingStageRegistered,
	}
}

// MoveTo applies the step-order guard and moves to target.
// Returns whether the stage changed.
func (r *OnboardingRecord) MoveTo(target OnboardingStage, now time.Time) (bool, error) {
	if err := ValidateStageTransition(r.Stage, target); err != nil {
		return false, err
	}
	if r.Stage == target {
		return false, nil
	}
	r.Stage = target
	r.Touch(now)
	return true, nil
}

// CanCreateStore reports whether the record is far enough along to create a store
func (r *OnboardingRecord) CanCreateStore() bool {
	return r.Stage == OnboardingStageBusiness || r.Stage == OnboardingStageStore
}
