package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStageTransition(t *testing.T) {
	t.Run("allows one step forward", func(t *testing.T) {
		assert.NoError(t, ValidateStageTransition(OnboardingStageRegistered, OnboardingStageCountry))
		assert.NoError(t, ValidateStageTransition(OnboardingStageStore, OnboardingStageDone))
	})

	t.Run("allows no-op and backward moves", func(t *testing.T) {
		assert.NoError(t, ValidateStageTransition(OnboardingStageBusiness, OnboardingStageBusiness))
		assert.NoError(t, ValidateStageTransition(OnboardingStageDone, OnboardingStageRegistered))
	})

	t.Run("rejects skipping a stage", func(t *testing.T) {
		err := ValidateStageTransition(OnboardingStageRegistered, OnboardingStageBusiness)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("rejects unknown stage", func(t *testing.T) {
		err := ValidateStageTransition(OnboardingStageRegistered, OnboardingStage("shipping"))
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, shared.CodeValidation, de.Code)
		assert.Equal(t, "step", de.Field)
	})
}

func TestOnboardingRecord_MoveTo(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record := NewOnboardingRecord(uuid.New(), now)
	assert.Equal(t, OnboardingStageRegistered, record.Stage)
	assert.False(t, record.CanCreateStore())

	changed, err := record.MoveTo(OnboardingStageCountry, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, now.Add(time.Minute), record.UpdatedAt)

	changed, err = record.MoveTo(OnboardingStageCountry, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = record.MoveTo(OnboardingStageStore, now)
	assert.Error(t, err)
	assert.Equal(t, OnboardingStageCountry, record.Stage)

	_, err = record.MoveTo(OnboardingStageBusiness, now)
	require.NoError(t, err)
	assert.True(t, record.CanCreateStore())
}
