package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/shared"
	"github.com/merchant/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifiedMerchant registers a merchant and verifies the email
func verifiedMerchant(t *testing.T, f *serviceFixture, phone, email string) uuid.UUID {
	t.Helper()
	registered := f.register(t, phone, email)
	f.verifyEmail(t, registered.Account.ID, email)
	return registered.Account.ID
}

// otpMerchant provisions an account through a hybrid phone code
func otpMerchant(t *testing.T, f *serviceFixture, phone string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.RequestOTP(ctx, RequestOTPInput{Identifier: phone})
	require.NoError(t, err)
	session, err := f.auth.VerifyOTP(ctx, VerifyOTPInput{Identifier: phone, Code: f.lastCode(t, phone)})
	require.NoError(t, err)
	return session.Account.ID
}

func TestOnboardingService_FullFlow(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	accountID := verifiedMerchant(t, f, "+966500000001", "sara@example.com")

	next, err := f.onboarding.NextStep(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, identity.NextStepOnboardingCountry, next.NextStep)
	assert.Equal(t, identity.OnboardingStepCountry, next.OnboardingStep)
	assert.True(t, next.ProfileComplete)

	country, err := f.onboarding.SelectCountry(ctx, accountID, " sa ")
	require.NoError(t, err)
	assert.Equal(t, identity.OnboardingStageCountry, country.Stage)
	assert.Equal(t, identity.CountrySA, country.Country)
	assert.Equal(t, identity.NextStepOnboardingBusinessTypes, country.NextStep)

	business, err := f.onboarding.SelectBusinessTypes(ctx, accountID, []string{"Fashion", "food", "fashion"})
	require.NoError(t, err)
	assert.Equal(t, identity.OnboardingStageBusiness, business.Stage)
	assert.Equal(t, []identity.BusinessType{identity.BusinessTypeFashion, identity.BusinessTypeFood}, business.BusinessTypes)
	assert.Equal(t, identity.NextStepStoreCreate, business.NextStep)

	t.Run("changing the country keeps the stage", func(t *testing.T) {
		result, err := f.onboarding.SelectCountry(ctx, accountID, "AE")
		require.NoError(t, err)
		assert.Equal(t, identity.OnboardingStageBusiness, result.Stage)
		assert.Equal(t, identity.CountryAE, result.Country)
	})

	store, err := f.onboarding.CreateStore(ctx, accountID, CreateStoreInput{Name: " Sara Boutique ", Slug: "Sara-Boutique"})
	require.NoError(t, err)
	assert.Equal(t, "Sara Boutique", store.Name)
	assert.Equal(t, "sara-boutique", store.Slug)
	assert.Equal(t, "SAR", store.Currency)
	assert.Equal(t, "ar", store.Language)
	assert.Equal(t, identity.NextStepDashboard, store.NextStep)

	record, err := persistence.NewGormOnboardingRepository(f.db).FindByAccountID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, identity.OnboardingStageDone, record.Stage)

	t.Run("one store per merchant", func(t *testing.T) {
		_, err := f.onboarding.CreateStore(ctx, accountID, CreateStoreInput{Name: "Second", Slug: "second"})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("store owners go to the dashboard", func(t *testing.T) {
		next, err := f.onboarding.NextStep(ctx, accountID)
		require.NoError(t, err)
		assert.True(t, next.HasStore)
		assert.Equal(t, identity.OnboardingStepDone, next.OnboardingStep)
		assert.Equal(t, identity.NextStepDashboard, next.NextStep)
	})
}

func TestOnboardingService_StepOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("business types before country", func(t *testing.T) {
		f := newServiceFixture(t)
		accountID := verifiedMerchant(t, f, "+966500000001", "sara@example.com")

		_, err := f.onboarding.SelectBusinessTypes(ctx, accountID, []string{"food"})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("store before business types", func(t *testing.T) {
		f := newServiceFixture(t)
		accountID := verifiedMerchant(t, f, "+966500000001", "sara@example.com")
		_, err := f.onboarding.SelectCountry(ctx, accountID, "SA")
		require.NoError(t, err)

		_, err = f.onboarding.CreateStore(ctx, accountID, CreateStoreInput{Name: "Shop", Slug: "shop"})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("invalid selections", func(t *testing.T) {
		f := newServiceFixture(t)
		accountID := verifiedMerchant(t, f, "+966500000001", "sara@example.com")

		_, err := f.onboarding.SelectCountry(ctx, accountID, "FR")
		assertReason(t, err, shared.CodeValidation, "country")
		_, err = f.onboarding.SelectBusinessTypes(ctx, accountID, []string{"mining"})
		assertReason(t, err, shared.CodeValidation, "business_types")
		_, err = f.onboarding.SelectBusinessTypes(ctx, accountID, nil)
		assertReason(t, err, shared.CodeValidation, "business_types")
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.onboarding.SelectCountry(ctx, uuid.New(), "SA")
		assert.ErrorIs(t, err, identity.ErrAccountNotFound)
	})
}

func TestOnboardingService_EnsureStep(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	accountID := otpMerchant(t, f, "+966500000009")

	record, err := f.onboarding.EnsureStep(ctx, accountID, identity.OnboardingStageCountry)
	require.NoError(t, err)
	assert.Equal(t, identity.OnboardingStageCountry, record.Stage)

	_, err = f.onboarding.EnsureStep(ctx, accountID, identity.OnboardingStageStore)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	record, err = f.onboarding.EnsureStep(ctx, accountID, identity.OnboardingStageRegistered)
	require.NoError(t, err)
	assert.Equal(t, identity.OnboardingStageRegistered, record.Stage)

	_, err = f.onboarding.EnsureStep(ctx, accountID, identity.OnboardingStage("bogus"))
	assertReason(t, err, shared.CodeValidation, "step")

	t.Run("creates a missing record", func(t *testing.T) {
		other := uuid.New()
		record, err := f.onboarding.EnsureStep(ctx, other, identity.OnboardingStageRegistered)
		require.NoError(t, err)
		assert.Equal(t, other, record.AccountID)
	})
}

func TestOnboardingService_CreateStore_Validation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	ready := func(phone, email string) uuid.UUID {
		accountID := verifiedMerchant(t, f, phone, email)
		_, err := f.onboarding.SelectCountry(ctx, accountID, "SA")
		require.NoError(t, err)
		_, err = f.onboarding.SelectBusinessTypes(ctx, accountID, []string{"beauty"})
		require.NoError(t, err)
		return accountID
	}
	first := ready("+966500000001", "first@example.com")
	second := ready("+966500000002", "second@example.com")

	_, err := f.onboarding.CreateStore(ctx, first, CreateStoreInput{Name: "First", Slug: "glow"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input CreateStoreInput
		code  string
		field string
	}{
		{"taken slug", CreateStoreInput{Name: "Second", Slug: "GLOW"}, shared.CodeAlreadyExists, "slug"},
		{"reserved slug", CreateStoreInput{Name: "Second", Slug: "admin"}, shared.CodeValidation, "slug"},
		{"malformed slug", CreateStoreInput{Name: "Second", Slug: "my--shop"}, shared.CodeValidation, "slug"},
		{"missing name", CreateStoreInput{Name: "  ", Slug: "second-shop"}, shared.CodeValidation, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.onboarding.CreateStore(ctx, second, tt.input)
			assertReason(t, err, tt.code, tt.field)
		})
	}

	record, err := persistence.NewGormOnboardingRepository(f.db).FindByAccountID(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, identity.OnboardingStageBusiness, record.Stage, "failed attempts leave the record untouched")
}

func TestOnboardingService_CompleteProfile(t *testing.T) {
	ctx := context.Background()

	input := CompleteProfileInput{
		FullName:    "Omar Trader",
		Phone:       "+966500000009",
		Email:       "omar@example.com",
		Password:    "s3cure-pass",
		AcceptTerms: true,
	}

	t.Run("completes an otp account", func(t *testing.T) {
		f := newServiceFixture(t)
		accountID := otpMerchant(t, f, "+966500000009")

		result, err := f.onboarding.CompleteProfile(ctx, accountID, input)
		require.NoError(t, err)
		assert.True(t, result.OTPRequired)
		assert.Equal(t, identity.NextStepOTPVerify, result.NextStep)
		assert.Equal(t, "omar@example.com", result.Account.Email)
		assert.True(t, result.Account.HasPassword)

		login, err := f.auth.Login(ctx, LoginInput{Identifier: "omar@example.com", Password: "s3cure-pass"})
		require.NoError(t, err)
		assert.Equal(t, accountID, login.Account.ID)
	})

	t.Run("email provisioned account keeps its email", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.auth.RequestOTP(ctx, RequestOTPInput{Identifier: "omar@example.com"})
		require.NoError(t, err)
		session, err := f.auth.VerifyOTP(ctx, VerifyOTPInput{Identifier: "omar@example.com", Code: f.lastCode(t, "omar@example.com")})
		require.NoError(t, err)

		result, err := f.onboarding.CompleteProfile(ctx, session.Account.ID, input)
		require.NoError(t, err)
		assert.False(t, result.OTPRequired)
		assert.Equal(t, identity.NextStepOnboardingCountry, result.NextStep)
		assert.Equal(t, "+966500000009", result.Account.Username)

		mismatch := input
		mismatch.Email = "other@example.com"
		_, err = f.onboarding.CompleteProfile(ctx, session.Account.ID, mismatch)
		assertReason(t, err, shared.CodeValidation, "email")
	})

	t.Run("phone on the profile must match", func(t *testing.T) {
		f := newServiceFixture(t)
		accountID := otpMerchant(t, f, "+966500000009")

		other := input
		other.Phone = "+966500000010"
		_, err := f.onboarding.CompleteProfile(ctx, accountID, other)
		assertReason(t, err, shared.CodeValidation, "phone")
	})

	t.Run("identifiers of other accounts", func(t *testing.T) {
		f := newServiceFixture(t)
		f.register(t, "+966500000001", "taken@example.com")
		accountID := otpMerchant(t, f, "+966500000009")

		taken := input
		taken.Email = "taken@example.com"
		_, err := f.onboarding.CompleteProfile(ctx, accountID, taken)
		assertReason(t, err, shared.CodeAlreadyExists, "email")

		taken = input
		taken.Phone = "+966500000001"
		_, err = f.onboarding.CompleteProfile(ctx, accountID, taken)
		assertReason(t, err, shared.CodeAlreadyExists, "phone")
	})
}
