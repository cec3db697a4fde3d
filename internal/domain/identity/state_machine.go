package identity

// OnboardingStep is the next onboarding screen
type OnboardingStep string

const (
	OnboardingStepCountry       OnboardingStep = "country"
	OnboardingStepBusinessTypes OnboardingStep = "business_types"
	OnboardingStepStore         OnboardingStep = "store"
	OnboardingStepDone          OnboardingStep = "done"
)

// ResolveNextOnboardingStep returns the next onboarding step.
// Store ownership dominates: once a store exists the result is always done.
func ResolveNextOnboardingStep(hasStore, countrySelected, businessTypesSelected bool) OnboardingStep {
	switch {
	case hasStore:
		return OnboardingStepDone
	case !countrySelected:
		return OnboardingStepCountry
	case !businessTypesSelected:
		return OnboardingStepBusinessTypes
	default:
		return OnboardingStepStore
	}
}

// NextStep is the navigation target for an authenticated merchant session
type NextStep string

const (
	NextStepCompleteProfile         NextStep = "complete_profile"
	NextStepOTPVerify               NextStep = "otp_verify"
	NextStepDashboard               NextStep = "dashboard"
	NextStepOnboardingCountry       NextStep = "onboarding_country"
	NextStepOnboardingBusinessTypes NextStep = "onboarding_business_types"
	NextStepStoreCreate             NextStep = "store_create"
)

// PostAuthState is the account state the post-auth state machine reads
type PostAuthState struct {
	ProfileComplete       bool
	OTPRequired           bool
	HasStore              bool
	CountrySelected       bool
	BusinessTypesSelected bool
}

// ResolvePostAuthStep computes the next screen. Precedence: incomplete profile,
// then pending OTP verification, then onboarding progress.
func ResolvePostAuthStep(s PostAuthState) NextStep {
	if !s.ProfileComplete {
		return NextStepCompleteProfile
	}
	if s.OTPRequired {
		return NextStepOTPVerify
	}
	switch ResolveNextOnboardingStep(s.HasStore, s.CountrySelected, s.BusinessTypesSelected) {
	case OnboardingStepDone:
		return NextStepDashboard
	case OnboardingStepCountry:
		return NextStepOnboardingCountry
	case OnboardingStepBusinessTypes:
		return NextStepOnboardingBusinessTypes
	default:
		return NextStepStoreCreate
	}
}

// AuthNextStep is the coarse step returned right after register or password login
type AuthNextStep string

const (
	AuthNextStepOTPVerify  AuthNextStep = "otp_verify"
	AuthNextStepOnboarding AuthNextStep = "onboarding"
	AuthNextStepDashboard  AuthNextStep = "dashboard"
)

// NextStepAfterRegister returns the step following registration
func NextStepAfterRegister(otpRequired bool) AuthNextStep {
	if otpRequired {
		return AuthNextStepOTPVerify
	}
	return AuthNextStepOnboarding
}

// NextStepAfterLogin returns the step following a password login
func NextStepAfterLogin(otpRequired, hasStore bool) AuthNextStep {
	if otpRequired {
		return AuthNextStepOTPVerify
	}
	if hasStore {
		return AuthNextStepDashboard
	}
	return AuthNextStepOnboarding
}
