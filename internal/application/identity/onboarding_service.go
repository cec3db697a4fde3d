package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	errStoreNotReady   = shared.NewDomainError(shared.CodeInvalidState, "Finish onboarding before creating a store")
	errStoreExists     = shared.NewDomainError(shared.CodeAlreadyExists, "Merchant already has a store")
	errSlugTaken       = shared.NewFieldError(shared.CodeAlreadyExists, "This store slug is already taken", "slug")
	errEmailMismatch   = shared.NewValidationError("Email does not match this account", "email")
	errPhoneMismatch   = shared.NewValidationError("Phone does not match this account", "phone")
	errInvalidStepName = shared.NewValidationError("Invalid onboarding step", "step")
)

// OnboardingService drives an authenticated merchant from profile completion to a store
type OnboardingService struct {
	repos   Repositories
	txScope appotp.TransactionScope
	clock   shared.Clock
	logger  *zap.Logger
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(repos Repositories, txScope appotp.TransactionScope, logger *zap.Logger, opts ...Option) *OnboardingService {
	o := applyOptions(opts)
	return &OnboardingService{
		repos:   repos,
		txScope: txScope,
		clock:   o.clock,
		logger:  logger,
	}
}

// SelectCountry stores the country and advances onboarding to the country stage
func (s *OnboardingService) SelectCountry(ctx context.Context, accountID uuid.UUID, rawCountry string) (*OnboardingResult, error) {
	country, err := identity.ValidateCountryChoice(rawCountry)
	if err != nil {
		return nil, err
	}
	return s.updateProfileAndAdvance(ctx, accountID, identity.OnboardingStageCountry, func(p *identity.AccountProfile, now time.Time) {
		p.SetCountry(country, now)
	})
}

// SelectBusinessTypes stores the business types and advances onboarding to the business stage
func (s *OnboardingService) SelectBusinessTypes(ctx context.Context, accountID uuid.UUID, rawTypes []string) (*OnboardingResult, error) {
	types, err := identity.ValidateBusinessTypes(rawTypes)
	if err != nil {
		return nil, err
	}
	return s.updateProfileAndAdvance(ctx, accountID, identity.OnboardingStageBusiness, func(p *identity.AccountProfile, now time.Time) {
		p.SetBusinessTypes(types, now)
	})
}

func (s *OnboardingService) updateProfileAndAdvance(
	ctx context.Context,
	accountID uuid.UUID,
	target identity.OnboardingStage,
	apply func(*identity.AccountProfile, time.Time),
) (*OnboardingResult, error) {
	now := s.clock.Now()
	var (
		account *identity.Account
		profile *identity.AccountProfile
		record  *identity.OnboardingRecord
	)
	err := s.txScope.Execute(ctx, func(repos appotp.TransactionalRepositories) error {
		acc, err := repos.AccountRepo().FindByID(ctx, accountID)
		if err != nil {
			return notFoundAsAccount(err)
		}

		p, err := profileForUpdate(ctx, repos, acc, now)
		if err != nil {
			return err
		}
		apply(p, now)
		if err := repos.ProfileRepo().Save(ctx, p); err != nil {
			return err
		}

		rec, err := lockOnboardingRecord(ctx, repos.OnboardingRepo(), accountID, now)
		if err != nil {
			return err
		}
		// Re-selecting an earlier step keeps the record where it is
		if rec.Stage.Index() < target.Index() {
			if _, err := rec.MoveTo(target, now); err != nil {
				return err
			}
		}
		if err := repos.OnboardingRepo().Save(ctx, rec); err != nil {
			return err
		}

		account, profile, record = acc, p, rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	next, err := resolveNextStep(ctx, s.repos, account, profile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Onboarding step saved",
		zap.String("account_id", accountID.String()),
		zap.String("stage", string(record.Stage)),
	)
	return &OnboardingResult{
		Stage:         record.Stage,
		Country:       profile.Country,
		BusinessTypes: profile.BusinessTypes,
		NextStep:      next.NextStep,
	}, nil
}

// CompleteProfile sets the password, name, phone and email of an account
// provisioned by a one-time code.
func (s *OnboardingService) CompleteProfile(ctx context.Context, accountID uuid.UUID, input CompleteProfileInput) (*CompleteProfileResult, error) {
	fullName, err := identity.ValidateFullName(input.FullName)
	if err != nil {
		return nil, err
	}
	phone, err := identity.ValidatePhone(input.Phone)
	if err != nil {
		return nil, err
	}
	email, err := identity.ValidateEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := identity.EnsureTermsAccepted(input.AcceptTerms); err != nil {
		return nil, err
	}
	if err := identity.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var (
		account *identity.Account
		profile *identity.AccountProfile
	)
	err = s.txScope.Execute(ctx, func(repos appotp.TransactionalRepositories) error {
		acc, err := repos.AccountRepo().FindByID(ctx, accountID)
		if err != nil {
			return notFoundAsAccount(err)
		}
		if err := ensureIdentifiersAvailable(ctx, repos, phone, email, acc.ID); err != nil {
			return err
		}
		if acc.HasEmail() && acc.Email != email {
			return errEmailMismatch
		}

		p, err := findProfile(ctx, repos.ProfileRepo(), acc)
		if err != nil {
			return err
		}
		if p == nil {
			p = identity.NewAccountProfile(acc.ID, now)
		}
		if p.Phone != "" && p.Phone != phone {
			return errPhoneMismatch
		}

		if !acc.HasEmail() {
			acc.SetEmail(email, now)
		}
		acc.SetUsername(phone, now)
		if err := acc.SetPassword(input.Password, now); err != nil {
			return err
		}
		if err := repos.AccountRepo().Update(ctx, acc); err != nil {
			return err
		}

		p.SetFullName(fullName, now)
		p.SetPhone(phone, now)
		p.AcceptTerms(now)
		if err := repos.ProfileRepo().Save(ctx, p); err != nil {
			return err
		}

		if _, err := repos.OnboardingRepo().FindByAccountID(ctx, acc.ID); errors.Is(err, shared.ErrNotFound) {
			if err := repos.OnboardingRepo().Save(ctx, identity.NewOnboardingRecord(acc.ID, now)); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		account, profile = acc, p
		return nil
	})
	if err != nil {
		s.logger.Warn("Profile completion failed",
			zap.String("account_id", accountID.String()),
			zap.String("reason_code", shared.ReasonCode(err)),
		)
		return nil, err
	}

	next, err := resolveNextStep(ctx, s.repos, account, profile)
	if err != nil {
		return nil, err
	}
	return &CompleteProfileResult{
		Account:     newAccountInfo(account, profile),
		OTPRequired: profile.OTPRequired(account),
		NextStep:    next.NextStep,
	}, nil
}

// EnsureStep moves the onboarding record to step, creating it when missing.
// Moving backward or staying put is allowed; skipping ahead is not.
func (s *OnboardingService) EnsureStep(ctx context.Context, accountID uuid.UUID, step identity.OnboardingStage) (*identity.OnboardingRecord, error) {
	if !step.IsValid() {
		return nil, errInvalidStepName
	}

	now := s.clock.Now()
	var record *identity.OnboardingRecord
	err := s.txScope.Execute(ctx, func(repos appotp.TransactionalRepositories) error {
		rec, err := lockOnboardingRecord(ctx, repos.OnboardingRepo(), accountID, now)
		if err != nil {
			return err
		}
		if _, err := rec.MoveTo(step, now); err != nil {
			return err
		}
		if err := repos.OnboardingRepo().Save(ctx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CreateStore creates the merchant's store and finishes onboarding
func (s *OnboardingService) CreateStore(ctx context.Context, accountID uuid.UUID, input CreateStoreInput) (*CreateStoreResult, error) {
	now := s.clock.Now()
	var store *identity.Store
	err := s.txScope.Execute(ctx, func(repos appotp.TransactionalRepositories) error {
		record, err := repos.OnboardingRepo().FindByAccountIDForUpdate(ctx, accountID)
		if errors.Is(err, shared.ErrNotFound) {
			return errStoreNotReady
		}
		if err != nil {
			return err
		}
		if !record.CanCreateStore() {
			return errStoreNotReady
		}

		owned, err := repos.StoreRepo().ExistsByOwner(ctx, accountID)
		if err != nil {
			return err
		}
		if owned {
			return errStoreExists
		}

		slug, err := identity.ValidateStoreSlug(input.Slug)
		if err != nil {
			return err
		}
		taken, err := repos.StoreRepo().ExistsBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if taken {
			return errSlugTaken
		}
		name, err := identity.ValidateStoreName(input.Name)
		if err != nil {
			return err
		}

		if _, err := record.MoveTo(identity.OnboardingStageStore, now); err != nil {
			return err
		}
		st := identity.NewStore(accountID, name, slug, now)
		if err := repos.StoreRepo().Create(ctx, st); err != nil {
			return err
		}
		if _, err := record.MoveTo(identity.OnboardingStageDone, now); err != nil {
			return err
		}
		if err := repos.OnboardingRepo().Save(ctx, record); err != nil {
			return err
		}
		store = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Store created",
		zap.String("account_id", accountID.String()),
		zap.String("store_id", store.ID.String()),
		zap.String("slug", store.Slug),
	)

	next, err := s.NextStep(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &CreateStoreResult{
		StoreID:  store.ID,
		Name:     store.Name,
		Slug:     store.Slug,
		Currency: store.Currency,
		Language: store.Language,
		NextStep: next.NextStep,
	}, nil
}

// NextStep computes where an authenticated session should go next
func (s *OnboardingService) NextStep(ctx context.Context, accountID uuid.UUID) (*NextStepResult, error) {
	account, err := s.repos.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, notFoundAsAccount(err)
	}
	profile, err := findProfile(ctx, s.repos.Profiles, account)
	if err != nil {
		return nil, err
	}
	return resolveNextStep(ctx, s.repos, account, profile)
}

// resolveNextStep runs the post-auth state machine over the account's current state.
// profile may be nil.
func resolveNextStep(ctx context.Context, repos Repositories, account *identity.Account, profile *identity.AccountProfile) (*NextStepResult, error) {
	hasStore, err := repos.Stores.ExistsActiveByOwner(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	state := identity.PostAuthState{
		ProfileComplete:       profile.IsComplete(account),
		OTPRequired:           profile.OTPRequired(account),
		HasStore:              hasStore,
		CountrySelected:       profile.CountrySelected(),
		BusinessTypesSelected: profile.BusinessTypesSelected(),
	}
	return &NextStepResult{
		NextStep:        identity.ResolvePostAuthStep(state),
		OnboardingStep:  identity.ResolveNextOnboardingStep(state.HasStore, state.CountrySelected, state.BusinessTypesSelected),
		ProfileComplete: state.ProfileComplete,
		OTPRequired:     state.OTPRequired,
		HasStore:        state.HasStore,
	}, nil
}

// profileForUpdate returns the account's profile, creating one whose phone
// defaults to a phone login identifier.
func profileForUpdate(ctx context.Context, repos appotp.TransactionalRepositories, account *identity.Account, now time.Time) (*identity.AccountProfile, error) {
	profile, err := findProfile(ctx, repos.ProfileRepo(), account)
	if err != nil || profile != nil {
		return profile, err
	}

	profile = identity.NewAccountProfile(account.ID, now)
	if id, err := identity.NormalizeIdentifier(account.Username); err == nil && !id.IsEmail() {
		taken, err := repos.ProfileRepo().ExistsByPhone(ctx, id.Value, account.ID)
		if err != nil {
			return nil, err
		}
		if !taken {
			profile.SetPhone(id.Value, now)
		}
	}
	return profile, nil
}

// lockOnboardingRecord row-locks the record, or starts a new one at registered
func lockOnboardingRecord(ctx context.Context, repo identity.OnboardingRepository, accountID uuid.UUID, now time.Time) (*identity.OnboardingRecord, error) {
	record, err := repo.FindByAccountIDForUpdate(ctx, accountID)
	if errors.Is(err, shared.ErrNotFound) {
		return identity.NewOnboardingRecord(accountID, now), nil
	}
	return record, err
}
