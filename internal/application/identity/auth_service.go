package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/domain/identity"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/domain/shared"
	"github.com/merchant/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Session error codes
const (
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeTokenInvalid    = "TOKEN_INVALID"
	CodeTokenMaxRefresh = "TOKEN_MAX_REFRESH"
	CodeTokenRevoked    = "TOKEN_REVOKED"
	CodeAccountInactive = "ACCOUNT_INACTIVE"
)

var (
	ErrAccountInactive = shared.NewDomainError(CodeAccountInactive, "Account is not active")
	errBadCredentials  = shared.NewDomainError(shared.CodeInvalidCredentials, "Invalid identifier or password")
)

// Event labels
const (
	MethodPassword = "password"
	MethodOTP      = "otp"
)

// OTPServices are the services of both OTP flows. The hybrid pair serves
// identifier-scoped codes, the email pair own-account codes; each pair
// hashes with its own derived key.
type OTPServices struct {
	HybridIssuer   *appotp.IssuanceService
	HybridVerifier *appotp.VerificationService
	EmailIssuer    *appotp.IssuanceService
	EmailVerifier  *appotp.VerificationService
}

// AuthService handles registration, sign-in and merchant sessions
type AuthService struct {
	repos      Repositories
	resolver   *IdentityResolver
	txScope    appotp.TransactionScope
	otp        OTPServices
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	clock      shared.Clock
	events     EventRecorder
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service.
// blacklist may be nil, in which case logout only ends the session client-side.
func NewAuthService(
	repos Repositories,
	txScope appotp.TransactionScope,
	otpServices OTPServices,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
	opts ...Option,
) *AuthService {
	o := applyOptions(opts)
	return &AuthService{
		repos:      repos,
		resolver:   NewIdentityResolver(repos.Accounts, repos.Profiles),
		txScope:    txScope,
		otp:        otpServices,
		jwtService: jwtService,
		blacklist:  blacklist,
		clock:      o.clock,
		events:     o.events,
		logger:     logger,
	}
}

// ResolveAuthEntry reports which sign-in methods apply to an identifier
func (s *AuthService) ResolveAuthEntry(ctx context.Context, rawIdentifier string) (*identity.AuthEntry, error) {
	id, err := identity.NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return nil, err
	}
	account, err := s.resolver.ResolveIdentifier(ctx, id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	entry, err := identity.BuildAuthEntry(id, account)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Register creates an account with a password, its profile and onboarding record
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
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
		if err := ensureIdentifiersAvailable(ctx, repos, phone, email, uuid.Nil); err != nil {
			return err
		}

		acc, err := identity.NewAccount(phone, email, now)
		if err != nil {
			return err
		}
		if err := acc.SetPassword(input.Password, now); err != nil {
			return err
		}
		if err := repos.AccountRepo().Create(ctx, acc); err != nil {
			return err
		}

		p := identity.NewAccountProfile(acc.ID, now)
		p.SetFullName(fullName, now)
		p.SetPhone(phone, now)
		p.AcceptTerms(now)
		if err := repos.ProfileRepo().Save(ctx, p); err != nil {
			return err
		}
		if err := repos.OnboardingRepo().Save(ctx, identity.NewOnboardingRecord(acc.ID, now)); err != nil {
			return err
		}

		account, profile = acc, p
		return nil
	})
	if err != nil {
		s.logger.Warn("Registration failed", zap.String("reason_code", shared.ReasonCode(err)), zap.Error(err))
		return nil, err
	}

	tokens, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Merchant registered", zap.String("account_id", account.ID.String()))
	s.events.RecordRegistration(ctx, MethodPassword)

	otpRequired := profile.OTPRequired(account)
	return &RegisterResult{
		Account:     newAccountInfo(account, profile),
		Tokens:      *tokens,
		OTPRequired: otpRequired,
		NextStep:    identity.NextStepAfterRegister(otpRequired),
	}, nil
}

// Login authenticates with an identifier and password
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(input.Identifier) == "" || input.Password == "" {
		return nil, errBadCredentials
	}

	account, err := s.resolver.Resolve(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrValidation) {
			s.logger.Warn("Login for unknown identifier")
			return nil, errBadCredentials
		}
		return nil, err
	}
	if !account.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("account_id", account.ID.String()))
		return nil, errBadCredentials
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	profile, err := findProfile(ctx, s.repos.Profiles, account)
	if err != nil {
		return nil, err
	}
	hasStore, err := s.repos.Stores.ExistsActiveByOwner(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	account.RecordLogin(now)
	if err := s.repos.Accounts.RecordLogin(ctx, account.ID, now); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to record login", zap.Error(err))
	}

	tokens, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Merchant logged in", zap.String("account_id", account.ID.String()), zap.String("method", MethodPassword))
	s.events.RecordLogin(ctx, MethodPassword)

	otpRequired := profile.OTPRequired(account)
	return &LoginResult{
		Account:     newAccountInfo(account, profile),
		Tokens:      *tokens,
		OTPRequired: otpRequired,
		HasStore:    hasStore,
		NextStep:    identity.NextStepAfterLogin(otpRequired, hasStore),
	}, nil
}

// RequestOTP issues a hybrid code to an email address or phone number.
// The identifier does not need to belong to an account yet.
func (s *AuthService) RequestOTP(ctx context.Context, input RequestOTPInput) (*RequestOTPResult, error) {
	id, scope, err := hybridScope(input.Identifier, input.Purpose)
	if err != nil {
		return nil, err
	}
	issued, err := s.otp.HybridIssuer.Issue(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &RequestOTPResult{
		Identifier: id.Value,
		Channel:    scope.Channel,
		ExpiresAt:  issued.ExpiresAt,
		Sent:       issued.Sent,
	}, nil
}

// VerifyOTP verifies a hybrid code. A login code for an unknown identifier
// provisions a passwordless account in the same transaction.
func (s *AuthService) VerifyOTP(ctx context.Context, input VerifyOTPInput) (*OTPSessionResult, error) {
	id, scope, err := hybridScope(input.Identifier, input.Purpose)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var (
		account *identity.Account
		profile *identity.AccountProfile
		created bool
	)
	_, err = s.otp.HybridVerifier.Verify(ctx, appotp.VerifyInput{Scope: scope, Code: input.Code},
		func(ctx context.Context, repos appotp.TransactionalRepositories, _ appotp.Verification) error {
			var err error
			account, profile, created, err = resolveOrCreateAccount(ctx, repos, id, scope.Purpose, now)
			return err
		})
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}
	next, err := resolveNextStep(ctx, s.repos, account, profile)
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("Merchant account provisioned by code", zap.String("account_id", account.ID.String()))
		s.events.RecordRegistration(ctx, MethodOTP)
	}
	s.events.RecordLogin(ctx, MethodOTP)

	return &OTPSessionResult{
		Account:  newAccountInfo(account, profile),
		Created:  created,
		Channel:  scope.Channel,
		Tokens:   *tokens,
		NextStep: next.NextStep,
	}, nil
}

// RequestLoginOTP sends a login code to the email of an existing account
func (s *AuthService) RequestLoginOTP(ctx context.Context, rawIdentifier string) (*EmailCodeResult, error) {
	account, err := s.resolver.Resolve(ctx, rawIdentifier)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}
	return s.issueEmailCode(ctx, account, otp.PurposeLogin)
}

// VerifyLoginOTP verifies an own-account login code and opens a session
func (s *AuthService) VerifyLoginOTP(ctx context.Context, rawIdentifier, code string) (*OTPSessionResult, error) {
	account, err := s.resolver.Resolve(ctx, rawIdentifier)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}
	scope, err := accountEmailScope(account, otp.PurposeLogin)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var profile *identity.AccountProfile
	_, err = s.otp.EmailVerifier.Verify(ctx, appotp.VerifyInput{Scope: scope, Code: code},
		func(ctx context.Context, repos appotp.TransactionalRepositories, _ appotp.Verification) error {
			// Re-read so a deactivation committed after the lookup still wins
			current, err := repos.AccountRepo().FindByID(ctx, account.ID)
			if err != nil {
				return err
			}
			if !current.IsActive {
				return ErrAccountInactive
			}
			p, err := findProfile(ctx, repos.ProfileRepo(), current)
			if err != nil {
				return err
			}
			if p != nil && p.MarkEmailVerified(now) {
				if err := repos.ProfileRepo().Save(ctx, p); err != nil {
					return err
				}
			}
			if err := repos.AccountRepo().RecordLogin(ctx, current.ID, now); err != nil {
				return err
			}
			current.RecordLogin(now)
			account, profile = current, p
			return nil
		})
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}
	next, err := resolveNextStep(ctx, s.repos, account, profile)
	if err != nil {
		return nil, err
	}
	s.events.RecordLogin(ctx, MethodOTP)

	return &OTPSessionResult{
		Account:  newAccountInfo(account, profile),
		Channel:  otp.ChannelEmail,
		Tokens:   *tokens,
		NextStep: next.NextStep,
	}, nil
}

// RequestEmailVerification sends an email verification code to the account's email
func (s *AuthService) RequestEmailVerification(ctx context.Context, accountID uuid.UUID) (*EmailCodeResult, error) {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.issueEmailCode(ctx, account, otp.PurposeEmailVerify)
}

// VerifyEmail consumes an email verification code. The verified timestamp
// is set once and never overwritten.
func (s *AuthService) VerifyEmail(ctx context.Context, accountID uuid.UUID, code string) (*VerifyEmailResult, error) {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	scope, err := accountEmailScope(account, otp.PurposeEmailVerify)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var profile *identity.AccountProfile
	_, err = s.otp.EmailVerifier.Verify(ctx, appotp.VerifyInput{Scope: scope, Code: code},
		func(ctx context.Context, repos appotp.TransactionalRepositories, _ appotp.Verification) error {
			p, err := findProfile(ctx, repos.ProfileRepo(), account)
			if err != nil {
				return err
			}
			if p == nil {
				p = identity.NewAccountProfile(account.ID, now)
			}
			p.MarkEmailVerified(now)
			profile = p
			return repos.ProfileRepo().Save(ctx, p)
		})
	if err != nil {
		return nil, err
	}

	next, err := resolveNextStep(ctx, s.repos, account, profile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Email verified", zap.String("account_id", account.ID.String()))
	return &VerifyEmailResult{EmailVerified: true, NextStep: next.NextStep}, nil
}

// RefreshToken exchanges a refresh token for a new pair and revokes the old one
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}
	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, tokenError(auth.ErrTokenBlacklisted)
	}

	accountID, err := claims.GetAccountUUID()
	if err != nil {
		return nil, tokenError(auth.ErrInvalidClaims)
	}
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	pair, err := s.jwtService.RefreshTokenPair(refreshToken)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, tokenError(err)
	}
	if err := s.revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke rotated refresh token", zap.Error(err))
	}

	result := newTokenResult(pair)
	return &result, nil
}

// Logout revokes the access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessTokenID != "" {
		if err := s.revoke(ctx, input.AccessTokenID, input.AccessTokenTTL); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	if input.RefreshToken != "" {
		if claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken); err == nil {
			if err := s.revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				return fmt.Errorf("revoke refresh token: %w", err)
			}
		}
	}
	return nil
}

func (s *AuthService) issueEmailCode(ctx context.Context, account *identity.Account, purpose otp.Purpose) (*EmailCodeResult, error) {
	scope, err := accountEmailScope(account, purpose)
	if err != nil {
		return nil, err
	}
	issued, err := s.otp.EmailIssuer.Issue(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &EmailCodeResult{Email: account.Email, ExpiresAt: issued.ExpiresAt, Sent: issued.Sent}, nil
}

func (s *AuthService) findAccount(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	account, err := s.repos.Accounts.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAsAccount(err)
	}
	return account, nil
}

func (s *AuthService) issueTokens(account *identity.Account) (*TokenResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		AccountID: account.ID,
		Username:  account.Username,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	result := newTokenResult(pair)
	return &result, nil
}

func (s *AuthService) revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if s.blacklist == nil || jti == "" || ttl <= 0 {
		return nil
	}
	return s.blacklist.Revoke(ctx, jti, ttl)
}

func (s *AuthService) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.blacklist == nil || jti == "" {
		return false, nil
	}
	return s.blacklist.IsRevoked(ctx, jti)
}

// hybridScope validates the identifier and maps it to its delivery channel
func hybridScope(rawIdentifier string, purpose otp.Purpose) (identity.Identifier, otp.Scope, error) {
	id, err := identity.NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return identity.Identifier{}, otp.Scope{}, err
	}
	channel := otp.ChannelSMS
	if id.IsEmail() {
		channel = otp.ChannelEmail
		id.Value, err = identity.ValidateEmail(id.Value)
	} else {
		id.Value, err = identity.ValidatePhone(id.Value)
	}
	if err != nil {
		return identity.Identifier{}, otp.Scope{}, shared.NewValidationError("Enter a valid email address or phone number", "identifier")
	}

	if purpose == "" {
		purpose = otp.PurposeLogin
	}
	if purpose != otp.PurposeLogin && purpose != otp.PurposePasswordReset {
		return identity.Identifier{}, otp.Scope{}, shared.NewValidationError("Unsupported purpose", "purpose")
	}
	return id, otp.Scope{Identifier: id.Value, Channel: channel, Purpose: purpose}, nil
}

// accountEmailScope scopes an own-account code to the account's email
func accountEmailScope(account *identity.Account, purpose otp.Purpose) (otp.Scope, error) {
	if !account.HasEmail() {
		return otp.Scope{}, shared.NewValidationError("Account has no email address", "email")
	}
	accountID := account.ID
	return otp.Scope{
		Identifier: account.Email,
		AccountID:  &accountID,
		Channel:    otp.ChannelEmail,
		Purpose:    purpose,
	}, nil
}

// resolveOrCreateAccount runs inside the verifying transaction. Only login
// codes may provision a new account.
func resolveOrCreateAccount(
	ctx context.Context,
	repos appotp.TransactionalRepositories,
	id identity.Identifier,
	purpose otp.Purpose,
	now time.Time,
) (*identity.Account, *identity.AccountProfile, bool, error) {
	accounts, profiles := repos.AccountRepo(), repos.ProfileRepo()

	account, err := resolveIdentifier(ctx, accounts, profiles, id)
	created := false
	switch {
	case err == nil:
		if !account.IsActive {
			return nil, nil, false, ErrAccountInactive
		}
		if err := accounts.RecordLogin(ctx, account.ID, now); err != nil {
			return nil, nil, false, err
		}
		account.RecordLogin(now)
	case errors.Is(err, shared.ErrNotFound) && purpose == otp.PurposeLogin:
		account, err = identity.NewAccountForIdentifier(id, now)
		if err != nil {
			return nil, nil, false, err
		}
		account.RecordLogin(now)
		if err := accounts.Create(ctx, account); err != nil {
			return nil, nil, false, err
		}
		created = true
	default:
		return nil, nil, false, err
	}

	profile, err := findProfile(ctx, profiles, account)
	if err != nil {
		return nil, nil, false, err
	}
	if profile == nil {
		profile = identity.NewAccountProfile(account.ID, now)
	}
	if id.IsEmail() {
		profile.MarkEmailVerified(now)
	} else if profile.Phone == "" {
		taken, err := profiles.ExistsByPhone(ctx, id.Value, account.ID)
		if err != nil {
			return nil, nil, false, err
		}
		if !taken {
			profile.SetPhone(id.Value, now)
		}
	}
	if err := profiles.Save(ctx, profile); err != nil {
		return nil, nil, false, err
	}

	onboarding := repos.OnboardingRepo()
	if _, err := onboarding.FindByAccountID(ctx, account.ID); errors.Is(err, shared.ErrNotFound) {
		if err := onboarding.Save(ctx, identity.NewOnboardingRecord(account.ID, now)); err != nil {
			return nil, nil, false, err
		}
	} else if err != nil {
		return nil, nil, false, err
	}

	return account, profile, created, nil
}

// ensureIdentifiersAvailable rejects a phone or email held by another account
func ensureIdentifiersAvailable(ctx context.Context, repos appotp.TransactionalRepositories, phone, email string, self uuid.UUID) error {
	if phone != "" {
		taken, err := repos.AccountRepo().ExistsByUsername(ctx, phone, self)
		if err != nil {
			return err
		}
		if !taken {
			taken, err = repos.ProfileRepo().ExistsByPhone(ctx, phone, self)
			if err != nil {
				return err
			}
		}
		if taken {
			return shared.NewFieldError(shared.CodeAlreadyExists, "An account with this phone already exists", "phone")
		}
	}
	if email != "" {
		taken, err := repos.AccountRepo().ExistsByEmail(ctx, email, self)
		if err != nil {
			return err
		}
		if taken {
			return shared.NewFieldError(shared.CodeAlreadyExists, "An account with this email already exists", "email")
		}
	}
	return nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError(CodeTokenExpired, "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError(CodeTokenMaxRefresh, "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return shared.NewDomainError(CodeTokenRevoked, "Refresh token has been revoked")
	default:
		return shared.NewDomainError(CodeTokenInvalid, "Invalid refresh token")
	}
}
