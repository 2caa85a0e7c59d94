package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/infra/config"
	"github.com/codecrafthub/user-service/internal/infra/logger"
	"github.com/codecrafthub/user-service/internal/infra/security"
	"github.com/codecrafthub/user-service/internal/repository"
)

const (
	verificationTokenBytes = 32
	defaultVerificationTTL = 24 * time.Hour
)

var (
	// ErrEmailTaken indicates the email address is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken indicates the username is already taken.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrVerificationTokenInvalid indicates the verification token is unknown or already used.
	ErrVerificationTokenInvalid = errors.New("verification token invalid")
	// ErrVerificationTokenExpired indicates the verification token exists but is expired.
	ErrVerificationTokenExpired = errors.New("verification token expired")
	// ErrAlreadyVerified indicates the email address was verified earlier.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrAccountNotFound indicates no account matches the given identifier.
	ErrAccountNotFound = errors.New("account not found")
)

// RegistrationService handles new account onboarding and email verification.
type RegistrationService struct {
	cfg      *config.AppConfig
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	policy   port.PasswordPolicyValidator
	tokens   port.TokenIssuer
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	tokens port.TokenIssuer,
	events port.EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		cfg:      cfg,
		accounts: accounts,
		hasher:   hasher,
		policy:   policy,
		tokens:   tokens,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *RegistrationService) verificationTTL() time.Duration {
	if s.cfg != nil && s.cfg.Security.VerificationTokenTTL > 0 {
		return s.cfg.Security.VerificationTokenTTL
	}
	return defaultVerificationTTL
}

// RegisterInput carries the fields required to open an account.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// RegistrationResult bundles the created account with its session tokens.
type RegistrationResult struct {
	Account      domain.Account
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Register creates a pending account, stores its verification token, and
// issues a session token pair.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegistrationResult, error) {
	password := strings.TrimSpace(input.Password)
	if password == "" {
		return nil, &domain.FieldError{Field: "password", Message: "password is required"}
	}

	now := s.now().UTC()
	account, err := domain.NewAccount(uuid.NewString(), input.Email, input.Username, input.FirstName, input.LastName, now)
	if err != nil {
		return nil, err
	}

	passwordCtx := port.PasswordContext{Email: account.Email, Username: account.Username}
	if err := s.policy.Validate(password, passwordCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	// Combined duplicate lookup so the conflict can name the colliding field.
	if existing, err := s.accounts.FindDuplicate(ctx, account.Email, account.Username); err == nil {
		if existing.Email == account.Email {
			return nil, ErrEmailTaken
		}
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check duplicates: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = passwordHash

	rawToken, err := security.GenerateSecureToken(verificationTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}
	expiresAt := now.Add(s.verificationTTL())
	account.VerificationToken = &rawToken
	account.VerificationExpiresAt = &expiresAt

	if err := s.accounts.Create(ctx, account); err != nil {
		// The unique index backstops the earlier lookup under concurrent registration.
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	accessToken, expiresIn, err := s.tokens.IssueAccess(&account, false)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefresh(&account)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	s.publishRegisteredEvents(ctx, &account, rawToken, now, expiresAt)

	sanitized := account
	sanitized.PasswordHash = ""

	return &RegistrationResult{
		Account:      sanitized,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// VerifyEmail consumes a verification token, activating the account.
func (s *RegistrationService) VerifyEmail(ctx context.Context, token string) (*domain.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrVerificationTokenInvalid
	}

	account, err := s.accounts.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVerificationTokenInvalid
		}
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}

	now := s.now().UTC()
	if account.VerificationExpiresAt == nil || now.After(*account.VerificationExpiresAt) {
		return nil, ErrVerificationTokenExpired
	}

	if err := s.accounts.MarkEmailVerified(ctx, account.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVerificationTokenInvalid
		}
		return nil, fmt.Errorf("mark email verified: %w", err)
	}

	account.EmailVerified = true
	account.VerificationToken = nil
	account.VerificationExpiresAt = nil
	if account.Status == domain.AccountStatusPending {
		account.Status = domain.AccountStatusActive
	}
	account.UpdatedAt = now
	account.PasswordHash = ""

	if s.events != nil {
		event := domain.EmailVerifiedEvent{
			EventID:    uuid.NewString(),
			AccountID:  account.ID,
			Email:      account.Email,
			VerifiedAt: now,
		}
		if err := s.events.PublishEmailVerified(ctx, event); err != nil {
			s.logger.Warn("publish email verified event failed",
				zap.String("account_id", account.ID), zap.Error(err))
		}
	}

	return account, nil
}

// ResendVerification replaces the pending verification token with a fresh one.
func (s *RegistrationService) ResendVerification(ctx context.Context, email string) (time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	// The lookup below also resolves usernames; only a well-formed email
	// address may reach it.
	if err := domain.ValidateEmail(email); err != nil {
		return time.Time{}, err
	}

	account, err := s.accounts.GetByIdentifier(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return time.Time{}, ErrAccountNotFound
		}
		return time.Time{}, fmt.Errorf("lookup account: %w", err)
	}

	if account.EmailVerified {
		return time.Time{}, ErrAlreadyVerified
	}

	rawToken, err := security.GenerateSecureToken(verificationTokenBytes)
	if err != nil {
		return time.Time{}, fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.verificationTTL())

	// Overwrites any prior token; only the latest value verifies.
	if err := s.accounts.SetVerificationToken(ctx, account.ID, rawToken, expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return time.Time{}, ErrAccountNotFound
		}
		return time.Time{}, fmt.Errorf("store verification token: %w", err)
	}

	s.publishVerificationRequested(ctx, account, rawToken, now, expiresAt)

	return expiresAt, nil
}

func (s *RegistrationService) publishRegisteredEvents(ctx context.Context, account *domain.Account, rawToken string, now, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	registered := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Email:        account.Email,
		Username:     account.Username,
		Status:       string(account.Status),
		RegisteredAt: now,
	}
	if err := s.events.PublishAccountRegistered(ctx, registered); err != nil {
		s.logger.Warn("publish account registered event failed",
			zap.String("account_id", account.ID),
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err))
	}

	s.publishVerificationRequested(ctx, account, rawToken, now, expiresAt)
}

func (s *RegistrationService) publishVerificationRequested(ctx context.Context, account *domain.Account, rawToken string, now, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.EmailVerificationRequestedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		Email:       account.Email,
		Token:       rawToken,
		RequestedAt: now,
		ExpiresAt:   expiresAt,
	}
	if err := s.events.PublishEmailVerificationRequested(ctx, event); err != nil {
		s.logger.Warn("publish verification requested event failed",
			zap.String("account_id", account.ID),
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err))
	}
}
