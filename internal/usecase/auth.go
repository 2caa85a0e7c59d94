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
	"github.com/codecrafthub/user-service/internal/infra/security"
	"github.com/codecrafthub/user-service/internal/repository"
)

const (
	defaultMaxFailedAttempts = 5
	defaultLockoutDuration   = 2 * time.Hour
)

var (
	// ErrInvalidCredentials indicates the provided identifier or password are
	// incorrect. Unknown identifiers return the same error as wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is under an active lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrInactiveAccount indicates the account status refuses login.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrInvalidRefreshToken indicates the refresh token failed verification.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the refresh token has expired.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrInvalidAccessToken indicates the access token is malformed or its signature check failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// TokenPair bundles the signed session tokens returned to clients.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// AuthService coordinates authentication flows.
type AuthService struct {
	cfg      *config.AppConfig
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	tokens   port.TokenIssuer
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		cfg:      cfg,
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *AuthService) maxFailedAttempts() int {
	if s.cfg != nil && s.cfg.Security.MaxFailedAttempts > 0 {
		return s.cfg.Security.MaxFailedAttempts
	}
	return defaultMaxFailedAttempts
}

func (s *AuthService) lockoutDuration() time.Duration {
	if s.cfg != nil && s.cfg.Security.LockoutDuration > 0 {
		return s.cfg.Security.LockoutDuration
	}
	return defaultLockoutDuration
}

// Login validates credentials and issues a session token pair.
func (s *AuthService) Login(ctx context.Context, identifier, password string, rememberMe bool) (*TokenPair, *domain.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup account: %w", err)
	}

	now := s.now().UTC()

	// The lock gate runs before any hashing work; a correct password does
	// not bypass an active lock.
	if account.IsLocked(now) {
		return nil, nil, ErrAccountLocked
	}

	if account.Status != domain.AccountStatusActive {
		return nil, nil, ErrInactiveAccount
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if err := s.recordFailure(ctx, account, now); err != nil {
			s.logger.Warn("record failed login attempt failed",
				zap.String("account_id", account.ID), zap.Error(err))
		}
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.accounts.ResetLockout(ctx, account.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("reset lockout: %w", err)
	}
	if err := s.accounts.RecordLogin(ctx, account.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("record login: %w", err)
	}

	account.FailedAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now
	account.LastActiveAt = &now

	pair, err := s.issuePair(account, rememberMe)
	if err != nil {
		return nil, nil, err
	}

	sanitized := *account
	sanitized.PasswordHash = ""

	return pair, &sanitized, nil
}

// recordFailure applies the lockout bookkeeping for a wrong password. A
// failure landing after a lapsed lock restarts the count at 1 instead of
// resuming the stale streak.
func (s *AuthService) recordFailure(ctx context.Context, account *domain.Account, now time.Time) error {
	if account.LockedUntil != nil && !account.LockedUntil.After(now) {
		return s.accounts.RestartFailedAttempts(ctx, account.ID)
	}

	attempts, err := s.accounts.IncrementFailedAttempts(ctx, account.ID)
	if err != nil {
		return err
	}

	if attempts < s.maxFailedAttempts() {
		return nil
	}

	until := now.Add(s.lockoutDuration())
	if err := s.accounts.Lock(ctx, account.ID, until); err != nil {
		return err
	}

	if s.events != nil {
		event := domain.AccountLockedEvent{
			EventID:        uuid.NewString(),
			AccountID:      account.ID,
			FailedAttempts: attempts,
			LockedAt:       now,
			LockedUntil:    until,
		}
		if err := s.events.PublishAccountLocked(ctx, event); err != nil {
			s.logger.Warn("publish account locked event failed",
				zap.String("account_id", account.ID), zap.Error(err))
		}
	}

	return nil
}

// RefreshAccessToken verifies the refresh token and issues a fresh access
// token. The refresh token itself is not rotated.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, *domain.Account, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, nil, ErrInvalidRefreshToken
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, nil, ErrExpiredRefreshToken
		}
		return nil, nil, ErrInvalidRefreshToken
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, fmt.Errorf("lookup account: %w", err)
	}

	if account.Status != domain.AccountStatusActive {
		return nil, nil, ErrInactiveAccount
	}

	accessToken, expiresIn, err := s.tokens.IssueAccess(account, false)
	if err != nil {
		return nil, nil, fmt.Errorf("issue access token: %w", err)
	}

	sanitized := *account
	sanitized.PasswordHash = ""

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, &sanitized, nil
}

// ParseAccessToken validates an access token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*domain.SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidAccessToken
	}

	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

func (s *AuthService) issuePair(account *domain.Account, rememberMe bool) (*TokenPair, error) {
	accessToken, expiresIn, err := s.tokens.IssueAccess(account, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefresh(account)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}
