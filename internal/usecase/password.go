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
	resetTokenBytes = 32
	defaultResetTTL = 10 * time.Minute

	passwordChangeReason = "password_change"
	passwordResetReason  = "password_reset"
)

var (
	// ErrResetTokenInvalid indicates the supplied reset token is unknown or already used.
	ErrResetTokenInvalid = errors.New("password reset token invalid")
	// ErrResetTokenExpired indicates the supplied reset token is expired.
	ErrResetTokenExpired = errors.New("password reset token expired")
	// ErrCurrentPasswordInvalid indicates the current password check failed.
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")
	// ErrNewPasswordInvalid indicates the replacement password was rejected.
	ErrNewPasswordInvalid = errors.New("new password is invalid")
)

// RateLimitExceededError signals a sliding-window limit was hit.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

// Error implements error for RateLimitExceededError.
func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

// PasswordService coordinates password change and reset flows.
type PasswordService struct {
	cfg        *config.AppConfig
	accounts   port.AccountRepository
	hasher     port.PasswordHasher
	policy     port.PasswordPolicyValidator
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewPasswordService constructs a PasswordService.
func NewPasswordService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	rateLimits port.RateLimitStore,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordService{
		cfg:        cfg,
		accounts:   accounts,
		hasher:     hasher,
		policy:     policy,
		rateLimits: rateLimits,
		events:     events,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PasswordService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *PasswordService) resetTTL() time.Duration {
	if s.cfg != nil && s.cfg.Security.ResetTokenTTL > 0 {
		return s.cfg.Security.ResetTokenTTL
	}
	return defaultResetTTL
}

// ForgotPasswordInput captures a reset request.
type ForgotPasswordInput struct {
	Email string
	IP    string
}

// ForgotPassword issues a reset token for the address. Unknown addresses
// succeed silently so the endpoint cannot be used for account enumeration.
func (s *PasswordService) ForgotPassword(ctx context.Context, input ForgotPasswordInput) error {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return &domain.FieldError{Field: "email", Message: "email is required"}
	}

	now := s.now().UTC()
	if err := s.enforceResetRateLimit(ctx, email, now); err != nil {
		return err
	}

	account, err := s.accounts.GetByIdentifier(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	raw, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := now.Add(s.resetTTL())

	// Only the hash is persisted; a new request invalidates the prior token.
	if err := s.accounts.SetResetToken(ctx, account.ID, security.HashToken(raw), expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("store reset token: %w", err)
	}

	s.publishResetRequested(ctx, account, raw, now, expiresAt, input.IP)

	return nil
}

// ResetPassword consumes a reset token and installs the new password. The
// token grants exactly one change.
func (s *PasswordService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrResetTokenInvalid
	}
	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" {
		return &domain.FieldError{Field: "password", Message: "new password is required"}
	}

	account, err := s.accounts.FindByResetTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.now().UTC()
	if account.ResetExpiresAt == nil || now.After(*account.ResetExpiresAt) {
		return ErrResetTokenExpired
	}

	hash, err := s.prepareNewPassword(account, newPassword)
	if err != nil {
		return err
	}

	// Clears the token fields in the same statement as the hash update.
	if err := s.accounts.ResetPassword(ctx, account.ID, hash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("reset password: %w", err)
	}

	s.publishPasswordChanged(ctx, account.ID, now, passwordResetReason)

	return nil
}

// ChangePasswordInput captures an authenticated password change.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// ChangePassword updates the password after validating the current one.
func (s *PasswordService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		return ErrAccountNotFound
	}
	currentPassword := strings.TrimSpace(input.CurrentPassword)
	if currentPassword == "" {
		return ErrCurrentPasswordInvalid
	}
	newPassword := strings.TrimSpace(input.NewPassword)
	if newPassword == "" {
		return &domain.FieldError{Field: "password", Message: "new password is required"}
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	matches, err := s.hasher.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !matches {
		return ErrCurrentPasswordInvalid
	}

	hash, err := s.prepareNewPassword(account, newPassword)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChanged(ctx, account.ID, now, passwordChangeReason)

	return nil
}

// prepareNewPassword validates the replacement against policy and the current
// hash, then returns the new encoding.
func (s *PasswordService) prepareNewPassword(account *domain.Account, newPassword string) (string, error) {
	passwordCtx := port.PasswordContext{Email: account.Email, Username: account.Username}
	if err := s.policy.Validate(newPassword, passwordCtx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNewPasswordInvalid, err)
	}

	if same, err := s.hasher.Verify(newPassword, account.PasswordHash); err != nil {
		return "", fmt.Errorf("compare new password: %w", err)
	} else if same {
		return "", fmt.Errorf("%w: must differ from current password", ErrNewPasswordInvalid)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("hash new password: %w", err)
	}

	return hash, nil
}

func (s *PasswordService) enforceResetRateLimit(ctx context.Context, email string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	if err := s.rateLimits.TrimWindow(ctx, port.RateLimitScopePasswordReset, email, window, now); err != nil {
		s.logger.Warn("password reset rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, port.RateLimitScopePasswordReset, email, window, now)
	if err != nil {
		s.logger.Warn("password reset rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, port.RateLimitScopePasswordReset, email, window, now); err == nil && ok {
			if reset := oldest.Add(window); reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("password reset rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: port.RateLimitScopePasswordReset, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, port.RateLimitScopePasswordReset, email, now); err != nil {
		s.logger.Warn("password reset rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *PasswordService) publishResetRequested(ctx context.Context, account *domain.Account, rawToken string, now, expiresAt time.Time, ip string) {
	if s.events == nil {
		return
	}

	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		AccountID:         account.ID,
		Email:             account.Email,
		MaskedDestination: logger.MaskEmail(account.Email),
		Token:             rawToken,
		RequestedAt:       now,
		ExpiresAt:         expiresAt,
	}
	if trimmed := strings.TrimSpace(ip); trimmed != "" {
		event.IPAddress = &trimmed
	}

	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish password reset requested event failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *PasswordService) publishPasswordChanged(ctx context.Context, accountID string, changedAt time.Time, changedBy string) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		ChangedAt: changedAt,
		ChangedBy: changedBy,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed",
			zap.String("account_id", accountID), zap.Error(err))
	}
}
