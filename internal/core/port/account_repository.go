package port

import (
	"context"
	"time"

	"github.com/codecrafthub/user-service/internal/core/domain"
)

// ProfileUpdate is the allow-list of mutable profile fields. Nil pointers
// leave the corresponding column untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Bio       *string
	AvatarURL *string
	Phone     *string
	Location  *domain.Location
}

// ListFilter narrows and pages account listings.
type ListFilter struct {
	Status *domain.AccountStatus
	Search string
	Offset int
	Limit  int
}

// AccountRepository exposes persistence behavior for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByIdentifier resolves an account by email or username.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	// FindDuplicate returns the first account matching either value,
	// used to distinguish email conflicts from username conflicts.
	FindDuplicate(ctx context.Context, email, username string) (*domain.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*domain.Account, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error)

	SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	// ResetPassword stores the new hash and clears the reset token fields
	// in one statement so the token cannot be replayed.
	ResetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error

	// IncrementFailedAttempts bumps the counter atomically and returns the
	// new value.
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)
	// RestartFailedAttempts resets the counter to 1 and clears any expired
	// lock, used when a failure lands after the lockout window lapsed.
	RestartFailedAttempts(ctx context.Context, id string) error
	ResetLockout(ctx context.Context, id string) error
	Lock(ctx context.Context, id string, until time.Time) error
	RecordLogin(ctx context.Context, id string, at time.Time) error

	UpdateProfile(ctx context.Context, id string, update ProfileUpdate, at time.Time) error
	UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences, at time.Time) error
	UpdateLearningProfile(ctx context.Context, id string, learning domain.LearningProfile, at time.Time) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error

	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}
