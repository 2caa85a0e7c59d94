package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// AccountStatus enumerates possible account states.
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Location captures optional geography data attached to the profile.
type Location struct {
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID        string
	Email     string
	Username  string
	FirstName string
	LastName  string

	PasswordHash string

	Status        AccountStatus
	EmailVerified bool

	// Email verification: the token is stored raw and matched by value.
	VerificationToken     *string
	VerificationExpiresAt *time.Time

	// Password reset: only the SHA-256 hash of the token is persisted.
	ResetTokenHash *string
	ResetExpiresAt *time.Time

	FailedAttempts int
	LockedUntil    *time.Time

	// Present for forward compatibility; no 2FA flow reads it.
	TwoFactorEnabled bool

	Bio       string
	AvatarURL *string
	Phone     *string
	Location  *Location

	Preferences Preferences
	Learning    LearningProfile

	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
	LastActiveAt *time.Time
	DeletedAt    *time.Time
}

// FullName joins the name parts for display purposes.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// IsLocked reports whether a lockout window is active at the given instant.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// HasActiveVerificationToken reports whether an unexpired verification token exists.
func (a *Account) HasActiveVerificationToken(now time.Time) bool {
	return a.VerificationToken != nil && a.VerificationExpiresAt != nil && a.VerificationExpiresAt.After(now)
}

// HasActiveResetToken reports whether an unexpired reset token hash exists.
func (a *Account) HasActiveResetToken(now time.Time) bool {
	return a.ResetTokenHash != nil && a.ResetExpiresAt != nil && a.ResetExpiresAt.After(now)
}

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	maxNameLength     = 50
	maxBioLength      = 500
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// FieldError describes a single field-level validation violation.
type FieldError struct {
	Field   string
	Message string
}

// Error implements error for FieldError.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks the address shape. Addresses are compared lower-cased.
func ValidateEmail(email string) error {
	if email == "" {
		return &FieldError{Field: "email", Message: "email is required"}
	}
	if !emailPattern.MatchString(email) {
		return &FieldError{Field: "email", Message: "email address is invalid"}
	}
	return nil
}

// ValidateUsername checks length and allowed characters.
func ValidateUsername(username string) error {
	if username == "" {
		return &FieldError{Field: "username", Message: "username is required"}
	}
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return &FieldError{
			Field:   "username",
			Message: fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength),
		}
	}
	if !usernamePattern.MatchString(username) {
		return &FieldError{Field: "username", Message: "username may only contain letters, numbers, underscores, and hyphens"}
	}
	return nil
}

// ValidateName checks a first or last name part.
func ValidateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Message: field + " is required"}
	}
	if len(value) > maxNameLength {
		return &FieldError{Field: field, Message: fmt.Sprintf("%s cannot exceed %d characters", field, maxNameLength)}
	}
	return nil
}

// ValidateBio checks the optional bio length.
func ValidateBio(bio string) error {
	if len(bio) > maxBioLength {
		return &FieldError{Field: "bio", Message: fmt.Sprintf("bio cannot exceed %d characters", maxBioLength)}
	}
	return nil
}

// NewAccount builds a pending account from validated identity fields.
// The password hash is attached by the caller; plaintext never reaches this type.
func NewAccount(id, email, username, firstName, lastName string, now time.Time) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if err := ValidateEmail(email); err != nil {
		return Account{}, err
	}
	if err := ValidateUsername(username); err != nil {
		return Account{}, err
	}
	if err := ValidateName("first name", firstName); err != nil {
		return Account{}, err
	}
	if err := ValidateName("last name", lastName); err != nil {
		return Account{}, err
	}

	return Account{
		ID:          id,
		Email:       email,
		Username:    username,
		FirstName:   firstName,
		LastName:    lastName,
		Status:      AccountStatusPending,
		Preferences: DefaultPreferences(),
		Learning:    DefaultLearningProfile(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
