package domain

import "time"

// AccountRegisteredEvent represents the payload for users.account.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Email        string
	Username     string
	Status       string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// EmailVerificationRequestedEvent represents the payload for
// users.email.verification_requested messages. The raw token rides in the
// event so the mailer can embed it in the verification link.
type EmailVerificationRequestedEvent struct {
	EventID     string
	AccountID   string
	Email       string
	Token       string
	RequestedAt time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// EmailVerifiedEvent represents the payload for users.email.verified messages.
type EmailVerifiedEvent struct {
	EventID    string
	AccountID  string
	Email      string
	VerifiedAt time.Time
	Metadata   map[string]any
}

// PasswordResetRequestedEvent represents the payload for
// users.password.reset_requested messages. Carries the raw reset token for
// the mailer; only its hash is persisted.
type PasswordResetRequestedEvent struct {
	EventID           string
	AccountID         string
	Email             string
	MaskedDestination string
	Token             string
	RequestedAt       time.Time
	ExpiresAt         time.Time
	IPAddress         *string
	Metadata          map[string]any
}

// PasswordChangedEvent represents the payload for users.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	ChangedBy string
	Metadata  map[string]any
}

// AccountLockedEvent represents the payload for users.account.locked messages.
type AccountLockedEvent struct {
	EventID        string
	AccountID      string
	FailedAttempts int
	LockedAt       time.Time
	LockedUntil    time.Time
	Metadata       map[string]any
}

// AccountDeactivatedEvent represents the payload for users.account.deactivated messages.
type AccountDeactivatedEvent struct {
	EventID       string
	AccountID     string
	DeactivatedAt time.Time
	Metadata      map[string]any
}
