package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs users.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"email":         event.Email,
		"username":      event.Username,
		"status":        event.Status,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("users.account.registered", event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishEmailVerificationRequested logs users.email.verification_requested events.
func (p *StubPublisher) PublishEmailVerificationRequested(_ context.Context, event domain.EmailVerificationRequestedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"email":        event.Email,
		"token":        event.Token,
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("users.email.verification_requested", event.AccountID, event.RequestedAt, payload)
	return nil
}

// PublishEmailVerified logs users.email.verified events.
func (p *StubPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"email":       event.Email,
		"verified_at": event.VerifiedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("users.email.verified", event.AccountID, event.VerifiedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs users.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"account_id":         event.AccountID,
		"email":              event.Email,
		"masked_destination": event.MaskedDestination,
		"token":              event.Token,
		"requested_at":       event.RequestedAt,
		"expires_at":         event.ExpiresAt,
		"ip_address":         event.IPAddress,
		"metadata":           event.Metadata,
	}
	p.logEvent("users.password.reset_requested", event.AccountID, event.RequestedAt, payload)
	return nil
}

// PublishPasswordChanged logs users.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
		"metadata":   event.Metadata,
	}
	p.logEvent("users.password.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishAccountLocked logs users.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"account_id":      event.AccountID,
		"failed_attempts": event.FailedAttempts,
		"locked_at":       event.LockedAt,
		"locked_until":    event.LockedUntil,
		"metadata":        event.Metadata,
	}
	p.logEvent("users.account.locked", event.AccountID, event.LockedAt, payload)
	return nil
}

// PublishAccountDeactivated logs users.account.deactivated events.
func (p *StubPublisher) PublishAccountDeactivated(_ context.Context, event domain.AccountDeactivatedEvent) error {
	payload := map[string]any{
		"account_id":     event.AccountID,
		"deactivated_at": event.DeactivatedAt,
		"metadata":       event.Metadata,
	}
	p.logEvent("users.account.deactivated", event.AccountID, event.DeactivatedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
