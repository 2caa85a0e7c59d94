package port

import (
	"context"

	"github.com/codecrafthub/user-service/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishEmailVerificationRequested(ctx context.Context, event domain.EmailVerificationRequestedEvent) error
	PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishAccountDeactivated(ctx context.Context, event domain.AccountDeactivatedEvent) error
}
