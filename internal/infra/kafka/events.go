package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes users.account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		Email        string         `json:"email"`
		Username     string         `json:"username"`
		Status       string         `json:"status"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Email:        event.Email,
		Username:     event.Username,
		Status:       event.Status,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "users.account.registered", event.AccountID, event.RegisteredAt, payload)
}

// PublishEmailVerificationRequested publishes users.email.verification_requested events.
// The mailer consumes these to deliver the verification link.
func (p *EventPublisher) PublishEmailVerificationRequested(ctx context.Context, event domain.EmailVerificationRequestedEvent) error {
	payload := struct {
		AccountID   string         `json:"account_id"`
		Email       string         `json:"email"`
		Token       string         `json:"token"`
		RequestedAt time.Time      `json:"requested_at"`
		ExpiresAt   time.Time      `json:"expires_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:   event.AccountID,
		Email:       event.Email,
		Token:       event.Token,
		RequestedAt: event.RequestedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "users.email.verification_requested", event.AccountID, event.RequestedAt, payload)
}

// PublishEmailVerified publishes users.email.verified events.
func (p *EventPublisher) PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		Email      string         `json:"email"`
		VerifiedAt time.Time      `json:"verified_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		Email:      event.Email,
		VerifiedAt: event.VerifiedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "users.email.verified", event.AccountID, event.VerifiedAt, payload)
}

// PublishPasswordResetRequested publishes users.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		AccountID         string         `json:"account_id"`
		Email             string         `json:"email"`
		MaskedDestination string         `json:"masked_destination,omitempty"`
		Token             string         `json:"token"`
		RequestedAt       time.Time      `json:"requested_at"`
		ExpiresAt         time.Time      `json:"expires_at"`
		IPAddress         *string        `json:"ip_address,omitempty"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:         event.AccountID,
		Email:             event.Email,
		MaskedDestination: event.MaskedDestination,
		Token:             event.Token,
		RequestedAt:       event.RequestedAt.UTC(),
		ExpiresAt:         event.ExpiresAt.UTC(),
		IPAddress:         event.IPAddress,
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "users.password.reset_requested", event.AccountID, event.RequestedAt, payload)
}

// PublishPasswordChanged publishes users.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "users.password.changed", event.AccountID, event.ChangedAt, payload)
}

// PublishAccountLocked publishes users.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		AccountID      string         `json:"account_id"`
		FailedAttempts int            `json:"failed_attempts"`
		LockedAt       time.Time      `json:"locked_at"`
		LockedUntil    time.Time      `json:"locked_until"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:      event.AccountID,
		FailedAttempts: event.FailedAttempts,
		LockedAt:       event.LockedAt.UTC(),
		LockedUntil:    event.LockedUntil.UTC(),
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "users.account.locked", event.AccountID, event.LockedAt, payload)
}

// PublishAccountDeactivated publishes users.account.deactivated events.
func (p *EventPublisher) PublishAccountDeactivated(ctx context.Context, event domain.AccountDeactivatedEvent) error {
	payload := struct {
		AccountID     string         `json:"account_id"`
		DeactivatedAt time.Time      `json:"deactivated_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:     event.AccountID,
		DeactivatedAt: event.DeactivatedAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "users.account.deactivated", event.AccountID, event.DeactivatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
