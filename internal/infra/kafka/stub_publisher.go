package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nrodcast/account-service/internal/core/domain"
	"github.com/nrodcast/account-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserCreated logs account.user.created events.
func (p *StubPublisher) PublishUserCreated(_ context.Context, event domain.UserCreatedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"name":       event.Name,
		"email":      event.Email,
		"admin":      event.Admin,
		"created_at": event.CreatedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent(eventTypeUserCreated, event.UserID, event.CreatedAt, payload)
	return nil
}

// PublishPasswordChanged logs account.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent(eventTypePasswordChanged, event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs account.user.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"user_id":            event.UserID,
		"requested_at":       event.RequestedAt,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent(eventTypePasswordResetRequested, event.UserID, event.RequestedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
