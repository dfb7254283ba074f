package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(lg *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: lg}
}

func (p *StubPublisher) logEvent(eventType, userID string, payload any) {
	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Any("payload", payload),
	)
}

// PublishPasswordLost logs docs.user.password_lost events. The recovery key
// is masked; operators should never see a usable key in logs.
func (p *StubPublisher) PublishPasswordLost(_ context.Context, event domain.PasswordLostEvent) error {
	payload := map[string]any{
		"username":     event.Username,
		"email":        logger.MaskEmail(event.Email),
		"recovery_key": logger.MaskString(event.RecoveryKey),
		"expires_at":   event.ExpiresAt,
	}
	p.logEvent(domain.EventTypePasswordLost, event.UserID, payload)
	return nil
}

// PublishDocumentDeleted logs docs.document.deleted events.
func (p *StubPublisher) PublishDocumentDeleted(_ context.Context, event domain.DocumentDeletedEvent) error {
	payload := map[string]any{
		"document_id": event.DocumentID,
	}
	p.logEvent(domain.EventTypeDocumentDeleted, event.UserID, payload)
	return nil
}

// PublishFileDeleted logs docs.file.deleted events.
func (p *StubPublisher) PublishFileDeleted(_ context.Context, event domain.FileDeletedEvent) error {
	payload := map[string]any{
		"file_id": event.FileID,
		"size":    event.Size,
	}
	p.logEvent(domain.EventTypeFileDeleted, event.UserID, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
