package port

import (
	"context"

	"github.com/docmesh/docman-service/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishPasswordLost(ctx context.Context, event domain.PasswordLostEvent) error
	PublishDocumentDeleted(ctx context.Context, event domain.DocumentDeletedEvent) error
	PublishFileDeleted(ctx context.Context, event domain.FileDeletedEvent) error
}
