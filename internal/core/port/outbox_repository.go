package port

import (
	"context"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
)

// OutboxRepository stores deferred events alongside the mutations that
// produced them and hands them to the dispatcher afterwards.
type OutboxRepository interface {
	Append(ctx context.Context, events ...domain.OutboxEvent) error
	ListPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
}
