package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
)

const (
	defaultDispatchInterval = time.Second
	defaultDispatchBatch    = 100
)

// OutboxDispatcher drains pending outbox rows to the event publisher.
// Events are published at-least-once: a row is only marked dispatched after
// the publisher accepts it, so a crash in between causes a replay, never a
// loss.
type OutboxDispatcher struct {
	outbox    port.OutboxRepository
	publisher port.EventPublisher
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewOutboxDispatcher constructs an OutboxDispatcher instance.
func NewOutboxDispatcher(outbox port.OutboxRepository, publisher port.EventPublisher, lg *zap.Logger) *OutboxDispatcher {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &OutboxDispatcher{
		outbox:    outbox,
		publisher: publisher,
		logger:    lg,
		interval:  defaultDispatchInterval,
		batchSize: defaultDispatchBatch,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithInterval overrides the polling interval.
func (d *OutboxDispatcher) WithInterval(interval time.Duration) *OutboxDispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithClock overrides the dispatcher clock for deterministic tests.
func (d *OutboxDispatcher) WithClock(now func() time.Time) *OutboxDispatcher {
	if now != nil {
		d.now = now
	}
	return d
}

// Run polls until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("outbox dispatch failed", zap.Error(err))
			}
		}
	}
}

// DispatchPending publishes one batch of pending events and returns how many
// were dispatched. A failing event stops the batch; the remainder is retried
// on the next tick.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) (int, error) {
	pending, err := d.outbox.ListPending(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending events: %w", err)
	}

	dispatched := 0
	for _, event := range pending {
		if err := d.publish(ctx, event); err != nil {
			return dispatched, fmt.Errorf("publish event %s: %w", event.ID, err)
		}
		if err := d.outbox.MarkDispatched(ctx, event.ID, d.now()); err != nil {
			return dispatched, fmt.Errorf("mark event %s dispatched: %w", event.ID, err)
		}
		dispatched++
	}

	if dispatched > 0 {
		d.logger.Debug("outbox events dispatched", zap.Int("count", dispatched))
	}
	return dispatched, nil
}

func (d *OutboxDispatcher) publish(ctx context.Context, event domain.OutboxEvent) error {
	switch event.EventType {
	case domain.EventTypePasswordLost:
		var payload domain.PasswordLostEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("decode password lost payload: %w", err)
		}
		return d.publisher.PublishPasswordLost(ctx, payload)
	case domain.EventTypeDocumentDeleted:
		var payload domain.DocumentDeletedEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("decode document deleted payload: %w", err)
		}
		return d.publisher.PublishDocumentDeleted(ctx, payload)
	case domain.EventTypeFileDeleted:
		var payload domain.FileDeletedEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("decode file deleted payload: %w", err)
		}
		return d.publisher.PublishFileDeleted(ctx, payload)
	default:
		// Unknown rows are marked dispatched by the caller so they cannot
		// wedge the queue.
		d.logger.Warn("unknown outbox event type", zap.String("event_type", event.EventType))
		return nil
	}
}
