package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/infra/config"
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
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, payload any) error {
	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
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
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishPasswordLost publishes docs.user.password_lost events. Downstream
// consumers deliver the recovery email.
func (p *EventPublisher) PublishPasswordLost(ctx context.Context, event domain.PasswordLostEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		Username    string    `json:"username"`
		Email       string    `json:"email"`
		RecoveryKey string    `json:"recovery_key"`
		ExpiresAt   time.Time `json:"expires_at"`
	}{
		UserID:      event.UserID,
		Username:    event.Username,
		Email:       event.Email,
		RecoveryKey: event.RecoveryKey,
		ExpiresAt:   event.ExpiresAt.UTC(),
	}

	return p.publish(ctx, event.EventID, domain.EventTypePasswordLost, event.UserID, payload)
}

// PublishDocumentDeleted publishes docs.document.deleted events.
func (p *EventPublisher) PublishDocumentDeleted(ctx context.Context, event domain.DocumentDeletedEvent) error {
	payload := struct {
		DocumentID string `json:"document_id"`
		UserID     string `json:"user_id"`
	}{
		DocumentID: event.DocumentID,
		UserID:     event.UserID,
	}

	return p.publish(ctx, event.EventID, domain.EventTypeDocumentDeleted, event.UserID, payload)
}

// PublishFileDeleted publishes docs.file.deleted events. The cleanup consumer
// uses these to reclaim stored file content.
func (p *EventPublisher) PublishFileDeleted(ctx context.Context, event domain.FileDeletedEvent) error {
	payload := struct {
		FileID string `json:"file_id"`
		UserID string `json:"user_id"`
		Size   int64  `json:"size"`
	}{
		FileID: event.FileID,
		UserID: event.UserID,
		Size:   event.Size,
	}

	return p.publish(ctx, event.EventID, domain.EventTypeFileDeleted, event.UserID, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
