package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
)

// FileCleanupConsumer reclaims stored file content in response to
// docs.file.deleted events. Deletion of an already absent object is treated
// as success, so replayed events are harmless.
type FileCleanupConsumer struct {
	store  port.FileStore
	logger *zap.Logger
}

// NewFileCleanupConsumer constructs a consumer that removes file content.
func NewFileCleanupConsumer(store port.FileStore, logger *zap.Logger) *FileCleanupConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCleanupConsumer{store: store, logger: logger}
}

type fileDeletedPayload struct {
	FileID string `json:"file_id"`
	UserID string `json:"user_id"`
	Size   int64  `json:"size"`
}

type fileDeletedEnvelope struct {
	EventID   string             `json:"event_id"`
	EventType string             `json:"event_type"`
	Payload   fileDeletedPayload `json:"payload"`
}

// HandleMessage decodes a Kafka message prior to processing.
func (c *FileCleanupConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var envelope fileDeletedEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return fmt.Errorf("decode file deleted event: %w", err)
	}

	if envelope.EventType != domain.EventTypeFileDeleted {
		c.logger.Debug("skip non file-deleted event", zap.String("event_type", envelope.EventType))
		return nil
	}

	event := domain.FileDeletedEvent{
		EventID: envelope.EventID,
		FileID:  envelope.Payload.FileID,
		UserID:  envelope.Payload.UserID,
		Size:    envelope.Payload.Size,
	}
	return c.HandleEvent(ctx, event)
}

// HandleEvent removes the file content from the backing store.
func (c *FileCleanupConsumer) HandleEvent(ctx context.Context, event domain.FileDeletedEvent) error {
	if event.FileID == "" {
		return fmt.Errorf("file deleted event missing file id")
	}

	if err := c.store.Delete(ctx, event.FileID); err != nil {
		return fmt.Errorf("delete file content %s: %w", event.FileID, err)
	}

	c.logger.Info("file content reclaimed",
		zap.String("file_id", event.FileID),
		zap.Int64("size", event.Size),
	)
	return nil
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *FileCleanupConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *FileCleanupConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages from a claimed partition. Messages are
// marked even when handling fails; the event is logged and skipped rather
// than blocking the partition.
func (c *FileCleanupConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.HandleMessage(session.Context(), msg); err != nil {
				c.logger.Error("handle file deleted message",
					zap.Error(err),
					zap.String("topic", msg.Topic),
					zap.Int64("offset", msg.Offset),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// RunFileCleanupConsumer joins the consumer group and processes file deleted
// events until the context is cancelled.
func RunFileCleanupConsumer(ctx context.Context, brokers []string, groupID, topic string, handler *FileCleanupConsumer, logger *zap.Logger) error {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer group.Close()

	for {
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.Error("consumer group session ended", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

var _ sarama.ConsumerGroupHandler = (*FileCleanupConsumer)(nil)
