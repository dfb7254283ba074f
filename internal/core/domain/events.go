package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried by outbox rows and Kafka topics.
const (
	EventTypePasswordLost    = "docs.user.password_lost"
	EventTypeDocumentDeleted = "docs.document.deleted"
	EventTypeFileDeleted     = "docs.file.deleted"
)

// PasswordLostEvent asks the mail consumer to deliver a recovery key.
type PasswordLostEvent struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	RecoveryKey string    `json:"recovery_key"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DocumentDeletedEvent notifies consumers that a document row is gone and
// derived artifacts (search index entries) must be retracted.
type DocumentDeletedEvent struct {
	EventID    string `json:"event_id"`
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
}

// FileDeletedEvent notifies consumers that file content must be removed and
// the owner's quota usage reconciled. Size is carried so the consumer does
// not need to re-query the (possibly deleted) owner.
type FileDeletedEvent struct {
	EventID string `json:"event_id"`
	FileID  string `json:"file_id"`
	UserID  string `json:"user_id"`
	Size    int64  `json:"size"`
}

// OutboxEvent is a pending side effect recorded transactionally with the
// mutation that produced it and dispatched asynchronously after commit.
type OutboxEvent struct {
	ID           string
	EventType    string
	Payload      json.RawMessage
	CreateDate   time.Time
	DispatchDate *time.Time
}

// NewOutboxEvent marshals the payload into an outbox row.
func NewOutboxEvent(id, eventType string, payload any, createdAt time.Time) (OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		ID:         id,
		EventType:  eventType,
		Payload:    raw,
		CreateDate: createdAt,
	}, nil
}
