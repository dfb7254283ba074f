package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
)

func mustOutboxEvent(t *testing.T, id, eventType string, payload any) domain.OutboxEvent {
	t.Helper()
	event, err := domain.NewOutboxEvent(id, eventType, payload, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build outbox event: %v", err)
	}
	return event
}

func TestOutboxDispatcherDispatchPending(t *testing.T) {
	outbox := &outboxRepoFake{events: []domain.OutboxEvent{
		mustOutboxEvent(t, "e1", domain.EventTypeFileDeleted, domain.FileDeletedEvent{EventID: "e1", FileID: "file-1", UserID: "user-1", Size: 100}),
		mustOutboxEvent(t, "e2", domain.EventTypeDocumentDeleted, domain.DocumentDeletedEvent{EventID: "e2", DocumentID: "doc-1", UserID: "user-1"}),
		mustOutboxEvent(t, "e3", domain.EventTypePasswordLost, domain.PasswordLostEvent{EventID: "e3", UserID: "user-2", Username: "bob", Email: "bob@example.com", RecoveryKey: "key"}),
	}}
	publisher := &publisherFake{}
	dispatcher := NewOutboxDispatcher(outbox, publisher, nil)

	dispatched, err := dispatcher.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("DispatchPending returned error: %v", err)
	}
	if dispatched != 3 {
		t.Fatalf("expected 3 dispatched events, got %d", dispatched)
	}
	if len(publisher.fileDeleted) != 1 || publisher.fileDeleted[0].FileID != "file-1" {
		t.Fatalf("expected the file deleted event to reach the publisher")
	}
	if len(publisher.documentDeleted) != 1 || publisher.documentDeleted[0].DocumentID != "doc-1" {
		t.Fatalf("expected the document deleted event to reach the publisher")
	}
	if len(publisher.passwordLost) != 1 || publisher.passwordLost[0].RecoveryKey != "key" {
		t.Fatalf("expected the password lost event to reach the publisher")
	}
	if got := len(outbox.pendingTypes()); got != 0 {
		t.Fatalf("expected no pending events left, got %d", got)
	}

	// A second pass finds nothing to do.
	dispatched, err = dispatcher.DispatchPending(context.Background())
	if err != nil || dispatched != 0 {
		t.Fatalf("expected an empty second pass, got n=%d err=%v", dispatched, err)
	}
}

func TestOutboxDispatcherRetriesAfterPublishFailure(t *testing.T) {
	outbox := &outboxRepoFake{events: []domain.OutboxEvent{
		mustOutboxEvent(t, "e1", domain.EventTypeFileDeleted, domain.FileDeletedEvent{EventID: "e1", FileID: "file-1", UserID: "user-1"}),
	}}
	publisher := &publisherFake{failWith: errBoom}
	dispatcher := NewOutboxDispatcher(outbox, publisher, nil)

	if _, err := dispatcher.DispatchPending(context.Background()); err == nil {
		t.Fatalf("expected the publish failure to surface")
	}
	if got := len(outbox.pendingTypes()); got != 1 {
		t.Fatalf("expected the event to stay pending, got %d pending", got)
	}

	// Once the publisher recovers the event goes out and is marked.
	publisher.failWith = nil
	dispatched, err := dispatcher.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("DispatchPending returned error: %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("expected 1 dispatched event, got %d", dispatched)
	}
	if got := len(outbox.pendingTypes()); got != 0 {
		t.Fatalf("expected no pending events left, got %d", got)
	}
}
