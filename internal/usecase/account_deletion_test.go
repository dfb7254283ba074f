package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
)

type deletionFixture struct {
	svc        *AccountDeletionService
	users      *userRepoFake
	tokens     *tokenRepoFake
	recoveries *recoveryRepoFake
	documents  *documentRepoFake
	files      *fileRepoFake
	outbox     *outboxRepoFake
	routes     *routeModelRepoFake
}

func newDeletionFixture(t *testing.T, users *userRepoFake) *deletionFixture {
	t.Helper()
	f := &deletionFixture{
		users:      users,
		tokens:     newTokenRepoFake(),
		recoveries: newRecoveryRepoFake(),
		documents:  newDocumentRepoFake(),
		files:      newFileRepoFake(),
		outbox:     &outboxRepoFake{},
		routes:     &routeModelRepoFake{},
	}
	atomic := &atomicFake{repos: port.AtomicRepos{
		Users:      f.users,
		Tokens:     f.tokens,
		Recoveries: f.recoveries,
		Documents:  f.documents,
		Files:      f.files,
		Outbox:     f.outbox,
	}}
	f.svc = NewAccountDeletionService(f.users, newRoleRepoFake(), f.routes, atomic, nil)
	return f
}

func TestAccountDeletionCascade(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	users := newUserRepoFake(domain.User{ID: "user-1", RoleID: "user", Username: "alice"})
	f := newDeletionFixture(t, users)
	f.svc.WithClock(func() time.Time { return fixed })

	docID := "doc-1"
	f.documents.documents[docID] = domain.Document{ID: docID, UserID: "user-1", Title: "notes"}
	f.files.files["file-1"] = domain.File{ID: "file-1", DocumentID: &docID, UserID: "user-1", Size: 512}
	f.files.files["file-2"] = domain.File{ID: "file-2", UserID: "user-1", Size: 256}
	f.tokens.tokens["t1"] = domain.AuthenticationToken{ID: "t1", UserID: "user-1"}
	f.tokens.tokens["t2"] = domain.AuthenticationToken{ID: "t2", UserID: "user-1", LongLasted: true}
	f.recoveries.recoveries["k1"] = domain.PasswordRecovery{ID: "k1", Username: "alice", CreateDate: fixed}

	if err := f.svc.Delete(context.Background(), "alice"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if f.users.users["user-1"].DeleteDate == nil {
		t.Fatalf("expected user tombstone")
	}
	if !f.users.users["user-1"].DeleteDate.Equal(fixed) {
		t.Fatalf("expected tombstone at %v, got %v", fixed, f.users.users["user-1"].DeleteDate)
	}
	if f.documents.documents[docID].DeleteDate == nil {
		t.Fatalf("expected document tombstone")
	}
	if f.files.files["file-1"].DeleteDate == nil || f.files.files["file-2"].DeleteDate == nil {
		t.Fatalf("expected file tombstones")
	}
	if len(f.tokens.tokens) != 0 {
		t.Fatalf("expected all sessions to be revoked, %d left", len(f.tokens.tokens))
	}
	if len(f.recoveries.recoveries) != 0 {
		t.Fatalf("expected recovery keys to be removed")
	}

	types := f.outbox.pendingTypes()
	expected := []string{
		domain.EventTypeDocumentDeleted,
		domain.EventTypeFileDeleted,
		domain.EventTypeFileDeleted,
	}
	if len(types) != len(expected) {
		t.Fatalf("expected %d outbox events, got %d", len(expected), len(types))
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Fatalf("expected event %s at %d, got %s", expected[i], i, types[i])
		}
	}

	// File events carry the pre-deletion size for quota reconciliation.
	sizes := map[string]int64{}
	for _, event := range f.outbox.events {
		if event.EventType != domain.EventTypeFileDeleted {
			continue
		}
		var payload domain.FileDeletedEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		sizes[payload.FileID] = payload.Size
	}
	if sizes["file-1"] != 512 || sizes["file-2"] != 256 {
		t.Fatalf("expected snapshot sizes, got %v", sizes)
	}

	// The username is free for reuse after the tombstone.
	if err := f.users.Create(context.Background(), domain.User{ID: "user-9", Username: "alice"}); err != nil {
		t.Fatalf("expected username reuse after deletion, got %v", err)
	}
}

func TestAccountDeletionPreconditions(t *testing.T) {
	users := newUserRepoFake(
		domain.User{ID: "guest", RoleID: "user", Username: domain.GuestUsername},
		domain.User{ID: domain.AdminUserID, RoleID: "admin", Username: "admin"},
		domain.User{ID: "user-1", RoleID: "user", Username: "alice"},
	)
	f := newDeletionFixture(t, users)
	f.routes.byUsername = map[string]string{"alice": "invoice-approval"}

	if err := f.svc.Delete(context.Background(), domain.GuestUsername); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for the guest identity, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), "admin"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for an admin account, got %v", err)
	}
	err := f.svc.Delete(context.Background(), "alice")
	if !errors.Is(err, ErrUserUsedInRouteModel) {
		t.Fatalf("expected ErrUserUsedInRouteModel, got %v", err)
	}
	var conflict *RouteModelConflictError
	if !errors.As(err, &conflict) || conflict.RouteModel != "invoice-approval" {
		t.Fatalf("expected the conflict to name the route model, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if f.users.users["user-1"].DeleteDate != nil {
		t.Fatalf("expected no tombstone after failed preconditions")
	}
	if len(f.outbox.events) != 0 {
		t.Fatalf("expected no outbox events after failed preconditions")
	}
}

func TestAccountDeletionFailedTransactionLeavesNoTrace(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", RoleID: "user", Username: "alice"})
	f := newDeletionFixture(t, users)

	atomic := &atomicFake{failWith: errBoom}
	f.svc = NewAccountDeletionService(f.users, newRoleRepoFake(), f.routes, atomic, nil)

	if err := f.svc.Delete(context.Background(), "alice"); !errors.Is(err, errBoom) {
		t.Fatalf("expected the transaction error, got %v", err)
	}
	if f.users.users["user-1"].DeleteDate != nil {
		t.Fatalf("expected the account to survive a failed transaction")
	}
}
