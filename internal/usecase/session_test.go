package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
)

func TestSessionServiceList(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seen := base.Add(30 * time.Minute)
	tokens := newTokenRepoFake(
		domain.AuthenticationToken{ID: "old", UserID: "user-1", CreateDate: base.Add(-time.Hour)},
		domain.AuthenticationToken{ID: "current", UserID: "user-1", CreateDate: base, LastConnectionDate: &seen},
		domain.AuthenticationToken{ID: "other-user", UserID: "user-2", CreateDate: base},
	)
	svc := NewSessionService(tokens)

	sessions, err := svc.List(context.Background(), "user-1", "current")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Token.ID != "current" {
		t.Fatalf("expected newest session first, got %s", sessions[0].Token.ID)
	}
	if !sessions[0].Current {
		t.Fatalf("expected the current session to be flagged")
	}
	if sessions[1].Current {
		t.Fatalf("expected the older session to not be flagged")
	}
	if !sessions[0].LastActivity().Equal(seen) {
		t.Fatalf("expected last activity from the connection date")
	}
	if !sessions[1].LastActivity().Equal(base.Add(-time.Hour)) {
		t.Fatalf("expected last activity to fall back to the create date")
	}
}

func TestSessionServiceDeleteOthers(t *testing.T) {
	tokens := newTokenRepoFake(
		domain.AuthenticationToken{ID: "current", UserID: "user-1"},
		domain.AuthenticationToken{ID: "phone", UserID: "user-1"},
		domain.AuthenticationToken{ID: "laptop", UserID: "user-1"},
		domain.AuthenticationToken{ID: "other", UserID: "user-2"},
	)
	svc := NewSessionService(tokens)

	if err := svc.DeleteOthers(context.Background(), "user-1", "current"); err != nil {
		t.Fatalf("DeleteOthers returned error: %v", err)
	}

	if _, ok := tokens.tokens["current"]; !ok {
		t.Fatalf("expected the current session to survive")
	}
	if _, ok := tokens.tokens["phone"]; ok {
		t.Fatalf("expected other sessions to be revoked")
	}
	if _, ok := tokens.tokens["other"]; !ok {
		t.Fatalf("expected other users' sessions to be untouched")
	}
}
