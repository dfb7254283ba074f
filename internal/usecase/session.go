package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
)

// Session is an authentication token decorated with whether it backs the
// current request.
type Session struct {
	Token   domain.AuthenticationToken
	Current bool
}

// SessionService exposes a user's active sessions.
type SessionService struct {
	tokens port.TokenRepository
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(tokens port.TokenRepository) *SessionService {
	return &SessionService{tokens: tokens}
}

// List returns the user's sessions, most recently created first.
func (s *SessionService) List(ctx context.Context, userID, currentTokenID string) ([]Session, error) {
	tokens, err := s.tokens.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	sessions := make([]Session, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, Session{
			Token:   token,
			Current: token.ID == currentTokenID,
		})
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Token.CreateDate.After(sessions[j].Token.CreateDate)
	})
	return sessions, nil
}

// DeleteOthers revokes every session except the one backing the current
// request: a "log out everywhere else".
func (s *SessionService) DeleteOthers(ctx context.Context, userID, currentTokenID string) error {
	if err := s.tokens.DeleteByUserID(ctx, userID, currentTokenID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

// LastActivity returns the most useful activity timestamp for a session.
func (s Session) LastActivity() time.Time {
	if s.Token.LastConnectionDate != nil {
		return *s.Token.LastConnectionDate
	}
	return s.Token.CreateDate
}
