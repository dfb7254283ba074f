package port

import (
	"context"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
)

// TokenRepository manages authentication token records.
type TokenRepository interface {
	Create(ctx context.Context, token domain.AuthenticationToken) error
	Get(ctx context.Context, tokenID string) (*domain.AuthenticationToken, error)
	GetByUserID(ctx context.Context, userID string) ([]domain.AuthenticationToken, error)
	UpdateLastConnectionDate(ctx context.Context, tokenID string, at time.Time) error
	Delete(ctx context.Context, tokenID string) error
	// DeleteByUserID removes every token owned by the user except the
	// supplied one. An empty exceptTokenID removes all of them.
	DeleteByUserID(ctx context.Context, userID string, exceptTokenID string) error
	// DeleteOldSessionTokens prunes short-lived tokens created before the
	// cutoff. Long-lasted tokens are never pruned.
	DeleteOldSessionTokens(ctx context.Context, userID string, cutoff time.Time) (int, error)
}
