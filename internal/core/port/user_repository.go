package port

import (
	"context"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
)

// UserFilter narrows List results.
type UserFilter struct {
	RoleID    string
	SortBy    string
	Ascending bool
}

// UserRepository exposes persistence behavior for user accounts.
// "Active" lookups ignore soft-deleted rows (delete_date set).
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetActiveByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user domain.User) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	UpdateOnboarding(ctx context.Context, id string, onboarding bool) error
	SoftDelete(ctx context.Context, username string, deletedAt time.Time) error
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}
