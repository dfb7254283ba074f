package port

import (
	"context"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
)

// RecoveryRepository manages one-time password recovery keys.
type RecoveryRepository interface {
	Create(ctx context.Context, recovery domain.PasswordRecovery) error
	// GetActiveByID returns the recovery row only when it was created after
	// the supplied cutoff (the validity window).
	GetActiveByID(ctx context.Context, id string, cutoff time.Time) (*domain.PasswordRecovery, error)
	DeleteByUsername(ctx context.Context, username string) error
}
