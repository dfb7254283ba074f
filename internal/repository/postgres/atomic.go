package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/docmesh/docman-service/internal/core/port"
)

// RunAtomic executes fn with transaction-bound repositories. Implements
// port.Atomic.
func (s *Store) RunAtomic(ctx context.Context, fn func(ctx context.Context, repos port.AtomicRepos) error) error {
	return s.RunInTx(ctx, func(tx pgx.Tx) error {
		repos := port.AtomicRepos{
			Users:      NewUserRepository(s.pool).WithTx(tx),
			Tokens:     NewTokenRepository(s.pool).WithTx(tx),
			Recoveries: NewRecoveryRepository(s.pool).WithTx(tx),
			Documents:  NewDocumentRepository(s.pool).WithTx(tx),
			Files:      NewFileRepository(s.pool).WithTx(tx),
			Outbox:     NewOutboxRepository(s.pool).WithTx(tx),
		}
		return fn(ctx, repos)
	})
}

var _ port.Atomic = (*Store)(nil)
