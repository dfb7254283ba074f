package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users       *UserRepository
	Roles       *RoleRepository
	Tokens      *TokenRepository
	Recoveries  *RecoveryRepository
	Documents   *DocumentRepository
	Files       *FileRepository
	Outbox      *OutboxRepository
	RouteModels *RouteModelRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(pool),
		Roles:       NewRoleRepository(pool),
		Tokens:      NewTokenRepository(pool),
		Recoveries:  NewRecoveryRepository(pool),
		Documents:   NewDocumentRepository(pool),
		Files:       NewFileRepository(pool),
		Outbox:      NewOutboxRepository(pool),
		RouteModels: NewRouteModelRepository(pool),
	}
}
