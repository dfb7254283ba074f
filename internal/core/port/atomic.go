package port

import "context"

// AtomicRepos is the subset of repositories usable inside a single
// transaction. Writes made through them become visible together or not at
// all.
type AtomicRepos struct {
	Users      UserRepository
	Tokens     TokenRepository
	Recoveries RecoveryRepository
	Documents  DocumentRepository
	Files      FileRepository
	Outbox     OutboxRepository
}

// Atomic scopes a function to one database transaction.
type Atomic interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context, repos AtomicRepos) error) error
}
