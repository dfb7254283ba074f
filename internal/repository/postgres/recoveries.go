package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/repository"
)

// RecoveryRepository implements port.RecoveryRepository using PostgreSQL.
type RecoveryRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRecoveryRepository wires a PostgreSQL-backed recovery repository.
func NewRecoveryRepository(pool *pgxpool.Pool) *RecoveryRepository {
	return &RecoveryRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *RecoveryRepository) WithTx(tx pgx.Tx) *RecoveryRepository {
	if tx == nil {
		return r
	}
	return &RecoveryRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a password recovery row.
func (r *RecoveryRepository) Create(ctx context.Context, recovery domain.PasswordRecovery) error {
	sql, args, err := r.builder.Insert("docs.password_recoveries").
		Columns("id", "username", "create_date").
		Values(recovery.ID, recovery.Username, recovery.CreateDate).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert recovery sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert recovery: %w", err)
	}

	return nil
}

// GetActiveByID returns a recovery key created after the cutoff.
func (r *RecoveryRepository) GetActiveByID(ctx context.Context, id string, cutoff time.Time) (*domain.PasswordRecovery, error) {
	stmt, args, err := r.builder.
		Select("id", "username", "create_date").
		From("docs.password_recoveries").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Gt{"create_date": cutoff}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select recovery sql: %w", err)
	}

	var recovery domain.PasswordRecovery
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&recovery.ID,
		&recovery.Username,
		&recovery.CreateDate,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan recovery: %w", err)
	}

	return &recovery, nil
}

// DeleteByUsername removes every recovery key issued for the username.
func (r *RecoveryRepository) DeleteByUsername(ctx context.Context, username string) error {
	stmt, args, err := r.builder.Delete("docs.password_recoveries").
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete recoveries sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete recoveries: %w", err)
	}

	return nil
}

var _ port.RecoveryRepository = (*RecoveryRepository)(nil)
