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

var tokenColumns = []string{
	"id",
	"user_id",
	"long_lasted",
	"ip",
	"user_agent",
	"create_date",
	"last_connection_date",
}

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository wires a PostgreSQL-backed token repository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts an authentication token row.
func (r *TokenRepository) Create(ctx context.Context, token domain.AuthenticationToken) error {
	sql, args, err := r.builder.Insert("docs.authentication_tokens").
		Columns(tokenColumns...).
		Values(
			token.ID,
			token.UserID,
			token.LongLasted,
			token.IP,
			token.UserAgent,
			token.CreateDate,
			token.LastConnectionDate,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// Get retrieves a token by its opaque identifier.
func (r *TokenRepository) Get(ctx context.Context, tokenID string) (*domain.AuthenticationToken, error) {
	stmt, args, err := r.builder.
		Select(tokenColumns...).
		From("docs.authentication_tokens").
		Where(squirrel.Eq{"id": tokenID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	token, err := scanToken(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	return token, nil
}

// GetByUserID returns every token owned by the user, newest first.
func (r *TokenRepository) GetByUserID(ctx context.Context, userID string) ([]domain.AuthenticationToken, error) {
	stmt, args, err := r.builder.
		Select(tokenColumns...).
		From("docs.authentication_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("create_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select tokens by user sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]domain.AuthenticationToken, 0)
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, *token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return tokens, nil
}

// UpdateLastConnectionDate stamps token activity.
func (r *TokenRepository) UpdateLastConnectionDate(ctx context.Context, tokenID string, at time.Time) error {
	stmt, args, err := r.builder.Update("docs.authentication_tokens").
		Set("last_connection_date", at).
		Where(squirrel.Eq{"id": tokenID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last connection sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last connection: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a single token.
func (r *TokenRepository) Delete(ctx context.Context, tokenID string) error {
	stmt, args, err := r.builder.Delete("docs.authentication_tokens").
		Where(squirrel.Eq{"id": tokenID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteByUserID removes all tokens of a user except the supplied one.
func (r *TokenRepository) DeleteByUserID(ctx context.Context, userID string, exceptTokenID string) error {
	query := r.builder.Delete("docs.authentication_tokens").
		Where(squirrel.Eq{"user_id": userID})
	if exceptTokenID != "" {
		query = query.Where(squirrel.NotEq{"id": exceptTokenID})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build delete tokens by user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete tokens by user: %w", err)
	}

	return nil
}

// DeleteOldSessionTokens prunes short-lived tokens created before the cutoff.
func (r *TokenRepository) DeleteOldSessionTokens(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("docs.authentication_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"long_lasted": false}).
		Where(squirrel.Lt{"create_date": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("prune tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

func scanToken(row pgx.Row) (*domain.AuthenticationToken, error) {
	var token domain.AuthenticationToken
	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.LongLasted,
		&token.IP,
		&token.UserAgent,
		&token.CreateDate,
		&token.LastConnectionDate,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
