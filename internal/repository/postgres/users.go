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

var userColumns = []string{
	"id",
	"role_id",
	"username",
	"email",
	"password_hash",
	"storage_quota",
	"storage_current",
	"totp_secret",
	"onboarding",
	"create_date",
	"disable_date",
	"delete_date",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row. A username collision among live rows maps
// to repository.ErrDuplicate (the unique index is scoped to delete_date IS NULL).
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	sql, args, err := r.builder.Insert("docs.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.RoleID,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.StorageQuota,
			user.StorageCurrent,
			user.TotpSecret,
			user.Onboarding,
			user.CreateDate,
			user.DisableDate,
			user.DeleteDate,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier, including soft-deleted rows.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("docs.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return user, nil
}

// GetActiveByUsername retrieves a non-deleted user by username.
func (r *UserRepository) GetActiveByUsername(ctx context.Context, username string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("docs.users").
		Where(squirrel.Eq{"username": username}).
		Where("delete_date IS NULL").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by username sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user by username: %w", err)
	}

	return user, nil
}

// Update modifies the mutable fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Update("docs.users").
		Set("email", user.Email).
		Set("role_id", user.RoleID).
		Set("storage_quota", user.StorageQuota).
		Set("storage_current", user.StorageCurrent).
		Set("totp_secret", user.TotpSecret).
		Set("disable_date", user.DisableDate).
		Where(squirrel.Eq{"id": user.ID}).
		Where("delete_date IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the password hash of a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("docs.users").
		Set("password_hash", passwordHash).
		Set("password_change_date", changedAt).
		Where(squirrel.Eq{"id": id}).
		Where("delete_date IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateOnboarding sets the onboarding flag.
func (r *UserRepository) UpdateOnboarding(ctx context.Context, id string, onboarding bool) error {
	stmt, args, err := r.builder.Update("docs.users").
		Set("onboarding", onboarding).
		Where(squirrel.Eq{"id": id}).
		Where("delete_date IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update onboarding sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update onboarding: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SoftDelete stamps the tombstone on a live user row.
func (r *UserRepository) SoftDelete(ctx context.Context, username string, deletedAt time.Time) error {
	stmt, args, err := r.builder.Update("docs.users").
		Set("delete_date", deletedAt).
		Where(squirrel.Eq{"username": username}).
		Where("delete_date IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List returns live users with optional filtering and ordering.
func (r *UserRepository) List(ctx context.Context, filter port.UserFilter) ([]domain.User, error) {
	order := "username"
	switch filter.SortBy {
	case "create_date", "username", "email", "storage_current":
		order = filter.SortBy
	}
	if filter.Ascending {
		order += " ASC"
	} else {
		order += " DESC"
	}

	query := r.builder.Select(userColumns...).
		From("docs.users").
		Where("delete_date IS NULL").
		OrderBy(order)

	if filter.RoleID != "" {
		query = query.Where(squirrel.Eq{"role_id": filter.RoleID})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.RoleID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.StorageQuota,
		&user.StorageCurrent,
		&user.TotpSecret,
		&user.Onboarding,
		&user.CreateDate,
		&user.DisableDate,
		&user.DeleteDate,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
