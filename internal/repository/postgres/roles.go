package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
)

// RoleRepository implements port.RoleRepository using PostgreSQL.
type RoleRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewRoleRepository wires a PostgreSQL-backed role repository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetBaseFunctions resolves the capability set granted by a role.
func (r *RoleRepository) GetBaseFunctions(ctx context.Context, roleID string) (domain.CapabilitySet, error) {
	stmt, args, err := r.builder.
		Select("base_function").
		From("docs.role_base_functions").
		Where(squirrel.Eq{"role_id": roleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select base functions sql: %w", err)
	}

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query base functions: %w", err)
	}
	defer rows.Close()

	set := make(domain.CapabilitySet)
	for rows.Next() {
		var fn string
		if err := rows.Scan(&fn); err != nil {
			return nil, fmt.Errorf("scan base function: %w", err)
		}
		set[domain.BaseFunction(fn)] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate base functions: %w", err)
	}

	return set, nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)
