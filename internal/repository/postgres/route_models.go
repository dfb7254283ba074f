package postgres

import (
	"context"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docmesh/docman-service/internal/core/port"
)

// RouteModelRepository answers workflow participant checks against the
// route model tables maintained by the workflow engine.
type RouteModelRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewRouteModelRepository wires a PostgreSQL-backed route model repository.
func NewRouteModelRepository(pool *pgxpool.Pool) *RouteModelRepository {
	return &RouteModelRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// escapeLikePattern neutralizes LIKE wildcards in a literal fragment so a
// username such as "a_c" cannot match "abc".
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// FindNameByTargetUsername returns the name of an active route model that
// references the username as a participant, or "" when none does.
func (r *RouteModelRepository) FindNameByTargetUsername(ctx context.Context, username string) (string, error) {
	stmt, args, err := r.builder.
		Select("name").
		From("docs.route_models").
		Where("delete_date IS NULL").
		Where(squirrel.Expr("steps::text LIKE ?", "%\"USER\",\"name\":\""+escapeLikePattern(username)+"\"%")).
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build select route model sql: %w", err)
	}

	var name string
	if err := r.pool.QueryRow(ctx, stmt, args...).Scan(&name); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("scan route model: %w", err)
	}

	return name, nil
}

var _ port.RouteModelRepository = (*RouteModelRepository)(nil)
