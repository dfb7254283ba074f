package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/repository"
)

var documentColumns = []string{
	"id",
	"user_id",
	"title",
	"description",
	"language",
	"create_date",
	"update_date",
	"delete_date",
}

// DocumentRepository implements port.DocumentRepository using PostgreSQL.
type DocumentRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDocumentRepository wires a PostgreSQL-backed document repository.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *DocumentRepository) WithTx(tx pgx.Tx) *DocumentRepository {
	if tx == nil {
		return r
	}
	return &DocumentRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a document row.
func (r *DocumentRepository) Create(ctx context.Context, document domain.Document) error {
	sql, args, err := r.builder.Insert("docs.documents").
		Columns(documentColumns...).
		Values(
			document.ID,
			document.UserID,
			document.Title,
			document.Description,
			document.Language,
			document.CreateDate,
			document.UpdateDate,
			document.DeleteDate,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert document sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	return nil
}

// GetByID retrieves a live document by identifier.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	stmt, args, err := r.builder.
		Select(documentColumns...).
		From("docs.documents").
		Where(squirrel.Eq{"id": id}).
		Where("delete_date IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select document sql: %w", err)
	}

	var document domain.Document
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&document.ID,
		&document.UserID,
		&document.Title,
		&document.Description,
		&document.Language,
		&document.CreateDate,
		&document.UpdateDate,
		&document.DeleteDate,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	return &document, nil
}

// FindByUserID snapshots the live documents owned by a user.
func (r *DocumentRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Document, error) {
	stmt, args, err := r.builder.
		Select(documentColumns...).
		From("docs.documents").
		Where(squirrel.Eq{"user_id": userID}).
		Where("delete_date IS NULL").
		OrderBy("create_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find documents sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	documents := make([]domain.Document, 0)
	for rows.Next() {
		var document domain.Document
		if err := rows.Scan(
			&document.ID,
			&document.UserID,
			&document.Title,
			&document.Description,
			&document.Language,
			&document.CreateDate,
			&document.UpdateDate,
			&document.DeleteDate,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, document)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}

// SoftDelete stamps the tombstone on a live document.
func (r *DocumentRepository) SoftDelete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("docs.documents").
		Set("delete_date", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Where("delete_date IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete document sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.DocumentRepository = (*DocumentRepository)(nil)
