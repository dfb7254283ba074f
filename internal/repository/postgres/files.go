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

var fileColumns = []string{
	"id",
	"document_id",
	"user_id",
	"name",
	"mime_type",
	"size",
	"create_date",
	"delete_date",
}

// FileRepository implements port.FileRepository using PostgreSQL.
type FileRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewFileRepository wires a PostgreSQL-backed file repository.
func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *FileRepository) WithTx(tx pgx.Tx) *FileRepository {
	if tx == nil {
		return r
	}
	return &FileRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a file metadata row.
func (r *FileRepository) Create(ctx context.Context, file domain.File) error {
	sql, args, err := r.builder.Insert("docs.files").
		Columns(fileColumns...).
		Values(
			file.ID,
			file.DocumentID,
			file.UserID,
			file.Name,
			file.MimeType,
			file.Size,
			file.CreateDate,
			file.DeleteDate,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert file sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	return nil
}

// GetByID retrieves a live file by identifier.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.File, error) {
	stmt, args, err := r.builder.
		Select(fileColumns...).
		From("docs.files").
		Where(squirrel.Eq{"id": id}).
		Where("delete_date IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select file sql: %w", err)
	}

	file, err := scanFile(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return file, nil
}

// FindByUserID snapshots the live files owned by a user.
func (r *FileRepository) FindByUserID(ctx context.Context, userID string) ([]domain.File, error) {
	stmt, args, err := r.builder.
		Select(fileColumns...).
		From("docs.files").
		Where(squirrel.Eq{"user_id": userID}).
		Where("delete_date IS NULL").
		OrderBy("create_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find files sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	files := make([]domain.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}

// FindByDocumentID snapshots the live files attached to a document.
func (r *FileRepository) FindByDocumentID(ctx context.Context, documentID string) ([]domain.File, error) {
	stmt, args, err := r.builder.
		Select(fileColumns...).
		From("docs.files").
		Where(squirrel.Eq{"document_id": documentID}).
		Where("delete_date IS NULL").
		OrderBy("create_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find document files sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query document files: %w", err)
	}
	defer rows.Close()

	files := make([]domain.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document files: %w", err)
	}

	return files, nil
}

// SoftDelete stamps the tombstone on a live file.
func (r *FileRepository) SoftDelete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("docs.files").
		Set("delete_date", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Where("delete_date IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete file sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete file: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanFile(row pgx.Row) (*domain.File, error) {
	var file domain.File
	if err := row.Scan(
		&file.ID,
		&file.DocumentID,
		&file.UserID,
		&file.Name,
		&file.MimeType,
		&file.Size,
		&file.CreateDate,
		&file.DeleteDate,
	); err != nil {
		return nil, err
	}
	return &file, nil
}

var _ port.FileRepository = (*FileRepository)(nil)
