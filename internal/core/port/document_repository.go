package port

import (
	"context"

	"github.com/docmesh/docman-service/internal/core/domain"
)

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, document domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	FindByUserID(ctx context.Context, userID string) ([]domain.Document, error)
	SoftDelete(ctx context.Context, id string) error
}

// FileRepository persists file metadata. Content lives behind FileStore.
type FileRepository interface {
	Create(ctx context.Context, file domain.File) error
	GetByID(ctx context.Context, id string) (*domain.File, error)
	FindByUserID(ctx context.Context, userID string) ([]domain.File, error)
	FindByDocumentID(ctx context.Context, documentID string) ([]domain.File, error)
	SoftDelete(ctx context.Context, id string) error
}
