package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/repository"
)

// CreateDocumentInput carries the metadata for a new document.
type CreateDocumentInput struct {
	Title       string
	Description string
	Language    string
}

// UploadFileInput carries an upload targeting a document.
type UploadFileInput struct {
	DocumentID string
	Name       string
	MimeType   string
	Size       int64
	Content    io.Reader
}

// DocumentService manages document and file metadata plus the backing
// content store.
type DocumentService struct {
	documents port.DocumentRepository
	files     port.FileRepository
	store     port.FileStore
	atomic    port.Atomic
	logger    *zap.Logger
	now       func() time.Time
}

// NewDocumentService constructs a DocumentService instance.
func NewDocumentService(
	documents port.DocumentRepository,
	files port.FileRepository,
	store port.FileStore,
	atomic port.Atomic,
	lg *zap.Logger,
) *DocumentService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &DocumentService{
		documents: documents,
		files:     files,
		store:     store,
		atomic:    atomic,
		logger:    lg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create stores a new document owned by the user.
func (s *DocumentService) Create(ctx context.Context, user *domain.User, input CreateDocumentInput) (*domain.Document, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}
	if input.Title == "" {
		return nil, NewValidationError("title", "must not be empty")
	}
	language := input.Language
	if language == "" {
		language = "eng"
	}

	now := s.now()
	document := domain.Document{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Title:       input.Title,
		Description: input.Description,
		Language:    language,
		CreateDate:  now,
		UpdateDate:  now,
	}
	if err := s.documents.Create(ctx, document); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return &document, nil
}

// Get returns a document the user owns.
func (s *DocumentService) Get(ctx context.Context, user *domain.User, id string) (*domain.Document, error) {
	document, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	if user == nil || document.UserID != user.ID {
		return nil, ErrDocumentNotFound
	}
	return document, nil
}

// List returns the user's live documents.
func (s *DocumentService) List(ctx context.Context, user *domain.User) ([]domain.Document, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}
	documents, err := s.documents.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return documents, nil
}

// Delete tombstones the document and its files and queues the deletion
// events. File content is reclaimed asynchronously by the cleanup consumer.
func (s *DocumentService) Delete(ctx context.Context, user *domain.User, id string) error {
	document, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}

	now := s.now()
	return s.atomic.RunAtomic(ctx, func(ctx context.Context, repos port.AtomicRepos) error {
		files, err := repos.Files.FindByDocumentID(ctx, document.ID)
		if err != nil {
			return fmt.Errorf("list document files: %w", err)
		}

		var reclaimed int64
		events := make([]domain.OutboxEvent, 0, len(files)+1)
		for _, file := range files {
			if err := repos.Files.SoftDelete(ctx, file.ID); err != nil {
				return fmt.Errorf("delete file %s: %w", file.ID, err)
			}
			reclaimed += file.Size
			payload := domain.FileDeletedEvent{
				EventID: uuid.NewString(),
				FileID:  file.ID,
				UserID:  file.UserID,
				Size:    file.Size,
			}
			event, err := domain.NewOutboxEvent(payload.EventID, domain.EventTypeFileDeleted, payload, now)
			if err != nil {
				return err
			}
			events = append(events, event)
		}

		if err := repos.Documents.SoftDelete(ctx, document.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		payload := domain.DocumentDeletedEvent{
			EventID:    uuid.NewString(),
			DocumentID: document.ID,
			UserID:     document.UserID,
		}
		event, err := domain.NewOutboxEvent(payload.EventID, domain.EventTypeDocumentDeleted, payload, now)
		if err != nil {
			return err
		}
		events = append(events, event)

		if reclaimed > 0 {
			owner := *user
			owner.StorageCurrent -= reclaimed
			if owner.StorageCurrent < 0 {
				owner.StorageCurrent = 0
			}
			if err := repos.Users.Update(ctx, owner); err != nil {
				return fmt.Errorf("update storage usage: %w", err)
			}
			user.StorageCurrent = owner.StorageCurrent
		}

		return repos.Outbox.Append(ctx, events...)
	})
}

// UploadFile stores file content and its metadata. The upload is rejected
// when it would exceed the owner's storage quota.
func (s *DocumentService) UploadFile(ctx context.Context, user *domain.User, input UploadFileInput) (*domain.File, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}
	if input.Name == "" {
		return nil, NewValidationError("name", "must not be empty")
	}
	if input.Size <= 0 {
		return nil, NewValidationError("size", "must be positive")
	}
	if user.StorageQuota > 0 && user.StorageCurrent+input.Size > user.StorageQuota {
		return nil, ErrQuotaExceeded
	}

	var documentID *string
	if input.DocumentID != "" {
		document, err := s.Get(ctx, user, input.DocumentID)
		if err != nil {
			return nil, err
		}
		documentID = &document.ID
	}

	file := domain.File{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		UserID:     user.ID,
		Name:       input.Name,
		MimeType:   input.MimeType,
		Size:       input.Size,
		CreateDate: s.now(),
	}

	if err := s.store.Put(ctx, file.ID, input.Content, input.Size); err != nil {
		return nil, fmt.Errorf("store file content: %w", err)
	}

	// The metadata row and the owner's usage counter commit together so a
	// failure cannot leave the quota drifting from the stored files.
	updated := *user
	updated.StorageCurrent += input.Size
	err := s.atomic.RunAtomic(ctx, func(ctx context.Context, repos port.AtomicRepos) error {
		if err := repos.Files.Create(ctx, file); err != nil {
			return fmt.Errorf("create file: %w", err)
		}
		if err := repos.Users.Update(ctx, updated); err != nil {
			return fmt.Errorf("update storage usage: %w", err)
		}
		return nil
	})
	if err != nil {
		// Metadata failed; reclaim the orphaned content.
		if cleanupErr := s.store.Delete(ctx, file.ID); cleanupErr != nil {
			s.logger.Warn("orphaned file content", zap.String("file_id", file.ID), zap.Error(cleanupErr))
		}
		return nil, err
	}
	user.StorageCurrent = updated.StorageCurrent

	return &file, nil
}

// ReadFile streams the content of a file the user owns.
func (s *DocumentService) ReadFile(ctx context.Context, user *domain.User, fileID string) (*domain.File, io.ReadCloser, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("load file: %w", err)
	}
	if user == nil || file.UserID != user.ID {
		return nil, nil, ErrFileNotFound
	}

	content, err := s.store.Get(ctx, file.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("open file content: %w", err)
	}
	return file, content, nil
}
