package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/repository"
)

// AccountDeletionService removes an account and everything it owns in one
// transaction: documents and files are tombstoned, sessions and recovery
// keys are dropped, and deletion events are queued for the cleanup and
// indexing consumers.
type AccountDeletionService struct {
	users       port.UserRepository
	roles       port.RoleRepository
	routeModels port.RouteModelRepository
	atomic      port.Atomic
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccountDeletionService constructs an AccountDeletionService instance.
func NewAccountDeletionService(
	users port.UserRepository,
	roles port.RoleRepository,
	routeModels port.RouteModelRepository,
	atomic port.Atomic,
	lg *zap.Logger,
) *AccountDeletionService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &AccountDeletionService{
		users:       users,
		roles:       roles,
		routeModels: routeModels,
		atomic:      atomic,
		logger:      lg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *AccountDeletionService) WithClock(now func() time.Time) *AccountDeletionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Delete removes the named account after checking the preconditions: the
// guest identity and accounts holding the admin capability are permanent,
// and workflow participants must be detached from their route models first.
func (s *AccountDeletionService) Delete(ctx context.Context, username string) error {
	user, err := s.users.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user %s: %w", username, err)
	}

	if user.IsGuest() {
		return ErrForbidden
	}

	capabilities, err := s.roles.GetBaseFunctions(ctx, user.RoleID)
	if err != nil {
		return fmt.Errorf("load role capabilities: %w", err)
	}
	if capabilities.Has(domain.BaseFunctionAdmin) {
		return ErrForbidden
	}

	routeModel, err := s.routeModels.FindNameByTargetUsername(ctx, user.Username)
	if err != nil {
		return fmt.Errorf("check route models: %w", err)
	}
	if routeModel != "" {
		return &RouteModelConflictError{RouteModel: routeModel}
	}

	now := s.now()
	var documentCount, fileCount int

	err = s.atomic.RunAtomic(ctx, func(ctx context.Context, repos port.AtomicRepos) error {
		// Snapshot before tombstoning so the outbox payloads carry the
		// pre-deletion state.
		documents, err := repos.Documents.FindByUserID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		files, err := repos.Files.FindByUserID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		documentCount, fileCount = len(documents), len(files)

		events := make([]domain.OutboxEvent, 0, len(documents)+len(files))
		for _, file := range files {
			if err := repos.Files.SoftDelete(ctx, file.ID); err != nil {
				return fmt.Errorf("delete file %s: %w", file.ID, err)
			}
			payload := domain.FileDeletedEvent{
				EventID: uuid.NewString(),
				FileID:  file.ID,
				UserID:  user.ID,
				Size:    file.Size,
			}
			event, err := domain.NewOutboxEvent(payload.EventID, domain.EventTypeFileDeleted, payload, now)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		for _, document := range documents {
			if err := repos.Documents.SoftDelete(ctx, document.ID); err != nil {
				return fmt.Errorf("delete document %s: %w", document.ID, err)
			}
			payload := domain.DocumentDeletedEvent{
				EventID:    uuid.NewString(),
				DocumentID: document.ID,
				UserID:     user.ID,
			}
			event, err := domain.NewOutboxEvent(payload.EventID, domain.EventTypeDocumentDeleted, payload, now)
			if err != nil {
				return err
			}
			events = append(events, event)
		}

		if err := repos.Tokens.DeleteByUserID(ctx, user.ID, ""); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		if err := repos.Recoveries.DeleteByUsername(ctx, user.Username); err != nil {
			return fmt.Errorf("delete recovery keys: %w", err)
		}
		if err := repos.Users.SoftDelete(ctx, user.Username, now); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		if len(events) > 0 {
			if err := repos.Outbox.Append(ctx, events...); err != nil {
				return fmt.Errorf("append outbox events: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("account deleted",
		zap.String("username", user.Username),
		zap.Int("documents", documentCount),
		zap.Int("files", fileCount),
	)
	return nil
}
