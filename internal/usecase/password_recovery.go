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
	"github.com/docmesh/docman-service/internal/infra/config"
	"github.com/docmesh/docman-service/internal/infra/logger"
	"github.com/docmesh/docman-service/internal/infra/security"
	"github.com/docmesh/docman-service/internal/repository"
)

// recoveryKeyByteLength yields 128-bit recovery keys.
const recoveryKeyByteLength = 16

// PasswordRecoveryService issues and redeems one-time password reset keys.
type PasswordRecoveryService struct {
	cfg        *config.AppConfig
	users      port.UserRepository
	recoveries port.RecoveryRepository
	atomic     port.Atomic
	passwords  *security.PasswordValidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewPasswordRecoveryService constructs a PasswordRecoveryService instance.
func NewPasswordRecoveryService(
	cfg *config.AppConfig,
	users port.UserRepository,
	recoveries port.RecoveryRepository,
	atomic port.Atomic,
	lg *zap.Logger,
) *PasswordRecoveryService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &PasswordRecoveryService{
		cfg:        cfg,
		users:      users,
		recoveries: recoveries,
		atomic:     atomic,
		passwords:  security.DefaultPasswordValidator(),
		logger:     lg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *PasswordRecoveryService) WithClock(now func() time.Time) *PasswordRecoveryService {
	if now != nil {
		s.now = now
	}
	return s
}

// RequestRecovery creates a recovery key for the account and records a
// password-lost event for the mail pipeline. Unknown, disabled and deleted
// usernames are acknowledged identically so the endpoint cannot be used to
// probe for accounts.
func (s *PasswordRecoveryService) RequestRecovery(ctx context.Context, username string) error {
	user, err := s.users.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("password recovery for unknown username", zap.String("username", username))
			return nil
		}
		return fmt.Errorf("load user %s: %w", username, err)
	}
	if user.IsDisabled() || user.IsGuest() {
		return nil
	}

	key, err := security.GenerateSecureToken(recoveryKeyByteLength)
	if err != nil {
		return fmt.Errorf("generate recovery key: %w", err)
	}

	now := s.now()
	recovery := domain.PasswordRecovery{
		ID:         key,
		Username:   user.Username,
		CreateDate: now,
	}
	event := domain.PasswordLostEvent{
		EventID:     uuid.NewString(),
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		RecoveryKey: key,
		ExpiresAt:   now.Add(s.cfg.Recovery.Validity),
	}
	outboxEvent, err := domain.NewOutboxEvent(event.EventID, domain.EventTypePasswordLost, event, now)
	if err != nil {
		return err
	}

	err = s.atomic.RunAtomic(ctx, func(ctx context.Context, repos port.AtomicRepos) error {
		if err := repos.Recoveries.Create(ctx, recovery); err != nil {
			return fmt.Errorf("create recovery: %w", err)
		}
		if err := repos.Outbox.Append(ctx, outboxEvent); err != nil {
			return fmt.Errorf("append outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("password recovery issued",
		zap.String("username", user.Username),
		zap.String("email", logger.MaskEmail(user.Email)),
	)
	return nil
}

// ResetPassword redeems a recovery key. The key is single-use: redeeming it
// removes every outstanding key for the account.
func (s *PasswordRecoveryService) ResetPassword(ctx context.Context, key, newPassword string) error {
	cutoff := s.now().Add(-s.cfg.Recovery.Validity)
	recovery, err := s.recoveries.GetActiveByID(ctx, key, cutoff)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("load recovery: %w", err)
	}

	if err := s.passwords.Validate(newPassword); err != nil {
		return NewValidationError("password", err.Error())
	}

	user, err := s.users.GetActiveByUsername(ctx, recovery.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Account deleted after the key was issued.
			return ErrKeyNotFound
		}
		return fmt.Errorf("load user %s: %w", recovery.Username, err)
	}

	argonCfg := security.DefaultArgon2Config()
	if s.cfg != nil && s.cfg.Argon2.Memory != 0 {
		argonCfg = security.Argon2Config{
			Memory:      s.cfg.Argon2.Memory,
			Iterations:  s.cfg.Argon2.Iterations,
			Parallelism: s.cfg.Argon2.Parallelism,
			SaltLength:  s.cfg.Argon2.SaltLength,
			KeyLength:   s.cfg.Argon2.KeyLength,
		}
	}
	hash, err := security.HashPassword(newPassword, argonCfg)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	err = s.atomic.RunAtomic(ctx, func(ctx context.Context, repos port.AtomicRepos) error {
		if err := repos.Users.UpdatePassword(ctx, user.ID, hash, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := repos.Recoveries.DeleteByUsername(ctx, user.Username); err != nil {
			return fmt.Errorf("consume recovery keys: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("password reset completed", zap.String("username", user.Username))
	return nil
}
