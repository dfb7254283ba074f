package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
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

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_@.-]{3,50}$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
)

// CreateUserInput carries the fields for account provisioning.
type CreateUserInput struct {
	Username     string
	Password     string
	Email        string
	StorageQuota int64
}

// SelfUpdateInput carries the fields a user may change on their own account.
type SelfUpdateInput struct {
	Email    *string
	Password *string
}

// AdminUpdateInput carries the fields an administrator may change on any
// account.
type AdminUpdateInput struct {
	Email        *string
	Password     *string
	StorageQuota *int64
	Disabled     *bool
}

// UserService manages account lifecycle, capabilities and two-factor state.
type UserService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	roles     port.RoleRepository
	tokens    port.TokenRepository
	totp      *security.TotpVerifier
	passwords *security.PasswordValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(
	cfg *config.AppConfig,
	users port.UserRepository,
	roles port.RoleRepository,
	tokens port.TokenRepository,
	totp *security.TotpVerifier,
	lg *zap.Logger,
) *UserService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &UserService{
		cfg:       cfg,
		users:     users,
		roles:     roles,
		tokens:    tokens,
		totp:      totp,
		passwords: security.DefaultPasswordValidator(),
		logger:    lg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *UserService) argon2Config() security.Argon2Config {
	if s.cfg == nil || s.cfg.Argon2.Memory == 0 {
		return security.DefaultArgon2Config()
	}
	return security.Argon2Config{
		Memory:      s.cfg.Argon2.Memory,
		Iterations:  s.cfg.Argon2.Iterations,
		Parallelism: s.cfg.Argon2.Parallelism,
		SaltLength:  s.cfg.Argon2.SaltLength,
		KeyLength:   s.cfg.Argon2.KeyLength,
	}
}

// HasBaseFunction reports whether the user's role grants the capability.
func (s *UserService) HasBaseFunction(ctx context.Context, user *domain.User, fn domain.BaseFunction) (bool, error) {
	if user == nil {
		return false, nil
	}
	capabilities, err := s.roles.GetBaseFunctions(ctx, user.RoleID)
	if err != nil {
		return false, fmt.Errorf("load role capabilities: %w", err)
	}
	return capabilities.Has(fn), nil
}

// Capabilities returns the base functions granted by the user's role.
func (s *UserService) Capabilities(ctx context.Context, user *domain.User) ([]domain.BaseFunction, error) {
	if user == nil {
		return nil, nil
	}
	capabilities, err := s.roles.GetBaseFunctions(ctx, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("load role capabilities: %w", err)
	}
	return capabilities.List(), nil
}

// Create provisions a new account with the default role.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if !usernameRegex.MatchString(username) {
		return nil, NewValidationError("username", "must be 3-50 characters of letters, digits, '_', '@', '.' or '-'")
	}
	if !emailRegex.MatchString(input.Email) {
		return nil, NewValidationError("email", "must be a valid email address")
	}
	if input.StorageQuota < 0 {
		return nil, NewValidationError("storage_quota", "must not be negative")
	}
	if err := s.passwords.Validate(input.Password); err != nil {
		return nil, NewValidationError("password", err.Error())
	}

	hash, err := security.HashPassword(input.Password, s.argon2Config())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		RoleID:       domain.DefaultUserRoleID,
		Username:     username,
		Email:        input.Email,
		PasswordHash: hash,
		StorageQuota: input.StorageQuota,
		Onboarding:   true,
		CreateDate:   s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyExistingUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created",
		zap.String("username", user.Username),
		zap.String("email", logger.MaskEmail(user.Email)),
	)
	return &user, nil
}

// UpdateSelf applies the caller's changes to their own account.
func (s *UserService) UpdateSelf(ctx context.Context, user *domain.User, input SelfUpdateInput) error {
	if user == nil {
		return ErrUserNotFound
	}

	if input.Email != nil {
		if !emailRegex.MatchString(*input.Email) {
			return NewValidationError("email", "must be a valid email address")
		}
		updated := *user
		updated.Email = *input.Email
		if err := s.users.Update(ctx, updated); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		user.Email = *input.Email
	}

	if input.Password != nil {
		if err := s.changePassword(ctx, user.ID, *input.Password); err != nil {
			return err
		}
	}
	return nil
}

// UpdateByAdmin applies administrative changes to the named account.
// Disabling the guest account or any account whose role grants the ADMIN
// capability is silently skipped; an administrator must always be able to
// log in.
func (s *UserService) UpdateByAdmin(ctx context.Context, username string, input AdminUpdateInput) error {
	user, err := s.users.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user %s: %w", username, err)
	}

	updated := *user
	if input.Email != nil {
		if !emailRegex.MatchString(*input.Email) {
			return NewValidationError("email", "must be a valid email address")
		}
		updated.Email = *input.Email
	}
	if input.StorageQuota != nil {
		if *input.StorageQuota < 0 {
			return NewValidationError("storage_quota", "must not be negative")
		}
		updated.StorageQuota = *input.StorageQuota
	}
	if input.Disabled != nil {
		protected := user.IsGuest()
		if !protected && *input.Disabled {
			admin, err := s.HasBaseFunction(ctx, user, domain.BaseFunctionAdmin)
			if err != nil {
				return err
			}
			protected = admin
		}
		switch {
		case *input.Disabled && protected:
			// Guest and admin-capable identities stay enabled; the
			// request is a no-op.
		case *input.Disabled && !user.IsDisabled():
			at := s.now()
			updated.DisableDate = &at
		case !*input.Disabled:
			updated.DisableDate = nil
		}
	}

	if err := s.users.Update(ctx, updated); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if input.Password != nil {
		if err := s.changePassword(ctx, user.ID, *input.Password); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserService) changePassword(ctx context.Context, userID, password string) error {
	if err := s.passwords.Validate(password); err != nil {
		return NewValidationError("password", err.Error())
	}
	hash, err := security.HashPassword(password, s.argon2Config())
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// HasDefaultAdminPassword reports whether the built-in admin account still
// carries the factory password shipped with the seed data.
func (s *UserService) HasDefaultAdminPassword(user *domain.User) bool {
	if user == nil || user.ID != domain.AdminUserID {
		return false
	}
	ok, err := security.VerifyPassword("admin", user.PasswordHash)
	return err == nil && ok
}

// GetByUsername resolves an active account by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", username, err)
	}
	return user, nil
}

// List returns accounts matching the filter.
func (s *UserService) List(ctx context.Context, filter port.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetOnboarding records whether the first-run tour is still pending.
func (s *UserService) SetOnboarding(ctx context.Context, userID string, onboarding bool) error {
	if err := s.users.UpdateOnboarding(ctx, userID, onboarding); err != nil {
		return fmt.Errorf("update onboarding: %w", err)
	}
	return nil
}

// EnableTotp generates and stores a new shared secret for the account. Any
// previous secret is replaced. The secret is returned once for provisioning
// the authenticator app.
func (s *UserService) EnableTotp(ctx context.Context, user *domain.User) (string, error) {
	if user == nil {
		return "", ErrUserNotFound
	}
	if user.IsGuest() {
		return "", ErrForbidden
	}

	secret, err := s.totp.CreateSecret(user.Username)
	if err != nil {
		return "", fmt.Errorf("create totp secret: %w", err)
	}

	updated := *user
	updated.TotpSecret = &secret
	if err := s.users.Update(ctx, updated); err != nil {
		return "", fmt.Errorf("store totp secret: %w", err)
	}
	user.TotpSecret = &secret

	s.logger.Info("totp enabled", zap.String("username", user.Username))
	return secret, nil
}

// TestTotp checks a one-time code against the caller's secret without any
// side effects.
func (s *UserService) TestTotp(user *domain.User, code string) bool {
	if user == nil || !user.TotpEnabled() {
		return false
	}
	return s.totp.Authorize(*user.TotpSecret, code)
}

// DisableTotpSelf removes two-factor authentication after re-verifying the
// caller's password.
func (s *UserService) DisableTotpSelf(ctx context.Context, user *domain.User, password string) error {
	if user == nil {
		return ErrUserNotFound
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return NewValidationError("password", "password does not match")
	}
	return s.clearTotp(ctx, user)
}

// DisableTotpByAdmin removes two-factor authentication from the named
// account without a password check.
func (s *UserService) DisableTotpByAdmin(ctx context.Context, username string) error {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.clearTotp(ctx, user)
}

func (s *UserService) clearTotp(ctx context.Context, user *domain.User) error {
	updated := *user
	updated.TotpSecret = nil
	if err := s.users.Update(ctx, updated); err != nil {
		return fmt.Errorf("clear totp secret: %w", err)
	}
	user.TotpSecret = nil

	s.logger.Info("totp disabled", zap.String("username", user.Username))
	return nil
}
