package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/infra/config"
	"github.com/docmesh/docman-service/internal/infra/logger"
	"github.com/docmesh/docman-service/internal/infra/security"
	"github.com/docmesh/docman-service/internal/repository"
)

// tokenByteLength yields 128-bit token ids.
const tokenByteLength = 16

// lastConnectionUpdateInterval throttles last-seen writes on hot tokens.
const lastConnectionUpdateInterval = time.Hour

// LoginInput carries the credentials and client metadata for a login attempt.
type LoginInput struct {
	Username   string
	Password   string
	Code       string
	LongLasted bool
	IP         string
	UserAgent  string
}

// AuthService coordinates login, logout and bearer token validation.
type AuthService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	tokens port.TokenRepository
	atomic port.Atomic
	totp   *security.TotpVerifier
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tokens port.TokenRepository,
	atomic port.Atomic,
	totp *security.TotpVerifier,
	lg *zap.Logger,
) *AuthService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &AuthService{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		atomic: atomic,
		totp:   totp,
		logger: lg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login runs the authentication state machine and issues a session token.
// Unknown usernames, wrong passwords, and disabled or deleted accounts all
// collapse into ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.AuthenticationToken, *domain.User, error) {
	var user *domain.User

	if input.Username == domain.GuestUsername {
		if !s.cfg.Auth.GuestLoginEnabled {
			return nil, nil, ErrInvalidCredentials
		}
		guest, err := s.users.GetActiveByUsername(ctx, domain.GuestUsername)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil, ErrInvalidCredentials
			}
			return nil, nil, fmt.Errorf("load guest account: %w", err)
		}
		if guest.IsDisabled() {
			return nil, nil, ErrInvalidCredentials
		}
		// The guest identity authenticates without a password or code.
		user = guest
	} else {
		authenticated, err := s.authenticate(ctx, input.Username, input.Password)
		if err != nil {
			return nil, nil, err
		}

		if authenticated.TotpEnabled() {
			if input.Code == "" {
				return nil, nil, ErrCodeRequired
			}
			if !s.totp.Authorize(*authenticated.TotpSecret, input.Code) {
				s.logger.Warn("rejected one-time code",
					zap.String("username", authenticated.Username),
					zap.String("ip", logger.MaskIP(input.IP)),
				)
				return nil, nil, ErrForbidden
			}
		}
		user = authenticated
	}

	token, err := s.issueToken(ctx, user.ID, input)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in",
		zap.String("username", user.Username),
		zap.Bool("long_lasted", token.LongLasted),
		zap.String("ip", logger.MaskIP(input.IP)),
	)
	return token, user, nil
}

// authenticate verifies the username and password against the active user
// set. Every failure path returns ErrInvalidCredentials.
func (s *AuthService) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user %s: %w", username, err)
	}

	if user.IsDisabled() {
		return nil, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// issueToken creates the bearer token and prunes expired short-lived tokens
// for the same user in one transaction.
func (s *AuthService) issueToken(ctx context.Context, userID string, input LoginInput) (*domain.AuthenticationToken, error) {
	id, err := security.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("generate token id: %w", err)
	}

	now := s.now()
	token := domain.AuthenticationToken{
		ID:         id,
		UserID:     userID,
		LongLasted: input.LongLasted,
		IP:         truncatePtr(input.IP, domain.TokenIPMaxLength),
		UserAgent:  truncatePtr(input.UserAgent, domain.TokenUserAgentMaxLength),
		CreateDate: now,
	}

	cutoff := now.Add(-s.cfg.Auth.SessionTokenTTL)
	err = s.atomic.RunAtomic(ctx, func(ctx context.Context, repos port.AtomicRepos) error {
		if err := repos.Tokens.Create(ctx, token); err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		pruned, err := repos.Tokens.DeleteOldSessionTokens(ctx, userID, cutoff)
		if err != nil {
			return fmt.Errorf("prune session tokens: %w", err)
		}
		if pruned > 0 {
			s.logger.Debug("pruned expired session tokens", zap.Int("count", pruned))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Logout invalidates the presented session token.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	if _, err := s.tokens.Get(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("load token: %w", err)
	}
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// AuthenticateToken resolves a bearer token to its live owner. Short-lived
// tokens past their TTL are removed on sight.
func (s *AuthService) AuthenticateToken(ctx context.Context, tokenID string) (*domain.User, *domain.AuthenticationToken, error) {
	if tokenID == "" {
		return nil, nil, ErrInvalidToken
	}

	token, err := s.tokens.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load token: %w", err)
	}

	now := s.now()
	if !token.LongLasted && now.Sub(token.CreateDate) > s.cfg.Auth.SessionTokenTTL {
		if err := s.tokens.Delete(ctx, token.ID); err != nil {
			s.logger.Warn("delete expired token failed", zap.Error(err))
		}
		return nil, nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load token owner: %w", err)
	}
	if user.DeleteDate != nil || user.IsDisabled() {
		return nil, nil, ErrInvalidToken
	}

	if token.LastConnectionDate == nil || now.Sub(*token.LastConnectionDate) > lastConnectionUpdateInterval {
		if err := s.tokens.UpdateLastConnectionDate(ctx, token.ID, now); err != nil {
			s.logger.Warn("update last connection date failed", zap.Error(err))
		} else {
			token.LastConnectionDate = &now
		}
	}

	return user, token, nil
}

func truncatePtr(value string, max int) *string {
	if value == "" {
		return nil
	}
	if len(value) > max {
		value = value[:max]
	}
	return &value
}
