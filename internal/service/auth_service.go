package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/limiter"
	"github.com/spec-kit/session-service/internal/repository"
	apperrors "github.com/spec-kit/session-service/pkg/util/errorutil"
)

const maxUsernameLength = 64

// TokenIssuer signs a fresh token for a subject.
type TokenIssuer interface {
	Issue(subject string) (*auth.SignedToken, error)
}

// LoginLimiter throttles login attempts.
type LoginLimiter interface {
	Enforce(ctx context.Context, username, ip string) error
	Reset(ctx context.Context, username, ip string) error
}

// AuthService coordinates login and account management.
type AuthService struct {
	users      repository.UserRepository
	tokens     TokenIssuer
	limiter    LoginLimiter
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int

	decoyOnce sync.Once
	decoy     string
}

// AuthDependencies encapsulates collaborators for the auth service.
// Users may be nil when no database is configured; login then reports unavailable.
type AuthDependencies struct {
	Users      repository.UserRepository
	Tokens     TokenIssuer
	Limiter    LoginLimiter
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.Users,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
	}
}

// Login checks credentials and issues a session token.
// Unknown users, suspended users and wrong passwords all fail the same way.
func (s *AuthService) Login(ctx context.Context, username, password, clientIP string) (*domain.User, *auth.SignedToken, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, nil, err
	}
	if s.users == nil {
		return nil, nil, apperrors.NewServiceUnavailable("account store unavailable")
	}

	if s.limiter != nil {
		if err := s.limiter.Enforce(ctx, username, clientIP); err != nil {
			if errors.Is(err, limiter.ErrLoginRateLimited) {
				s.loginFailed(ctx, username, clientIP, "rate limited")
				return nil, nil, apperrors.NewTooManyRequests("too many login attempts")
			}
			s.logger.Warn("login limiter unavailable; continuing", zap.Error(err))
		}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = auth.ComparePassword(s.decoyHash(), password)
			s.loginFailed(ctx, username, clientIP, "unknown user")
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.loginFailed(ctx, username, clientIP, "bad password")
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active() {
		s.loginFailed(ctx, username, clientIP, "account "+strings.ToLower(string(user.Status)))
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, username, clientIP); err != nil {
			s.logger.Warn("login limiter reset failed", zap.Error(err))
		}
	}
	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, user.Username, clientIP, nil))
	return user, token, nil
}

// CreateUser stores a new active account with a bcrypt hash of password.
func (s *AuthService) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	if s.users == nil {
		return nil, apperrors.NewServiceUnavailable("account store unavailable")
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetUserStatus suspends or reactivates an account. Tokens already issued
// stay valid until they expire.
func (s *AuthService) SetUserStatus(ctx context.Context, username string, status domain.UserStatus) error {
	if s.users == nil {
		return apperrors.NewServiceUnavailable("account store unavailable")
	}
	switch status {
	case domain.UserStatusActive, domain.UserStatusSuspended:
	default:
		return apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	if err := s.users.UpdateStatus(ctx, username, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"username": username})
		}
		return err
	}
	return nil
}

func validateCredentials(username, password string) error {
	details := map[string]any{}
	if username == "" {
		details["username"] = "required"
	} else if len(username) > maxUsernameLength {
		details["username"] = "too long"
	}
	if password == "" {
		details["password"] = "required"
	} else if len(password) > auth.MaxPasswordBytes {
		details["password"] = "too long"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid login payload", details)
	}
	return nil
}

func (s *AuthService) decoyHash() string {
	s.decoyOnce.Do(func() {
		s.decoy = auth.DecoyHash(s.bcryptCost)
	})
	return s.decoy
}

func (s *AuthService) loginFailed(ctx context.Context, username, clientIP, reason string) {
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, username, clientIP, events.LoginFailedPayload{Reason: reason}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("audit publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
