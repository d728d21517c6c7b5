package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/observability"
)

// TokenRefresher rotates a presented token.
type TokenRefresher interface {
	Refresh(token string) (*auth.SignedToken, error)
}

// SessionResult is the outcome of VerifySession. Reason is internal only.
type SessionResult struct {
	Status  domain.SessionStatus
	Reason  domain.RejectReason
	Session *domain.Session
}

// SessionService verifies and rotates cookie-borne session tokens.
type SessionService struct {
	tokens     TokenRefresher
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewSessionService builds the service. dispatcher and metrics may be nil.
func NewSessionService(tokens TokenRefresher, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{tokens: tokens, dispatcher: dispatcher, metrics: metrics, logger: logger}
}

// VerifySession refreshes the presented token. An empty token means the
// caller never had a session.
func (s *SessionService) VerifySession(ctx context.Context, token, clientIP string) SessionResult {
	if token == "" {
		result := SessionResult{Status: domain.SessionUnauthenticated, Reason: domain.RejectMissing}
		s.record(result)
		return result
	}

	rotated, err := s.tokens.Refresh(token)
	if err != nil {
		status, reason := sessionStatusFor(err)
		result := SessionResult{Status: status, Reason: reason}
		s.record(result)

		if !errors.Is(err, auth.ErrTokenExpired) && !errors.Is(err, auth.ErrInvalidToken) {
			s.logger.Error("token refresh failed", zap.Error(err))
		} else {
			s.logger.Debug("session rejected", zap.String("reason", string(reason)), zap.Error(err))
		}
		s.publish(ctx, events.NewEvent(events.EventSessionRejected, "", clientIP, events.SessionRejectedPayload{
			Reason: reason,
			Detail: err.Error(),
		}))
		return result
	}

	session := &domain.Session{
		Subject:   rotated.Subject,
		Token:     rotated.Value,
		TokenID:   rotated.ID,
		IssuedAt:  rotated.IssuedAt,
		ExpiresAt: rotated.ExpiresAt,
	}
	result := SessionResult{Status: domain.SessionAuthenticated, Session: session}
	s.record(result)
	s.publish(ctx, events.NewEvent(events.EventSessionVerified, session.Subject, clientIP, events.SessionVerifiedPayload{
		TokenID:   session.TokenID,
		ExpiresAt: session.ExpiresAt,
	}))
	return result
}

// Logout never fails and never touches the token service; discarding the
// cookie is up to the transport.
func (s *SessionService) Logout(ctx context.Context, clientIP string) {
	s.publish(ctx, events.NewEvent(events.EventSessionLoggedOut, "", clientIP, nil))
}

// sessionStatusFor collapses every refresh failure into SessionExpired so
// clients cannot tell a tampered token from a stale one.
func sessionStatusFor(err error) (domain.SessionStatus, domain.RejectReason) {
	switch {
	case err == nil:
		return domain.SessionAuthenticated, domain.RejectNone
	case errors.Is(err, auth.ErrTokenExpired):
		return domain.SessionExpired, domain.RejectExpired
	default:
		return domain.SessionExpired, domain.RejectInvalid
	}
}

func (s *SessionService) record(result SessionResult) {
	s.metrics.RecordSessionOutcome(string(result.Status), string(result.Reason))
}

func (s *SessionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("audit publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
