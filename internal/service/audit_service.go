package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/events"
)

// AuditService writes session and login events to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionVerified, a.handleSessionVerified)
	a.dispatcher.Subscribe(events.EventSessionRejected, a.handleSessionRejected)
	a.dispatcher.Subscribe(events.EventSessionLoggedOut, a.handleLoggedOut)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
}

func (a *AuditService) handleSessionVerified(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.SessionVerifiedPayload); ok {
		fields = append(fields, zap.String("token_id", p.TokenID), zap.Time("expires_at", p.ExpiresAt))
	}
	a.logger.Info("SessionVerified", fields...)
	return nil
}

func (a *AuditService) handleSessionRejected(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.SessionRejectedPayload); ok {
		fields = append(fields, zap.String("reason", string(p.Reason)), zap.String("detail", p.Detail))
	}
	a.logger.Warn("SessionRejected", fields...)
	return nil
}

func (a *AuditService) handleLoggedOut(_ context.Context, event events.Event) error {
	a.logger.Info("LoggedOut", a.baseFields(event)...)
	return nil
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.logger.Info("LoginSucceeded", a.baseFields(event)...)
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.LoginFailedPayload); ok {
		fields = append(fields, zap.String("reason", p.Reason))
	}
	a.logger.Warn("LoginFailed", fields...)
	return nil
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject", event.Subject),
		zap.String("client_ip", event.ClientIP),
		zap.Time("at", event.Timestamp),
	}
}
