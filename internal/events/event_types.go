package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/session-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionVerified  EventType = "session.verified"
	EventSessionRejected  EventType = "session.rejected"
	EventSessionLoggedOut EventType = "session.logged_out"
	EventLoginSucceeded   EventType = "login.succeeded"
	EventLoginFailed      EventType = "login.failed"
)

// Event represents an audit event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject,omitempty"`
	ClientIP  string      `json:"client_ip,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, subject, clientIP string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		ClientIP:  clientIP,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionVerifiedPayload payload.
type SessionVerifiedPayload struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRejectedPayload payload.
type SessionRejectedPayload struct {
	Reason domain.RejectReason `json:"reason"`
	Detail string              `json:"detail,omitempty"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}
