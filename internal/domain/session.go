package domain

import "time"

// SessionStatus is the caller-visible outcome of a session check.
type SessionStatus string

const (
	SessionAuthenticated   SessionStatus = "AUTHENTICATED"
	SessionUnauthenticated SessionStatus = "UNAUTHENTICATED"
	SessionExpired         SessionStatus = "EXPIRED"
)

// RejectReason records why a presented token was refused. It is kept for
// logs, metrics and audit events and never sent to the client.
type RejectReason string

const (
	RejectNone    RejectReason = ""
	RejectMissing RejectReason = "missing"
	RejectExpired RejectReason = "expired"
	RejectInvalid RejectReason = "invalid"
)

// Session describes a verified session and its rotated token.
type Session struct {
	Subject   string
	Token     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
