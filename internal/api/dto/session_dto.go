package dto

import "time"

// SessionResponse is the body of login and session verification responses.
// Username is always present, empty when no session is established.
type SessionResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// MessageResponse acknowledges an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PrincipalResponse describes the caller of a protected route.
type PrincipalResponse struct {
	Username  string    `json:"username"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
