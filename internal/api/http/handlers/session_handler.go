package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/session-service/internal/api/dto"
	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/service"
	apperrors "github.com/spec-kit/session-service/pkg/util/errorutil"
)

// SessionHandler exposes session verification and logout.
type SessionHandler struct {
	sessions *service.SessionService
	cookies  CookiePolicy
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService, cookies CookiePolicy) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookies: cookies}
}

// Logout handles POST /logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.sessions.Logout(c.UserContext(), c.IP())
	h.cookies.Clear(c)
	return c.JSON(dto.MessageResponse{Message: "LoggedOut"})
}

// VerifySession handles POST /verify-session.
func (h *SessionHandler) VerifySession(c *fiber.Ctx) error {
	result := h.sessions.VerifySession(c.UserContext(), h.cookies.Read(c), c.IP())

	switch result.Status {
	case domain.SessionAuthenticated:
		h.cookies.Set(c, result.Session.Token, result.Session.ExpiresAt)
		return c.JSON(dto.SessionResponse{
			Status:   "success",
			Message:  "verified",
			Username: result.Session.Subject,
		})
	case domain.SessionUnauthenticated:
		return c.Status(http.StatusUnauthorized).JSON(dto.SessionResponse{
			Status:  "error",
			Message: "noexist",
		})
	default:
		return c.Status(http.StatusUnauthorized).JSON(dto.SessionResponse{
			Status:  "expired",
			Message: "expired",
		})
	}
}

// Me handles GET /me behind the session middleware.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	return c.JSON(dto.PrincipalResponse{
		Username:  principal.Subject,
		TokenID:   principal.TokenID,
		ExpiresAt: time.Unix(principal.ExpiresAt, 0).UTC(),
	})
}
