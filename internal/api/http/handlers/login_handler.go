package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/session-service/internal/api/dto"
	"github.com/spec-kit/session-service/internal/service"
	apperrors "github.com/spec-kit/session-service/pkg/util/errorutil"
)

// LoginHandler exchanges credentials for a session cookie.
type LoginHandler struct {
	auth    *service.AuthService
	cookies CookiePolicy
}

// NewLoginHandler constructs handler.
func NewLoginHandler(authService *service.AuthService, cookies CookiePolicy) *LoginHandler {
	return &LoginHandler{auth: authService, cookies: cookies}
}

// Login handles POST /login.
func (h *LoginHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Username, req.Password, c.IP())
	if err != nil {
		return err
	}

	h.cookies.Set(c, token.Value, token.ExpiresAt)
	return c.JSON(dto.SessionResponse{
		Status:   "success",
		Message:  "LoggedIn",
		Username: user.Username,
	})
}
