package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/session-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Subject   string
	TokenID   string
	ExpiresAt int64
}

// SessionMiddleware validates the session cookie without rotating it.
type SessionMiddleware struct {
	tokens     *TokenService
	cookieName string
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenService, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens, cookieName: cookieName}
}

// Handle enforces a valid, unexpired session for protected routes. Missing
// and rejected tokens get the same generic response.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	raw := c.Cookies(m.cookieName)
	if raw == "" {
		return apperrors.NewUnauthorized("session required")
	}

	claims, err := m.tokens.Validate(raw)
	if err != nil {
		return apperrors.NewUnauthorized("session required")
	}

	c.Locals(principalKey, &Principal{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
