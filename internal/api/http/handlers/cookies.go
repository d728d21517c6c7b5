package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/session-service/internal/config"
)

// CookiePolicy owns the attributes of the session cookie.
type CookiePolicy struct {
	Name     string
	Secure   bool
	SameSite string
}

// NewCookiePolicy derives the policy from configuration.
func NewCookiePolicy(cfg config.CookieConfig) CookiePolicy {
	name := cfg.Name
	if name == "" {
		name = "jwt"
	}
	return CookiePolicy{Name: name, Secure: cfg.Secure, SameSite: cfg.SameSite}
}

// Read returns the token presented by the client, or "".
func (p CookiePolicy) Read(c *fiber.Ctx) string {
	return c.Cookies(p.Name)
}

// Set hands a token to the client, replacing any previous one.
func (p CookiePolicy) Set(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     p.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		Secure:   p.Secure,
		HTTPOnly: true,
		SameSite: p.SameSite,
	})
}

// Clear instructs the client to discard the token.
func (p CookiePolicy) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   p.Secure,
		HTTPOnly: true,
		SameSite: p.SameSite,
	})
}
