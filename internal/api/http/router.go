package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/session-service/internal/api/http/handlers"
	"github.com/spec-kit/session-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Session           *handlers.SessionHandler
	Login             *handlers.LoginHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/login", cfg.Login.Login)
	app.Post("/logout", cfg.Session.Logout)
	app.Post("/verify-session", cfg.Session.VerifySession)
	app.Post("/verifyjwt", cfg.Session.VerifySession)

	app.Get("/me", cfg.SessionMiddleware.Handle, cfg.Session.Me)
}
