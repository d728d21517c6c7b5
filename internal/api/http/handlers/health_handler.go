package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/session-service/internal/observability"
	"github.com/spec-kit/session-service/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness, readiness and metrics probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	redis       Pinger
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres, redis Pinger, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis, metrics: metrics}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies. An unconfigured
// database only disables login, so it does not fail readiness. Redis only
// throttles login, which fails open without it, so an outage marks the
// service degraded instead of unready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	depStatus := fiber.Map{}
	ready, degraded := true, false

	check := func(name string, dep Pinger, critical bool) {
		if dep == nil {
			depStatus[name] = "disabled"
			return
		}
		err := dep.Ping(ctx)
		switch {
		case err == nil:
			depStatus[name] = "ok"
		case errors.Is(err, persistence.ErrPostgresNotConfigured):
			depStatus[name] = "disabled"
		case critical:
			depStatus[name] = err.Error()
			ready = false
		default:
			depStatus[name] = "degraded: " + err.Error()
			degraded = true
		}
	}
	check("postgres", h.postgres, true)
	check("redis", h.redis, false)

	if ready {
		status := "ready"
		if degraded {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":       status,
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// Metrics reports the in-memory counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
