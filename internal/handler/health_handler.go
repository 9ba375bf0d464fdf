package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool   Pinger
	events Pinger
}

// NewHealthHandler creates a new HealthHandler with the given database pool.
// events is the optional purchase event stream; nil skips its check.
func NewHealthHandler(pool Pinger, events Pinger) *HealthHandler {
	return &HealthHandler{pool: pool, events: events}
}

// Check performs a health check by pinging the database.
// Returns 200 OK with {"status": "healthy"} when database is reachable.
// Returns 503 Service Unavailable with {"status": "unhealthy", "error": "..."} when database is unreachable.
// An unreachable event stream only degrades the status, since payments proceed without it.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.pool.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}

	if h.events != nil {
		if err := h.events.Ping(c.Context()); err != nil {
			log.Warn().Err(err).Msg("health check degraded: event stream unreachable")
			return c.JSON(fiber.Map{
				"status": "degraded",
				"events": "unavailable",
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
