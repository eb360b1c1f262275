package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/golf-wagers/internal/logger"
)

// readyTimeout bounds the dependency check behind GET /ready.
const readyTimeout = 2 * time.Second

// HealthCheck handles GET /health.
// It returns a simple JSON response indicating the process is alive and reachable.
// The endpoint is deliberately lightweight: no database queries, no authentication.
// Container liveness probes use it; a failing probe restarts the container.
//
// c *fiber.Ctx is the request context. It gives access to the request data and
// methods for writing the response. All Fiber handlers follow this same signature.
func HealthCheck(c *fiber.Ctx) error {
	// fiber.Map is just a shorthand for map[string]interface{}.
	return c.JSON(fiber.Map{"status": "ok", "service": "golf-wagers"})
}

// ReadyCheck handles GET /ready.
// Unlike HealthCheck it checks the database, so a load balancer stops sending score
// entry to an instance that can't save scores. A failed check answers 503 but
// leaves the process running: the connection pool reconnects on its own.
//
// ping is usually (*sql.DB).PingContext; cmd/server passes it in so this package
// doesn't need to know about the database driver.
func ReadyCheck(ping func(context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			logger.FromContext(ctx).Warn("readiness check failed", slog.Any("error", err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	}
}
