package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/golf-wagers/internal/logger"
)

// HeaderRequestID is echoed on every response so a client can quote it in a bug report.
const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with an ID. A caller-supplied X-Request-ID is kept;
// otherwise a new one is generated. The ID is stored in the request's user context,
// where logger.FromContext picks it up, so every log line written while handling
// the request carries the same request_id attribute.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = logger.GenerateRequestID()
		}
		// c.UserContext() is a regular context.Context that Fiber carries alongside the
		// request; handlers pass it down to the store and the settlement engine.
		c.SetUserContext(logger.WithRequestID(c.UserContext(), id))
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}
