package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	ActorHeader = "X-Actor-ID"
	actorKey    = "actor_id"
)

// ActorRequired rejects mutating requests that do not name who performs them.
// Authentication happens upstream; the gateway forwards the user id.
func ActorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		actor := strings.TrimSpace(c.Get(ActorHeader))
		if actor == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing " + ActorHeader + " header"})
		}
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// Actor returns the actor id stored by ActorRequired, or "".
func Actor(c *fiber.Ctx) string {
	actor, _ := c.Locals(actorKey).(string)
	return actor
}
