package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// CheckHandler reports liveness together with the configured store backend.
type CheckHandler struct {
	backend string
	started time.Time
}

func NewCheckHandler(backend string) *CheckHandler {
	return &CheckHandler{
		backend: backend,
		started: time.Now(),
	}
}

func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"result":  "ok",
		"store":   h.backend,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"started": h.started.UTC().Format(time.RFC3339),
	})
}
