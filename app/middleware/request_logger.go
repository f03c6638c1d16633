package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs every request once the response status is known.
// Handler errors are rendered here through the app's error handler, so the
// logged status is the one the client receives.
func RequestLogger(logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.UserContext(), level, "[HTTP] request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"took", time.Since(start),
			"ip", c.IP(),
		)
		return nil
	}
}

// IgnoreWellKnown answers requests under /.well-known/ without reaching the router.
func IgnoreWellKnown() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/.well-known/") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status": "ignored",
			})
		}
		return c.Next()
	}
}
