package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"checkin-queue/internal/queue"
)

// respondError maps engine errors to status codes. Store failures are
// logged here and answered with a generic message.
func respondError(c *fiber.Ctx, op string, err error) error {
	switch {
	case queue.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case queue.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Check-in not found",
		})
	default:
		log.Printf("[queue] %s failed: %v", op, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to " + op,
		})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
