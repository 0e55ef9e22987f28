package handler

import (
	"github.com/gofiber/fiber/v2"

	"checkin-queue/internal/models"
)

// CheckIn adds a patron to the queue and announces it to staff.
func (h *Handler) CheckIn(c *fiber.Ctx) error {
	var req models.CheckInRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.engine.CheckIn(c.UserContext(), req.PatronName)
	if err != nil {
		return respondError(c, "add check-in", err)
	}

	h.hub.NewCheckIn(res.Entry)

	return c.JSON(fiber.Map{
		"success":  true,
		"id":       res.ID,
		"position": res.Position,
	})
}
