package handler

import (
	"github.com/gofiber/fiber/v2"

	"checkin-queue/internal/helper"
)

func (h *Handler) GetQueue(c *fiber.Ctx) error {
	entries, err := h.engine.ListWaiting(c.UserContext())
	if err != nil {
		return respondError(c, "fetch queue", err)
	}
	return c.JSON(entries)
}

// Complete marks a patron as served. Repeating the call on a completed
// record succeeds with changed=false and sends no update.
func (h *Handler) Complete(c *fiber.Ctx) error {
	id, err := helper.ParseID(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid ID")
	}

	changed, err := h.engine.Complete(c.UserContext(), id)
	if err != nil {
		return respondError(c, "complete check-in", err)
	}

	if changed {
		h.hub.QueueUpdate(c.UserContext())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"changed": changed,
	})
}

func (h *Handler) ClearPastDue(c *fiber.Ctx) error {
	id, err := helper.ParseID(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid ID")
	}

	changed, err := h.engine.ClearPastDue(c.UserContext(), id)
	if err != nil {
		return respondError(c, "clear past due", err)
	}

	if changed {
		h.hub.QueueUpdate(c.UserContext())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"changed": changed,
	})
}
