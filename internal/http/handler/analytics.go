package handler

import (
	"github.com/gofiber/fiber/v2"
)

const defaultAnalyticsDays = 7

// GetAnalytics returns rollups for ?days=N. A missing or non-numeric value
// means the last week.
func (h *Handler) GetAnalytics(c *fiber.Ctx) error {
	days := c.QueryInt("days", defaultAnalyticsDays)

	report, err := h.engine.Analytics(c.UserContext(), days)
	if err != nil {
		return respondError(c, "fetch analytics", err)
	}
	return c.JSON(report)
}
