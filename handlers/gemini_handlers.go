package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleInsights asks Gemini to explain the current figures.
// GET /api/v1/insights?region=
func (h *Handler) HandleInsights(c *fiber.Ctx) error {
	if h.Insights == nil || !h.Insights.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "error",
			"message": "AI insights are not configured",
		})
	}
	resp, err := h.Insights.Explain(c.UserContext(), c.Query("region"))
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, resp)
}
