package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleWeeklySummary GET /api/v1/summaries/weekly
func (h *Handler) HandleWeeklySummary(c *fiber.Ctx) error {
	rows, err := h.Summary.WeeklySummary(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, rows)
}

// HandleMonthlySummary GET /api/v1/summaries/monthly
func (h *Handler) HandleMonthlySummary(c *fiber.Ctx) error {
	rows, err := h.Summary.MonthlySummary(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, rows)
}

// HandleDayOfWeekSummary GET /api/v1/summaries/day-of-week
func (h *Handler) HandleDayOfWeekSummary(c *fiber.Ctx) error {
	rows, err := h.Summary.DayOfWeekSummary(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, rows)
}

// HandleRegionalSummary GET /api/v1/summaries/regional
func (h *Handler) HandleRegionalSummary(c *fiber.Ctx) error {
	rows, err := h.Summary.RegionalSummary(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, rows)
}

// HandleDashboard returns the headline metrics.
// GET /api/v1/dashboard
func (h *Handler) HandleDashboard(c *fiber.Ctx) error {
	d, err := h.Summary.Dashboard(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, d)
}
