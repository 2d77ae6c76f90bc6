package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cakeworks/cake-sales/recommender"
)

// HandleRecommendations suggests restock quantities from recent sales.
// GET /api/v1/recommendations?region=&windowDays=&topN=
func (h *Handler) HandleRecommendations(c *fiber.Ctx) error {
	window, err := queryIntPtr(c, "windowDays")
	if err != nil {
		return h.fail(c, err)
	}
	topN, err := queryIntPtr(c, "topN")
	if err != nil {
		return h.fail(c, err)
	}
	recs, err := h.Recommender.Recommend(c.UserContext(), recommender.Options{
		Region:     c.Query("region"),
		WindowDays: window,
		TopN:       topN,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, recs)
}
