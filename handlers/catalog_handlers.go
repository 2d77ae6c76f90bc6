package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cakeworks/cake-sales/models"
)

type nameRequest struct {
	Name string `json:"name"`
}

// HandleListRegions returns every registered region.
// GET /api/v1/regions
func (h *Handler) HandleListRegions(c *fiber.Ctx) error {
	regions, err := h.Ledger.ListRegions(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, regions)
}

// HandleCreateRegion registers a region; an existing name returns its id.
// POST /api/v1/regions
func (h *Handler) HandleCreateRegion(c *fiber.Ctx) error {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	id, err := h.Ledger.EnsureRegion(c.UserContext(), req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return created(c, models.Region{ID: id, Name: strings.TrimSpace(req.Name)})
}

// HandleListCakeTypes returns every registered cake type.
// GET /api/v1/cake-types
func (h *Handler) HandleListCakeTypes(c *fiber.Ctx) error {
	cakes, err := h.Ledger.ListCakeTypes(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, cakes)
}

// HandleCreateCakeType registers a cake type; an existing name returns its id.
// POST /api/v1/cake-types
func (h *Handler) HandleCreateCakeType(c *fiber.Ctx) error {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	id, err := h.Ledger.EnsureCakeType(c.UserContext(), req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return created(c, models.CakeType{ID: id, Name: strings.TrimSpace(req.Name)})
}
