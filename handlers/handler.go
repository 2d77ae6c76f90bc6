// Package handlers exposes the sales tracker over HTTP with Fiber.
package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/config"
	"github.com/cakeworks/cake-sales/forecast"
	"github.com/cakeworks/cake-sales/insights"
	"github.com/cakeworks/cake-sales/ledger"
	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/predictlog"
	"github.com/cakeworks/cake-sales/recommender"
	"github.com/cakeworks/cake-sales/summary"
)

// Handler carries the components every route works on. All fields are required except Insights.
type Handler struct {
	Ledger      *ledger.Ledger
	Summary     *summary.Aggregator
	Forecaster  *forecast.Forecaster
	Recommender *recommender.Recommender
	Predictions *predictlog.Log
	Insights    *insights.Service
	Catalog     config.Catalog
	JWTSecret   []byte
	Log         *logger.Logger

	// Now is used for token expiry. Defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"status": "success", "data": data})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": data})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": message})
}

// fail renders err with the status of its kind. Unclassified errors are logged and hidden.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := apperr.Status(err)
	if status >= fiber.StatusInternalServerError {
		h.Log.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{"status": "error", "message": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": err.Error()})
}

// queryIntPtr is queryInt that tells an absent parameter (nil) from an explicit 0.
func queryIntPtr(c *fiber.Ctx, name string) (*int, error) {
	if strings.TrimSpace(c.Query(name)) == "" {
		return nil, nil
	}
	v, err := queryInt(c, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c *fiber.Ctx, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidArgument("query parameter %s must be an integer, got %q", name, raw)
	}
	return v, nil
}
