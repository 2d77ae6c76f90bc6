package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/predictlog"
	"github.com/cakeworks/cake-sales/utils"
)

// HandleTrainForecast retrains every cake type model from the full ledger.
// POST /api/v1/forecast/train
func (h *Handler) HandleTrainForecast(c *fiber.Ctx) error {
	report, err := h.Forecaster.Train(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, report)
}

// HandleForecastDiagnostics returns the hold-out errors of the live models.
// GET /api/v1/forecast/diagnostics
func (h *Handler) HandleForecastDiagnostics(c *fiber.Ctx) error {
	report, err := h.Forecaster.Diagnostics()
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, report)
}

type predictRequest struct {
	Date   string `json:"date"`
	Region string `json:"region"`
	Record bool   `json:"record"`
}

// HandlePredict forecasts one (date, region) and optionally logs the result.
// POST /api/v1/forecast/predict
func (h *Handler) HandlePredict(c *fiber.Ctx) error {
	var req predictRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return h.fail(c, err)
	}
	fc, err := h.Forecaster.Predict(c.UserContext(), date, req.Region)
	if err != nil {
		return h.fail(c, err)
	}

	resp := fiber.Map{"forecast": fc}
	if req.Record && len(fc.Quantities) > 0 {
		batch, err := h.Predictions.RecordPrediction(c.UserContext(), date, req.Region, fc.Quantities)
		if err != nil {
			return h.fail(c, err)
		}
		resp["batch_id"] = batch
	}
	return success(c, resp)
}

func predictionFilter(c *fiber.Ctx) (predictlog.Filter, error) {
	var f predictlog.Filter
	var err error
	if f.Since, err = utils.ParseOptionalDate(c.Query("since")); err != nil {
		return f, err
	}
	if f.Until, err = utils.ParseOptionalDate(c.Query("until")); err != nil {
		return f, err
	}
	f.Region = c.Query("region")
	if raw := c.Query("batchId"); raw != "" {
		if f.BatchID, err = uuid.Parse(raw); err != nil {
			return f, apperr.InvalidArgument("invalid batch id %q", raw)
		}
	}
	return f, nil
}

// HandleListPredictions returns logged forecasts.
// GET /api/v1/predictions?since=&until=&region=&batchId=
func (h *Handler) HandleListPredictions(c *fiber.Ctx) error {
	f, err := predictionFilter(c)
	if err != nil {
		return h.fail(c, err)
	}
	recs, err := h.Predictions.Predictions(c.UserContext(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, recs)
}

// HandlePredictionAccuracy compares logged forecasts with recorded sales.
// GET /api/v1/predictions/accuracy?since=&until=&region=&batchId=
func (h *Handler) HandlePredictionAccuracy(c *fiber.Ctx) error {
	f, err := predictionFilter(c)
	if err != nil {
		return h.fail(c, err)
	}
	report, err := h.Predictions.CompareWithActuals(c.UserContext(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, report)
}
