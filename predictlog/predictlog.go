// Package predictlog keeps an append-only log of forecasts so they can be compared with what was sold.
package predictlog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/ledger"
	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/models"
)

// Filter restricts which logged predictions are read back.
type Filter = database.PredictionFilter

// SalesQuerier reads actual sales. *ledger.Ledger implements it.
type SalesQuerier interface {
	Query(ctx context.Context, filter database.SaleFilter) ledger.Sales
}

// Log records forecasts. Recording the same (date, region) twice keeps both batches.
type Log struct {
	store database.Store
	sales SalesQuerier
	log   *logger.Logger
	now   func() time.Time
}

func New(store database.Store, sales SalesQuerier, log *logger.Logger) *Log {
	if log == nil {
		log = logger.NewNop()
	}
	return &Log{store: store, sales: sales, log: log.With("component", "predictlog"), now: time.Now}
}

// RecordPrediction appends one row per cake type and returns the id shared by the batch.
func (l *Log) RecordPrediction(ctx context.Context, date civil.Date, region string, predictions map[string]int) (uuid.UUID, error) {
	if !date.IsValid() {
		return uuid.Nil, apperr.InvalidArgument("invalid prediction date %v", date)
	}
	if len(predictions) == 0 {
		return uuid.Nil, apperr.InvalidArgument("no predictions given for %s in %s", date, region)
	}
	r, err := l.store.FindRegion(ctx, region)
	if err != nil {
		return uuid.Nil, asInvalid(err, "unknown region %q", region)
	}

	cakes := make([]string, 0, len(predictions))
	for cake := range predictions {
		cakes = append(cakes, cake)
	}
	sort.Strings(cakes)

	batch := uuid.New()
	created := l.now().UTC()
	weekday := models.WeekdayName(date)
	rows := make([]models.PredictionRow, 0, len(cakes))
	for _, cake := range cakes {
		qty := predictions[cake]
		if qty < 0 {
			return uuid.Nil, apperr.InvalidArgument("predicted quantity for %q must not be negative, got %d", cake, qty)
		}
		c, err := l.store.FindCakeType(ctx, cake)
		if err != nil {
			return uuid.Nil, asInvalid(err, "unknown cake type %q", cake)
		}
		rows = append(rows, models.PredictionRow{
			BatchID:    batch,
			Date:       date,
			Weekday:    weekday,
			RegionID:   r.ID,
			CakeTypeID: c.ID,
			Quantity:   qty,
			CreatedAt:  created,
		})
	}
	if err := l.store.InsertPredictions(ctx, rows); err != nil {
		return uuid.Nil, fmt.Errorf("record prediction: %w", err)
	}
	l.log.Info("prediction recorded", "batch_id", batch.String(), "date", date.String(), "region", region, "rows", len(rows))
	return batch, nil
}

// asInvalid turns a missing catalog entry into an argument error and passes other failures through.
func asInvalid(err error, format string, args ...interface{}) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.InvalidArgument(format, args...)
	}
	return fmt.Errorf("resolve catalog: %w", err)
}

// Predictions returns the logged rows ordered by date, region, cake type and then creation time.
func (l *Log) Predictions(ctx context.Context, filter Filter) ([]models.PredictionRecord, error) {
	recs, err := l.store.QueryPredictions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if c := models.CompareDates(a.Date, b.Date); c != 0 {
			return c < 0
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.CakeType != b.CakeType {
			return a.CakeType < b.CakeType
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return recs, nil
}

// CompareWithActuals pairs logged predictions with the units actually sold.
// Only (date, region) pairs that already have sales are compared.
func (l *Log) CompareWithActuals(ctx context.Context, filter Filter) (models.AccuracyReport, error) {
	preds, err := l.Predictions(ctx, filter)
	if err != nil {
		return models.AccuracyReport{}, err
	}

	type dayKey struct {
		date   civil.Date
		region string
	}
	type cakeKey struct {
		dayKey
		cake string
	}
	sold := map[cakeKey]int{}
	seen := map[dayKey]bool{}
	sf := database.SaleFilter{Since: filter.Since, Until: filter.Until, Region: filter.Region}
	for rec, err := range l.sales.Query(ctx, sf) {
		if err != nil {
			return models.AccuracyReport{}, err
		}
		d := dayKey{rec.Date, rec.Region}
		seen[d] = true
		sold[cakeKey{d, rec.CakeType}] += rec.Quantity
	}

	report := models.AccuracyReport{Comparisons: []models.PredictionComparison{}}
	total := 0
	for _, p := range preds {
		d := dayKey{p.Date, p.Region}
		if !seen[d] {
			continue
		}
		actual := sold[cakeKey{d, p.CakeType}]
		diff := p.Quantity - actual
		report.Comparisons = append(report.Comparisons, models.PredictionComparison{
			Date:      p.Date,
			Region:    p.Region,
			CakeType:  p.CakeType,
			Predicted: p.Quantity,
			Actual:    actual,
			Error:     diff,
		})
		total += int(math.Abs(float64(diff)))
	}
	if n := len(report.Comparisons); n > 0 {
		report.MeanAbsoluteError = float64(total) / float64(n)
	}
	return report, nil
}
