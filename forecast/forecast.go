// Package forecast trains one random forest per cake type on calendar and region features and
// predicts next-day quantities.
package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/models"
	"github.com/cakeworks/cake-sales/summary"
)

const (
	DefaultSeed  int64 = 42
	DefaultTrees       = 100
	testFraction       = 0.2
)

// Source is what the forecaster reads. *ledger.Ledger implements it.
type Source interface {
	Sales(ctx context.Context) ([]models.SaleRecord, error)
	Regions(ctx context.Context) ([]string, error)
	CakeTypes(ctx context.Context) ([]string, error)
}

type model struct {
	forest  *forest
	metrics models.ModelMetrics
}

// registry is one complete, immutable set of fitted models.
type registry struct {
	regions []string // one-hot layout, alphabetical
	models  map[string]model
	report  models.TrainingReport
}

type Forecaster struct {
	src      Source
	log      *logger.Logger
	seed     int64
	params   forestParams
	now      func() time.Time
	registry atomic.Pointer[registry]
}

type Option func(*Forecaster)

func WithSeed(seed int64) Option { return func(f *Forecaster) { f.seed = seed } }

func WithTrees(n int) Option {
	return func(f *Forecaster) {
		if n > 0 {
			f.params.trees = n
		}
	}
}

// WithMaxDepth limits tree depth; 0 grows trees until leaves are pure.
func WithMaxDepth(d int) Option { return func(f *Forecaster) { f.params.maxDepth = d } }

func WithMinSamplesLeaf(n int) Option {
	return func(f *Forecaster) {
		if n > 0 {
			f.params.minSamplesLeaf = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(f *Forecaster) {
		if l != nil {
			f.log = l
		}
	}
}

func WithClock(now func() time.Time) Option { return func(f *Forecaster) { f.now = now } }

func New(src Source, opts ...Option) *Forecaster {
	f := &Forecaster{
		src:    src,
		log:    logger.NewNop(),
		seed:   DefaultSeed,
		params: forestParams{trees: DefaultTrees, minSamplesLeaf: 1},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "forecast")
	return f
}

// Trained reports whether a model set has been published.
func (f *Forecaster) Trained() bool {
	return f.registry.Load() != nil
}

func features(date civil.Date, region string, regions []string) []float64 {
	x := make([]float64, 3+len(regions))
	x[0] = float64(models.WeekdayIndex(date))
	x[1] = float64(date.Month)
	x[2] = float64(date.Day)
	for i, r := range regions {
		if r == region {
			x[3+i] = 1
		}
	}
	return x
}

// Train fits a fresh model per cake type and publishes the whole set at once.
// A failed run leaves the previously published models in place.
func (f *Forecaster) Train(ctx context.Context) (models.TrainingReport, error) {
	sales, err := f.src.Sales(ctx)
	if err != nil {
		return models.TrainingReport{}, fmt.Errorf("load sales: %w", err)
	}
	if len(sales) == 0 {
		return models.TrainingReport{}, apperr.InsufficientData("cannot train on an empty ledger")
	}
	regions, err := f.src.Regions(ctx)
	if err != nil {
		return models.TrainingReport{}, fmt.Errorf("load regions: %w", err)
	}
	regions = unionSorted(regions, sales, func(s models.SaleRecord) string { return s.Region })
	cakes := unionSorted(nil, sales, func(s models.SaleRecord) string { return s.CakeType })

	entries := summary.DailyEntries(sales, cakes)
	x := make([][]float64, len(entries))
	for i, e := range entries {
		x[i] = features(e.Date, e.Region, regions)
	}

	split := rand.New(rand.NewSource(f.seed))
	trainIdx, testIdx := trainTestSplit(len(entries), testFraction, split)

	reg := &registry{regions: regions, models: make(map[string]model, len(cakes))}
	for _, cake := range cakes {
		if err := ctx.Err(); err != nil {
			return models.TrainingReport{}, err
		}
		y := make([]float64, len(entries))
		for i, e := range entries {
			y[i] = float64(e.Quantities[cake])
		}
		m := f.fit(x, y, trainIdx, testIdx)
		m.metrics.CakeType = cake
		reg.models[cake] = m
		reg.report.Models = append(reg.report.Models, m.metrics)
		f.log.Debug("model fitted", "cake_type", cake, "mse", m.metrics.MSE, "mae", m.metrics.MAE)
	}
	reg.report.TrainedAt = f.now().UTC()
	reg.report.DailyEntries = len(entries)
	reg.report.Regions = regions

	f.registry.Store(reg)
	f.log.Info("forecast models trained", "cake_types", len(cakes), "daily_entries", len(entries))
	return reg.report, nil
}

func (f *Forecaster) fit(x [][]float64, y []float64, trainIdx, testIdx []int) model {
	tx := make([][]float64, len(trainIdx))
	ty := make([]float64, len(trainIdx))
	for k, i := range trainIdx {
		tx[k], ty[k] = x[i], y[i]
	}
	fr := fitForest(tx, ty, f.params, rand.New(rand.NewSource(f.seed)))

	m := model{forest: fr, metrics: models.ModelMetrics{TrainRows: len(trainIdx), TestRows: len(testIdx)}}
	if len(testIdx) == 0 {
		return m
	}
	var se, ae float64
	for _, i := range testIdx {
		d := fr.predict(x[i]) - y[i]
		se += d * d
		ae += math.Abs(d)
	}
	m.metrics.MSE = se / float64(len(testIdx))
	m.metrics.MAE = ae / float64(len(testIdx))
	m.metrics.Evaluated = true
	return m
}

// Predict forecasts every known cake type for (date, region).
// Raw output is clamped at zero and rounded; cake types without a model predict zero.
func (f *Forecaster) Predict(ctx context.Context, date civil.Date, region string) (models.Forecast, error) {
	reg := f.registry.Load()
	if reg == nil {
		return models.Forecast{}, apperr.NotTrained("train the forecaster before predicting")
	}
	if !date.IsValid() {
		return models.Forecast{}, apperr.InvalidArgument("invalid date %v", date)
	}
	regions, err := f.src.Regions(ctx)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("load regions: %w", err)
	}
	if !contains(regions, region) {
		return models.Forecast{}, apperr.InvalidArgument("unknown region %q", region)
	}
	cakes, err := f.src.CakeTypes(ctx)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("load cake types: %w", err)
	}

	x := features(date, region, reg.regions)
	out := models.Forecast{
		Date:       date,
		Weekday:    models.WeekdayName(date),
		Region:     region,
		Quantities: make(map[string]int, len(cakes)),
	}
	for _, cake := range cakes {
		m, ok := reg.models[cake]
		if !ok {
			out.Quantities[cake] = 0
			continue
		}
		out.Quantities[cake] = clampRound(m.forest.predict(x))
	}
	return out, nil
}

// Diagnostics returns the report of the live model set.
func (f *Forecaster) Diagnostics() (models.TrainingReport, error) {
	reg := f.registry.Load()
	if reg == nil {
		return models.TrainingReport{}, apperr.NotTrained("no model has been trained yet")
	}
	return reg.report, nil
}

// clampRound rounds halves to even, so a forest average of exactly 2.5 gives 2.
func clampRound(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return int(math.RoundToEven(v))
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func unionSorted(known []string, sales []models.SaleRecord, key func(models.SaleRecord) string) []string {
	seen := make(map[string]bool, len(known))
	out := make([]string, 0, len(known))
	for _, k := range known {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, s := range sales {
		if k := key(s); !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
