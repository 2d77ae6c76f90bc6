// Package recommender proposes restock quantities from recent sales.
package recommender

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/ledger"
	"github.com/cakeworks/cake-sales/models"
)

const (
	DefaultWindowDays = 30
	DefaultTopN       = 5
)

// markup is the restock buffer applied to observed demand.
var markup = decimal.RequireFromString("1.2")

// Source aggregates recent sales. *ledger.Ledger implements it.
type Source interface {
	AggregateQuantityByCakeType(ctx context.Context, filter ledger.AggregateFilter) ([]models.CakeTypeTotal, error)
}

// Options scope a recommendation. A nil WindowDays or TopN falls back to the default;
// an explicit zero is honored, so TopN 0 asks for no recommendations.
type Options struct {
	Region     string
	WindowDays *int
	TopN       *int
}

// Int returns a pointer to v for filling Options.
func Int(v int) *int { return &v }

type Recommender struct {
	src Source
	now func() time.Time
}

func New(src Source) *Recommender {
	return &Recommender{src: src, now: time.Now}
}

// WithClock replaces the clock used to find today.
func (r *Recommender) WithClock(now func() time.Time) *Recommender {
	r.now = now
	return r
}

// Recommend ranks cake types by units sold in the window and marks each up by 20%.
// The ledger's order is kept; an empty window yields an empty slice.
func (r *Recommender) Recommend(ctx context.Context, opts Options) ([]models.Recommendation, error) {
	window, topN := DefaultWindowDays, DefaultTopN
	if opts.WindowDays != nil {
		window = *opts.WindowDays
	}
	if opts.TopN != nil {
		topN = *opts.TopN
	}
	if window < 0 {
		return nil, apperr.InvalidArgument("window days must not be negative, got %d", window)
	}
	if topN < 0 {
		return nil, apperr.InvalidArgument("top n must not be negative, got %d", topN)
	}

	since := civil.DateOf(r.now()).AddDays(-window)
	totals, err := r.src.AggregateQuantityByCakeType(ctx, ledger.AggregateFilter{Since: &since, Region: opts.Region})
	if err != nil {
		return nil, err
	}
	if len(totals) > topN {
		totals = totals[:topN]
	}

	out := make([]models.Recommendation, 0, len(totals))
	for _, t := range totals {
		out = append(out, models.Recommendation{
			CakeType:            t.CakeType,
			ObservedQuantity:    t.Quantity,
			RecommendedQuantity: Restock(t.Quantity),
		})
	}
	return out, nil
}

// Restock returns observed * 1.2 rounded half away from zero.
func Restock(observed int) int {
	return int(decimal.NewFromInt(int64(observed)).Mul(markup).Round(0).IntPart())
}
