package predictlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/ledger"
)

func day(d int) civil.Date { return civil.Date{Year: 2023, Month: time.April, Day: d} }

func setup(t *testing.T) (*Log, *ledger.Ledger) {
	t.Helper()
	store := database.NewMemoryStore()
	l := ledger.New(store, nil)
	ctx := context.Background()
	for _, r := range []string{"Kabachia", "Whitehouse"} {
		_, err := l.EnsureRegion(ctx, r)
		require.NoError(t, err)
	}
	for _, c := range []string{"Block Cakes", "Heart Cakes"} {
		_, err := l.EnsureCakeType(ctx, c)
		require.NoError(t, err)
	}
	return New(store, l, nil), l
}

func TestRecordPrediction(t *testing.T) {
	log, _ := setup(t)
	ctx := context.Background()

	batch, err := log.RecordPrediction(ctx, day(8), "Kabachia", map[string]int{"Heart Cakes": 9, "Block Cakes": 4})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, batch)

	recs, err := log.Predictions(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Block Cakes", recs[0].CakeType)
	assert.Equal(t, 4, recs[0].Quantity)
	assert.Equal(t, "Saturday", recs[0].Weekday)
	assert.Equal(t, batch, recs[1].BatchID)
}

func TestRecordPredictionIsNotIdempotent(t *testing.T) {
	log, _ := setup(t)
	ctx := context.Background()
	preds := map[string]int{"Heart Cakes": 9}

	first, err := log.RecordPrediction(ctx, day(8), "Kabachia", preds)
	require.NoError(t, err)
	second, err := log.RecordPrediction(ctx, day(8), "Kabachia", preds)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	recs, err := log.Predictions(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, recs, 2, "re-recording appends a second batch")

	only, err := log.Predictions(ctx, Filter{BatchID: second})
	require.NoError(t, err)
	assert.Len(t, only, 1)
}

func TestRecordPredictionRejectsBadInput(t *testing.T) {
	log, _ := setup(t)
	ctx := context.Background()

	cases := map[string]struct {
		date   civil.Date
		region string
		preds  map[string]int
	}{
		"unknown region":    {day(8), "Atlantis", map[string]int{"Heart Cakes": 1}},
		"unknown cake type": {day(8), "Kabachia", map[string]int{"Mud Cakes": 1}},
		"negative quantity": {day(8), "Kabachia", map[string]int{"Heart Cakes": -1}},
		"no predictions":    {day(8), "Kabachia", nil},
		"invalid date":      {civil.Date{Year: 2023, Month: 4, Day: 31}, "Kabachia", map[string]int{"Heart Cakes": 1}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := log.RecordPrediction(ctx, tc.date, tc.region, tc.preds)
			assert.True(t, errors.Is(err, apperr.ErrInvalidArgument), "got %v", err)
		})
	}

	recs, err := log.Predictions(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCompareWithActuals(t *testing.T) {
	log, l := setup(t)
	ctx := context.Background()

	_, err := log.RecordPrediction(ctx, day(8), "Kabachia", map[string]int{"Heart Cakes": 9, "Block Cakes": 4})
	require.NoError(t, err)
	_, err = log.RecordPrediction(ctx, day(9), "Kabachia", map[string]int{"Heart Cakes": 5})
	require.NoError(t, err)

	require.NoError(t, l.AppendSale(ctx, day(8), "Kabachia", "Heart Cakes", 6))
	require.NoError(t, l.AppendSale(ctx, day(8), "Kabachia", "Heart Cakes", 1))
	require.NoError(t, l.AppendSale(ctx, day(8), "Whitehouse", "Block Cakes", 50))

	report, err := log.CompareWithActuals(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, report.Comparisons, 2, "day 9 has no sales yet")

	assert.Equal(t, "Block Cakes", report.Comparisons[0].CakeType)
	assert.Equal(t, 0, report.Comparisons[0].Actual)
	assert.Equal(t, 4, report.Comparisons[0].Error)
	assert.Equal(t, 7, report.Comparisons[1].Actual)
	assert.Equal(t, 2, report.Comparisons[1].Error)
	assert.InDelta(t, 3.0, report.MeanAbsoluteError, 1e-9)
}

func TestCompareWithActualsEmpty(t *testing.T) {
	log, _ := setup(t)
	report, err := log.CompareWithActuals(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, report.Comparisons)
	assert.Zero(t, report.MeanAbsoluteError)
}
