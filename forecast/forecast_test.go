package forecast

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/models"
	"github.com/cakeworks/cake-sales/summary"
)

var fixedNow = func() time.Time { return time.Date(2023, 5, 1, 9, 0, 0, 0, time.UTC) }

func april(d int) civil.Date { return civil.Date{Year: 2023, Month: time.April, Day: d} }

// aprilSales builds a month of sales where weekends sell more Queen Cakes.
func aprilSales() summary.Snapshot {
	snap := summary.Snapshot{
		RegionNames:   []string{"Kiamunyi", "Ngomongo"},
		CakeTypeNames: []string{"Queen Cakes", "Star Cakes"},
	}
	for d := 1; d <= 30; d++ {
		date := april(d)
		queen := 10
		if models.WeekdayIndex(date) >= 5 {
			queen = 25
		}
		for _, r := range snap.RegionNames {
			snap.Facts = append(snap.Facts,
				models.SaleRecord{Date: date, Region: r, CakeType: "Queen Cakes", Quantity: queen},
				models.SaleRecord{Date: date, Region: r, CakeType: "Star Cakes", Quantity: d % 4},
			)
		}
	}
	return snap
}

func TestPredictBeforeTrain(t *testing.T) {
	f := New(aprilSales())
	assert.False(t, f.Trained())

	_, err := f.Predict(context.Background(), april(30), "Kiamunyi")
	assert.True(t, errors.Is(err, apperr.ErrNotTrained))
	_, err = f.Diagnostics()
	assert.True(t, errors.Is(err, apperr.ErrNotTrained))
}

func TestTrainOnEmptyLedger(t *testing.T) {
	f := New(summary.Snapshot{RegionNames: []string{"Kiamunyi"}})
	_, err := f.Train(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))
	assert.False(t, f.Trained())
}

func TestTrainReport(t *testing.T) {
	f := New(aprilSales(), WithTrees(10), WithClock(fixedNow))
	report, err := f.Train(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixedNow(), report.TrainedAt)
	assert.Equal(t, 60, report.DailyEntries)
	assert.Equal(t, []string{"Kiamunyi", "Ngomongo"}, report.Regions)
	require.Len(t, report.Models, 2)
	for _, m := range report.Models {
		assert.True(t, m.Evaluated)
		assert.Equal(t, 12, m.TestRows)
		assert.Equal(t, 48, m.TrainRows)
		assert.GreaterOrEqual(t, m.MSE, 0.0)
	}

	diag, err := f.Diagnostics()
	require.NoError(t, err)
	assert.Equal(t, report, diag)
}

func TestPredictLearnsWeekdayPattern(t *testing.T) {
	f := New(aprilSales(), WithTrees(20))
	_, err := f.Train(context.Background())
	require.NoError(t, err)

	saturday, err := f.Predict(context.Background(), civil.Date{Year: 2023, Month: time.May, Day: 6}, "Kiamunyi")
	require.NoError(t, err)
	tuesday, err := f.Predict(context.Background(), civil.Date{Year: 2023, Month: time.May, Day: 2}, "Kiamunyi")
	require.NoError(t, err)

	assert.Equal(t, "Saturday", saturday.Weekday)
	assert.Greater(t, saturday.Quantities["Queen Cakes"], tuesday.Quantities["Queen Cakes"])
}

func TestConstantTargetIsPredictedExactly(t *testing.T) {
	snap := summary.Snapshot{RegionNames: []string{"Whitehouse"}, CakeTypeNames: []string{"Heart Cakes"}}
	for d := 1; d <= 10; d++ {
		snap.Facts = append(snap.Facts, models.SaleRecord{Date: april(d), Region: "Whitehouse", CakeType: "Heart Cakes", Quantity: 7})
	}
	f := New(snap, WithTrees(5))
	report, err := f.Train(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Models[0].MAE)

	got, err := f.Predict(context.Background(), april(20), "Whitehouse")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Heart Cakes": 7}, got.Quantities)
}

func TestSingleEntryIsNotEvaluated(t *testing.T) {
	snap := summary.Snapshot{
		RegionNames: []string{"Whitehouse"},
		Facts:       []models.SaleRecord{{Date: april(3), Region: "Whitehouse", CakeType: "Heart Cakes", Quantity: 4}},
	}
	report, err := New(snap).Train(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Models, 1)
	assert.False(t, report.Models[0].Evaluated)
	assert.Equal(t, 1, report.Models[0].TrainRows)
	assert.Zero(t, report.Models[0].TestRows)
}

func TestPredictArguments(t *testing.T) {
	snap := aprilSales()
	snap.CakeTypeNames = append(snap.CakeTypeNames, "Mobile Cakes")
	f := New(snap, WithTrees(5))
	_, err := f.Train(context.Background())
	require.NoError(t, err)

	_, err = f.Predict(context.Background(), april(30), "Atlantis")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
	_, err = f.Predict(context.Background(), civil.Date{Year: 2023, Month: 2, Day: 30}, "Kiamunyi")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	got, err := f.Predict(context.Background(), april(30), "Ngomongo")
	require.NoError(t, err)
	assert.Len(t, got.Quantities, 3)
	assert.Zero(t, got.Quantities["Mobile Cakes"], "a cake type without history predicts zero")
}

func TestRegionRegisteredAfterTraining(t *testing.T) {
	snap := aprilSales()
	f := New(snap, WithTrees(5))
	_, err := f.Train(context.Background())
	require.NoError(t, err)

	f.src = summary.Snapshot{
		Facts:         snap.Facts,
		RegionNames:   append([]string{"Kabachia"}, snap.RegionNames...),
		CakeTypeNames: snap.CakeTypeNames,
	}
	got, err := f.Predict(context.Background(), april(30), "Kabachia")
	require.NoError(t, err)
	assert.Len(t, got.Quantities, 2)
}

func TestTrainIsDeterministic(t *testing.T) {
	a := New(aprilSales(), WithTrees(15), WithClock(fixedNow))
	b := New(aprilSales(), WithTrees(15), WithClock(fixedNow))
	ra, err := a.Train(context.Background())
	require.NoError(t, err)
	rb, err := b.Train(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ra, rb)

	for d := 1; d <= 31; d += 5 {
		date := civil.Date{Year: 2023, Month: time.May, Day: d}
		pa, err := a.Predict(context.Background(), date, "Ngomongo")
		require.NoError(t, err)
		pb, err := b.Predict(context.Background(), date, "Ngomongo")
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
	}
}

type flakySource struct {
	summary.Snapshot
	fail bool
}

func (s *flakySource) Sales(ctx context.Context) ([]models.SaleRecord, error) {
	if s.fail {
		return nil, errors.New("connection reset")
	}
	return s.Snapshot.Sales(ctx)
}

func TestFailedRetrainKeepsPreviousModels(t *testing.T) {
	src := &flakySource{Snapshot: aprilSales()}
	f := New(src, WithTrees(5))
	_, err := f.Train(context.Background())
	require.NoError(t, err)
	before, err := f.Predict(context.Background(), april(30), "Kiamunyi")
	require.NoError(t, err)

	src.fail = true
	_, err = f.Train(context.Background())
	require.Error(t, err)

	src.fail = false
	after, err := f.Predict(context.Background(), april(30), "Kiamunyi")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTrainAndPredictConcurrently(t *testing.T) {
	f := New(aprilSales(), WithTrees(5))
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := f.Train(ctx)
				assert.NoError(t, err)
			}
		}()
	}
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(region string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				got, err := f.Predict(ctx, april(1+i%30), region)
				if err != nil {
					assert.True(t, errors.Is(err, apperr.ErrNotTrained), err)
					continue
				}
				assert.Len(t, got.Quantities, 2)
				for _, q := range got.Quantities {
					assert.GreaterOrEqual(t, q, 0)
				}
				_, err = f.Diagnostics()
				assert.NoError(t, err)
			}
		}([]string{"Kiamunyi", "Ngomongo"}[w%2])
	}
	wg.Wait()

	assert.True(t, f.Trained())
}

func TestPredictionsAreNonNegativeForRandomTrainingSets(t *testing.T) {
	regions := []string{"Kabachia", "Kiamunyi", "Ngomongo", "Whitehouse"}
	cakes := []string{"Block Cakes", "Coconut Cakes", "Heart Cakes"}

	for run := int64(0); run < 20; run++ {
		rng := rand.New(rand.NewSource(run))
		snap := summary.Snapshot{RegionNames: regions, CakeTypeNames: cakes}
		for i, n := 0, 1+rng.Intn(40); i < n; i++ {
			snap.Facts = append(snap.Facts, models.SaleRecord{
				Date:     civil.Date{Year: 2023, Month: time.Month(1 + rng.Intn(12)), Day: 1 + rng.Intn(28)},
				Region:   regions[rng.Intn(len(regions))],
				CakeType: cakes[rng.Intn(len(cakes))],
				Quantity: rng.Intn(50),
			})
		}
		f := New(snap, WithTrees(8), WithSeed(run))
		_, err := f.Train(context.Background())
		require.NoError(t, err)

		for q := 0; q < 10; q++ {
			date := civil.Date{Year: 2024, Month: time.Month(1 + rng.Intn(12)), Day: 1 + rng.Intn(28)}
			got, err := f.Predict(context.Background(), date, regions[rng.Intn(len(regions))])
			require.NoError(t, err)
			require.Len(t, got.Quantities, len(cakes))
			for cake, qty := range got.Quantities {
				assert.GreaterOrEqual(t, qty, 0, "run %d cake %s", run, cake)
			}
		}
	}
}

func TestTrainTestSplit(t *testing.T) {
	train, test := trainTestSplit(10, 0.2, rand.New(rand.NewSource(42)))
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, append(append([]int{}, train...), test...))

	train, test = trainTestSplit(3, 0.2, rand.New(rand.NewSource(42)))
	assert.Len(t, train, 2)
	assert.Len(t, test, 1)

	train, test = trainTestSplit(1, 0.2, rand.New(rand.NewSource(42)))
	assert.Equal(t, []int{0}, train)
	assert.Empty(t, test)
}

func TestClampRound(t *testing.T) {
	assert.Equal(t, 0, clampRound(-3.7))
	assert.Equal(t, 0, clampRound(0.4))
	assert.Equal(t, 0, clampRound(0.5))
	assert.Equal(t, 2, clampRound(1.5))
	assert.Equal(t, 2, clampRound(2.5))
	assert.Equal(t, 4, clampRound(3.5))
	assert.Equal(t, 12, clampRound(11.6))
}
