// Package storetest holds the behaviour every database.Store implementation must show.
package storetest

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
	"github.com/cakeworks/cake-sales/models"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) database.Store

// Run exercises the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EnsureIsIdempotent", func(t *testing.T) { testEnsureIsIdempotent(t, newStore(t)) })
	t.Run("FindMissing", func(t *testing.T) { testFindMissing(t, newStore(t)) })
	t.Run("ListOrderedByName", func(t *testing.T) { testListOrderedByName(t, newStore(t)) })
	t.Run("InsertAndQuerySales", func(t *testing.T) { testInsertAndQuerySales(t, newStore(t)) })
	t.Run("InsertSalesIsAtomic", func(t *testing.T) { testInsertSalesIsAtomic(t, newStore(t)) })
	t.Run("InsertSalesOnceSkipsReplays", func(t *testing.T) { testInsertSalesOnce(t, newStore(t)) })
	t.Run("Predictions", func(t *testing.T) { testPredictions(t, newStore(t)) })
}

func day(d int) civil.Date { return civil.Date{Year: 2023, Month: time.April, Day: d} }

func testEnsureIsIdempotent(t *testing.T, s database.Store) {
	ctx := context.Background()
	first, err := s.EnsureRegion(ctx, "Whitehouse")
	require.NoError(t, err)
	second, err := s.EnsureRegion(ctx, "Whitehouse")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	regions, err := s.ListRegions(ctx)
	require.NoError(t, err)
	assert.Len(t, regions, 1)

	c1, err := s.EnsureCakeType(ctx, "Heart Cakes")
	require.NoError(t, err)
	c2, err := s.EnsureCakeType(ctx, "Heart Cakes")
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	found, err := s.FindCakeType(ctx, "Heart Cakes")
	require.NoError(t, err)
	assert.Equal(t, c1, found.ID)
}

func testFindMissing(t *testing.T, s database.Store) {
	ctx := context.Background()
	_, err := s.FindRegion(ctx, "Atlantis")
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
	_, err = s.FindCakeType(ctx, "Ghost Cakes")
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
}

func testListOrderedByName(t *testing.T, s database.Store) {
	ctx := context.Background()
	for _, name := range []string{"Ngomongo", "Kabachia", "Whitehouse", "Kiamunyi"} {
		_, err := s.EnsureRegion(ctx, name)
		require.NoError(t, err)
	}
	regions, err := s.ListRegions(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(regions))
	for _, r := range regions {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Kabachia", "Kiamunyi", "Ngomongo", "Whitehouse"}, names)
}

func seed(t *testing.T, s database.Store) (models.RegionID, models.RegionID, models.CakeTypeID, models.CakeTypeID) {
	ctx := context.Background()
	r1, err := s.EnsureRegion(ctx, "Kiamunyi")
	require.NoError(t, err)
	r2, err := s.EnsureRegion(ctx, "Ngomongo")
	require.NoError(t, err)
	c1, err := s.EnsureCakeType(ctx, "Queen Cakes")
	require.NoError(t, err)
	c2, err := s.EnsureCakeType(ctx, "Star Cakes")
	require.NoError(t, err)
	return r1, r2, c1, c2
}

func testInsertAndQuerySales(t *testing.T, s database.Store) {
	ctx := context.Background()
	r1, r2, c1, c2 := seed(t, s)

	rows := []models.SaleRow{
		{Date: day(1), RegionID: r1, CakeTypeID: c1, Quantity: 10},
		{Date: day(2), RegionID: r1, CakeTypeID: c2, Quantity: 4},
		{Date: day(3), RegionID: r2, CakeTypeID: c1, Quantity: 0},
	}
	require.NoError(t, s.InsertSales(ctx, rows))

	all, err := s.QuerySales(ctx, database.SaleFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.SaleRecord{
		{Date: day(1), Region: "Kiamunyi", CakeType: "Queen Cakes", Quantity: 10},
		{Date: day(2), Region: "Kiamunyi", CakeType: "Star Cakes", Quantity: 4},
		{Date: day(3), Region: "Ngomongo", CakeType: "Queen Cakes", Quantity: 0},
	}, all)

	since := day(2)
	recent, err := s.QuerySales(ctx, database.SaleFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	byRegion, err := s.QuerySales(ctx, database.SaleFilter{Region: "Ngomongo"})
	require.NoError(t, err)
	assert.Len(t, byRegion, 1)

	byCake, err := s.QuerySales(ctx, database.SaleFilter{CakeType: "Queen Cakes", Until: &since})
	require.NoError(t, err)
	assert.Len(t, byCake, 1)
}

func testInsertSalesIsAtomic(t *testing.T, s database.Store) {
	ctx := context.Background()
	r1, _, c1, _ := seed(t, s)

	err := s.InsertSales(ctx, []models.SaleRow{
		{Date: day(1), RegionID: r1, CakeTypeID: c1, Quantity: 3},
		{Date: day(1), RegionID: r1 + 1000, CakeTypeID: c1, Quantity: 3},
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)

	all, err := s.QuerySales(ctx, database.SaleFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testInsertSalesOnce(t *testing.T, s database.Store) {
	ctx := context.Background()
	r1, _, c1, c2 := seed(t, s)
	key := database.SyncKey{DeviceID: "till-1", LocalID: "42"}
	rows := []models.SaleRow{
		{Date: day(5), RegionID: r1, CakeTypeID: c1, Quantity: 6},
		{Date: day(5), RegionID: r1, CakeTypeID: c2, Quantity: 1},
	}

	n, applied, err := s.InsertSalesOnce(ctx, key, rows)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 2, n)

	n, applied, err = s.InsertSalesOnce(ctx, key, rows[:1])
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 2, n, "a replay reports the first application")

	other := database.SyncKey{DeviceID: "till-2", LocalID: "42"}
	_, applied, err = s.InsertSalesOnce(ctx, other, rows[:1])
	require.NoError(t, err)
	assert.True(t, applied, "local ids are scoped per device")

	all, err := s.QuerySales(ctx, database.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bad := database.SyncKey{DeviceID: "till-1", LocalID: "43"}
	_, _, err = s.InsertSalesOnce(ctx, bad, []models.SaleRow{{Date: day(5), RegionID: r1 + 1000, CakeTypeID: c1, Quantity: 1}})
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
	_, applied, err = s.InsertSalesOnce(ctx, bad, rows[:1])
	require.NoError(t, err)
	assert.True(t, applied, "a failed write does not claim the key")
}

func testPredictions(t *testing.T, s database.Store) {
	ctx := context.Background()
	r1, r2, c1, c2 := seed(t, s)
	batch := uuid.New()
	created := time.Date(2023, 4, 30, 18, 0, 0, 0, time.UTC)

	rows := []models.PredictionRow{
		{BatchID: batch, Date: day(30), Weekday: "Sunday", RegionID: r1, CakeTypeID: c1, Quantity: 12, CreatedAt: created},
		{BatchID: batch, Date: day(30), Weekday: "Sunday", RegionID: r1, CakeTypeID: c2, Quantity: 7, CreatedAt: created},
		{BatchID: uuid.New(), Date: day(29), Weekday: "Saturday", RegionID: r2, CakeTypeID: c1, Quantity: 1, CreatedAt: created},
	}
	require.NoError(t, s.InsertPredictions(ctx, rows))

	got, err := s.QueryPredictions(ctx, database.PredictionFilter{BatchID: batch})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.Equal(t, "Kiamunyi", p.Region)
		assert.Equal(t, "Sunday", p.Weekday)
		assert.Equal(t, day(30), p.Date)
		assert.True(t, created.Equal(p.CreatedAt))
	}

	byRegion, err := s.QueryPredictions(ctx, database.PredictionFilter{Region: "Ngomongo"})
	require.NoError(t, err)
	assert.Len(t, byRegion, 1)
}
