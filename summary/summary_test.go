package summary

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/ledger"
	"github.com/cakeworks/cake-sales/models"
)

func date(y int, m time.Month, d int) civil.Date { return civil.Date{Year: y, Month: m, Day: d} }

func sale(d civil.Date, region, cake string, qty int) models.SaleRecord {
	return models.SaleRecord{Date: d, Region: region, CakeType: cake, Quantity: qty}
}

var (
	regions = []string{"Whitehouse", "Kabachia", "Ngomongo"}
	cakes   = []string{"Heart Cakes", "Coconut Cakes"}
)

func fixture() Snapshot {
	return Snapshot{
		RegionNames:   regions,
		CakeTypeNames: cakes,
		Facts: []models.SaleRecord{
			sale(date(2023, 4, 30), "Whitehouse", "Heart Cakes", 5),    // Sunday, ISO 2023-W17
			sale(date(2023, 5, 1), "Whitehouse", "Coconut Cakes", 7),   // Monday, ISO 2023-W18
			sale(date(2023, 5, 1), "Kabachia", "Heart Cakes", 2),       // Monday, ISO 2023-W18
			sale(date(2023, 5, 1), "Whitehouse", "Heart Cakes", 1),     // same entry as above row
			sale(date(2022, 12, 31), "Kabachia", "Coconut Cakes", 10), // Saturday, ISO 2022-W52
		},
	}
}

func TestEmptyLedgerSkeletons(t *testing.T) {
	agg := New(Snapshot{RegionNames: regions, CakeTypeNames: cakes})
	ctx := context.Background()

	weekly, err := agg.WeeklySummary(ctx)
	require.NoError(t, err)
	assert.NotNil(t, weekly)
	assert.Empty(t, weekly)

	monthly, err := agg.MonthlySummary(ctx)
	require.NoError(t, err)
	assert.NotNil(t, monthly)
	assert.Empty(t, monthly)

	dow, err := agg.DayOfWeekSummary(ctx)
	require.NoError(t, err)
	require.Len(t, dow, 7)
	for i, row := range dow {
		assert.Equal(t, models.WeekdayNames[i], row.Weekday)
		assert.Zero(t, row.Total)
		assert.Equal(t, map[string]int{"Heart Cakes": 0, "Coconut Cakes": 0}, row.Quantities)
	}

	regional, err := agg.RegionalSummary(ctx)
	require.NoError(t, err)
	require.Len(t, regional, 3)
	for _, row := range regional {
		assert.Zero(t, row.Total)
	}

	dash, err := agg.Dashboard(ctx)
	require.NoError(t, err)
	assert.Zero(t, dash.TotalSales)
	assert.Empty(t, dash.BestCakeType)
	assert.Nil(t, dash.FirstSaleDate)
}

func TestWeeklySummary(t *testing.T) {
	weekly, err := New(fixture()).WeeklySummary(context.Background())
	require.NoError(t, err)
	require.Len(t, weekly, 3)

	assert.Equal(t, 2022, weekly[0].ISOYear)
	assert.Equal(t, 52, weekly[0].ISOWeek)
	assert.Equal(t, date(2022, 12, 26), weekly[0].StartDate)
	assert.Equal(t, date(2023, 1, 1), weekly[0].EndDate)
	assert.Equal(t, 10, weekly[0].Total)

	assert.Equal(t, 17, weekly[1].ISOWeek)
	assert.Equal(t, date(2023, 4, 24), weekly[1].StartDate)
	assert.Equal(t, date(2023, 4, 30), weekly[1].EndDate)
	assert.Equal(t, map[string]int{"Heart Cakes": 5, "Coconut Cakes": 0}, weekly[1].Quantities)

	assert.Equal(t, 18, weekly[2].ISOWeek)
	assert.Equal(t, 10, weekly[2].Total)
	assert.Equal(t, map[string]int{"Heart Cakes": 3, "Coconut Cakes": 7}, weekly[2].Quantities)
}

func TestMonthlySummary(t *testing.T) {
	monthly, err := New(fixture()).MonthlySummary(context.Background())
	require.NoError(t, err)
	require.Len(t, monthly, 3)

	assert.Equal(t, 2022, monthly[0].Year)
	assert.Equal(t, time.December, monthly[0].Month)
	assert.Equal(t, time.April, monthly[1].Month)
	assert.Equal(t, 5, monthly[1].Total)
	assert.Equal(t, time.May, monthly[2].Month)
	assert.Equal(t, 10, monthly[2].Total)
}

func TestDayOfWeekSummary(t *testing.T) {
	dow, err := New(fixture()).DayOfWeekSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, dow, 7)

	assert.Equal(t, "Monday", dow[0].Weekday)
	assert.Equal(t, 10, dow[0].Total)
	assert.Equal(t, "Saturday", dow[5].Weekday)
	assert.Equal(t, 10, dow[5].Total)
	assert.Equal(t, "Sunday", dow[6].Weekday)
	assert.Equal(t, 5, dow[6].Total)
	assert.Zero(t, dow[2].Total)
}

func TestRegionalSummaryIsAlphabeticalAndZeroFilled(t *testing.T) {
	regional, err := New(fixture()).RegionalSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, regional, 3)

	assert.Equal(t, "Kabachia", regional[0].Region)
	assert.Equal(t, 12, regional[0].Total)
	assert.Equal(t, "Ngomongo", regional[1].Region)
	assert.Zero(t, regional[1].Total)
	assert.Equal(t, "Whitehouse", regional[2].Region)
	assert.Equal(t, 13, regional[2].Total)
}

func TestRegionalSummaryTotalsMatchLedger(t *testing.T) {
	l := ledger.New(database.NewMemoryStore(), nil)
	ctx := context.Background()
	for _, r := range regions {
		_, err := l.EnsureRegion(ctx, r)
		require.NoError(t, err)
	}
	for _, c := range cakes {
		_, err := l.EnsureCakeType(ctx, c)
		require.NoError(t, err)
	}
	for i, f := range fixture().Facts {
		require.NoError(t, l.AppendSale(ctx, f.Date, f.Region, f.CakeType, f.Quantity+i))
	}

	regional, err := New(l).RegionalSummary(ctx)
	require.NoError(t, err)
	perCake := 0
	for _, row := range regional {
		for _, q := range row.Quantities {
			perCake += q
		}
	}

	want := 0
	for rec, err := range l.AllSales(ctx) {
		require.NoError(t, err)
		want += rec.Quantity
	}
	assert.Equal(t, want, perCake)
}

func TestDailyEntries(t *testing.T) {
	entries := DailyEntries(fixture().Facts, cakes)
	require.Len(t, entries, 4)

	assert.Equal(t, date(2022, 12, 31), entries[0].Date)
	assert.Equal(t, "Saturday", entries[0].Weekday)

	last := entries[3]
	assert.Equal(t, date(2023, 5, 1), last.Date)
	assert.Equal(t, "Whitehouse", last.Region)
	assert.Equal(t, map[string]int{"Heart Cakes": 1, "Coconut Cakes": 7}, last.Quantities)
	assert.Equal(t, 8, last.Total)
}

func TestDashboard(t *testing.T) {
	dash, err := New(fixture()).Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 25, dash.TotalSales)
	assert.Equal(t, "Coconut Cakes", dash.BestCakeType)
	assert.Equal(t, "Whitehouse", dash.BestRegion)
	// Monday and Saturday tie at 10; Monday comes first.
	assert.Equal(t, "Monday", dash.BestWeekday)
	assert.Equal(t, date(2022, 12, 31), *dash.FirstSaleDate)
	assert.Equal(t, date(2023, 5, 1), *dash.LastSaleDate)
	assert.Equal(t, 4, dash.DailyEntryCount)
	assert.Equal(t, []models.CakeTypeTotal{
		{CakeType: "Coconut Cakes", Quantity: 17},
		{CakeType: "Heart Cakes", Quantity: 8},
	}, dash.SalesByCakeType)
}
