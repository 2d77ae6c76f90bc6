// Package summary derives weekly, monthly, day-of-week and regional views from the sales ledger.
//
// Summaries are recomputed from the full fact set on every call; nothing is cached.
package summary

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"

	"github.com/cakeworks/cake-sales/models"
)

// Source provides the facts and catalog a summary is computed from. *ledger.Ledger implements it.
type Source interface {
	Sales(ctx context.Context) ([]models.SaleRecord, error)
	Regions(ctx context.Context) ([]string, error)
	CakeTypes(ctx context.Context) ([]string, error)
}

// Snapshot is a fixed Source, handy for tests and offline reports.
type Snapshot struct {
	Facts         []models.SaleRecord
	RegionNames   []string
	CakeTypeNames []string
}

func (s Snapshot) Sales(context.Context) ([]models.SaleRecord, error) { return s.Facts, nil }
func (s Snapshot) Regions(context.Context) ([]string, error)          { return s.RegionNames, nil }
func (s Snapshot) CakeTypes(context.Context) ([]string, error)        { return s.CakeTypeNames, nil }

type Aggregator struct {
	src Source
}

func New(src Source) *Aggregator {
	return &Aggregator{src: src}
}

type dataset struct {
	sales     []models.SaleRecord
	cakeTypes []string
	regions   []string
}

func (a *Aggregator) load(ctx context.Context) (dataset, error) {
	sales, err := a.src.Sales(ctx)
	if err != nil {
		return dataset{}, fmt.Errorf("load sales: %w", err)
	}
	regions, err := a.src.Regions(ctx)
	if err != nil {
		return dataset{}, fmt.Errorf("load regions: %w", err)
	}
	cakes, err := a.src.CakeTypes(ctx)
	if err != nil {
		return dataset{}, fmt.Errorf("load cake types: %w", err)
	}
	seenRegion := map[string]bool{}
	seenCake := map[string]bool{}
	for _, r := range regions {
		seenRegion[r] = true
	}
	for _, c := range cakes {
		seenCake[c] = true
	}
	regions = append([]string(nil), regions...)
	cakes = append([]string(nil), cakes...)
	for _, s := range sales {
		if !seenRegion[s.Region] {
			seenRegion[s.Region] = true
			regions = append(regions, s.Region)
		}
		if !seenCake[s.CakeType] {
			seenCake[s.CakeType] = true
			cakes = append(cakes, s.CakeType)
		}
	}
	sort.Strings(regions)
	sort.Strings(cakes)
	return dataset{sales: sales, cakeTypes: cakes, regions: regions}, nil
}

func zeroQuantities(cakes []string) map[string]int {
	m := make(map[string]int, len(cakes))
	for _, c := range cakes {
		m[c] = 0
	}
	return m
}

// DailyEntries folds facts into one row per (date, region), sorted by date then region.
// Every row carries a quantity for each of cakeTypes.
func DailyEntries(sales []models.SaleRecord, cakeTypes []string) []models.DailySalesEntry {
	type key struct {
		date   civil.Date
		region string
	}
	idx := map[key]int{}
	out := []models.DailySalesEntry{}
	for _, s := range sales {
		k := key{s.Date, s.Region}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, models.DailySalesEntry{
				Date:       s.Date,
				Weekday:    models.WeekdayName(s.Date),
				Region:     s.Region,
				Quantities: zeroQuantities(cakeTypes),
			})
		}
		out[i].Quantities[s.CakeType] += s.Quantity
		out[i].Total += s.Quantity
	}
	sort.Slice(out, func(i, j int) bool {
		if c := models.CompareDates(out[i].Date, out[j].Date); c != 0 {
			return c < 0
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// WeeklySummary groups sales by ISO week, oldest first.
func (a *Aggregator) WeeklySummary(ctx context.Context) ([]models.WeeklySummary, error) {
	ds, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	type key struct{ year, week int }
	groups := map[key]*models.WeeklySummary{}
	for _, s := range ds.sales {
		y, w := models.ISOWeek(s.Date)
		g, ok := groups[key{y, w}]
		if !ok {
			start, end := models.ISOWeekBounds(s.Date)
			g = &models.WeeklySummary{ISOYear: y, ISOWeek: w, StartDate: start, EndDate: end, Quantities: zeroQuantities(ds.cakeTypes)}
			groups[key{y, w}] = g
		}
		g.Quantities[s.CakeType] += s.Quantity
		g.Total += s.Quantity
	}
	out := make([]models.WeeklySummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ISOYear != out[j].ISOYear {
			return out[i].ISOYear < out[j].ISOYear
		}
		return out[i].ISOWeek < out[j].ISOWeek
	})
	return out, nil
}

// MonthlySummary groups sales by calendar month, oldest first.
func (a *Aggregator) MonthlySummary(ctx context.Context) ([]models.MonthlySummary, error) {
	ds, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	type key struct {
		year  int
		month int
	}
	groups := map[key]*models.MonthlySummary{}
	for _, s := range ds.sales {
		k := key{s.Date.Year, int(s.Date.Month)}
		g, ok := groups[k]
		if !ok {
			g = &models.MonthlySummary{Year: s.Date.Year, Month: s.Date.Month, Quantities: zeroQuantities(ds.cakeTypes)}
			groups[k] = g
		}
		g.Quantities[s.CakeType] += s.Quantity
		g.Total += s.Quantity
	}
	out := make([]models.MonthlySummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// DayOfWeekSummary always returns seven rows, Monday to Sunday.
func (a *Aggregator) DayOfWeekSummary(ctx context.Context) ([]models.DayOfWeekSummary, error) {
	ds, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.DayOfWeekSummary, len(models.WeekdayNames))
	for i, name := range models.WeekdayNames {
		out[i] = models.DayOfWeekSummary{Weekday: name, Quantities: zeroQuantities(ds.cakeTypes)}
	}
	for _, s := range ds.sales {
		row := &out[models.WeekdayIndex(s.Date)]
		row.Quantities[s.CakeType] += s.Quantity
		row.Total += s.Quantity
	}
	return out, nil
}

// RegionalSummary returns one row per known region in alphabetical order.
func (a *Aggregator) RegionalSummary(ctx context.Context) ([]models.RegionalSummary, error) {
	ds, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.RegionalSummary, len(ds.regions))
	idx := make(map[string]int, len(ds.regions))
	for i, r := range ds.regions {
		out[i] = models.RegionalSummary{Region: r, Quantities: zeroQuantities(ds.cakeTypes)}
		idx[r] = i
	}
	for _, s := range ds.sales {
		row := &out[idx[s.Region]]
		row.Quantities[s.CakeType] += s.Quantity
		row.Total += s.Quantity
	}
	return out, nil
}

// Dashboard computes the headline metrics.
func (a *Aggregator) Dashboard(ctx context.Context) (models.Dashboard, error) {
	ds, err := a.load(ctx)
	if err != nil {
		return models.Dashboard{}, err
	}
	d := models.Dashboard{
		SalesByCakeType: []models.CakeTypeTotal{},
		RegionCount:     len(ds.regions),
		CakeTypeCount:   len(ds.cakeTypes),
	}

	byCake := zeroQuantities(ds.cakeTypes)
	byRegion := map[string]int{}
	var byWeekday [7]int
	var first, last civil.Date
	for i, s := range ds.sales {
		d.TotalSales += s.Quantity
		byCake[s.CakeType] += s.Quantity
		byRegion[s.Region] += s.Quantity
		byWeekday[models.WeekdayIndex(s.Date)] += s.Quantity
		if i == 0 || s.Date.Before(first) {
			first = s.Date
		}
		if i == 0 || s.Date.After(last) {
			last = s.Date
		}
	}
	for _, c := range ds.cakeTypes {
		d.SalesByCakeType = append(d.SalesByCakeType, models.CakeTypeTotal{CakeType: c, Quantity: byCake[c]})
	}
	if len(ds.sales) == 0 {
		return d, nil
	}

	d.FirstSaleDate, d.LastSaleDate = &first, &last
	d.DailyEntryCount = len(DailyEntries(ds.sales, nil))
	d.BestCakeType = best(ds.cakeTypes, byCake)
	d.BestRegion = best(ds.regions, byRegion)
	bestDay := 0
	for i := 1; i < len(byWeekday); i++ {
		if byWeekday[i] > byWeekday[bestDay] {
			bestDay = i
		}
	}
	d.BestWeekday = models.WeekdayNames[bestDay]
	return d, nil
}

// best returns the name with the largest total; names are visited in order so the first wins ties.
func best(names []string, totals map[string]int) string {
	winner := ""
	for _, n := range names {
		if winner == "" || totals[n] > totals[winner] {
			winner = n
		}
	}
	return winner
}
