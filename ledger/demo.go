package ledger

import (
	"context"
	"math/rand"

	"cloud.google.com/go/civil"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/models"
)

// regionFavourites boosts one cake type per known region.
var regionFavourites = map[string]string{
	"Whitehouse": "Coconut Cakes",
	"Ngomongo":   "Mobile Cakes",
	"Kiamunyi":   "Queen Cakes",
	"Kabachia":   "Sweet Cakes",
}

// DemoSales generates synthetic daily sales for every region between from and to inclusive.
// Quantities start uniform in [10, 50]. Weekends sell 1.5x, Heart Cakes sell 1.3x on Fridays,
// and each region's favourite sells 1.2x. The same seed always yields the same data.
func DemoSales(from, to civil.Date, regions, cakeTypes []string, seed int64) []models.DailySalesEntry {
	rng := rand.New(rand.NewSource(seed))
	var out []models.DailySalesEntry
	for d := from; !d.After(to); d = d.AddDays(1) {
		weekday := models.WeekdayIndex(d)
		for _, region := range regions {
			q := make(map[string]int, len(cakeTypes))
			for _, cake := range cakeTypes {
				q[cake] = 10 + rng.Intn(41)
			}
			if weekday >= 5 {
				for cake := range q {
					q[cake] = int(float64(q[cake]) * 1.5)
				}
			}
			if _, ok := q["Heart Cakes"]; ok && weekday == 4 {
				q["Heart Cakes"] = int(float64(q["Heart Cakes"]) * 1.3)
			}
			if fav, ok := regionFavourites[region]; ok {
				if _, sold := q[fav]; sold {
					q[fav] = int(float64(q[fav]) * 1.2)
				}
			}

			total := 0
			for _, v := range q {
				total += v
			}
			out = append(out, models.DailySalesEntry{
				Date:       d,
				Weekday:    models.WeekdayName(d),
				Region:     region,
				Quantities: q,
				Total:      total,
			})
		}
	}
	return out
}

// SeedDemo appends DemoSales for the registered catalog and returns the number of rows written.
func (l *Ledger) SeedDemo(ctx context.Context, from, to civil.Date, seed int64) (int, error) {
	if to.Before(from) {
		return 0, apperr.InvalidArgument("demo range ends %s before it starts %s", to, from)
	}
	regions, err := l.Regions(ctx)
	if err != nil {
		return 0, err
	}
	cakes, err := l.CakeTypes(ctx)
	if err != nil {
		return 0, err
	}
	if len(regions) == 0 || len(cakes) == 0 {
		return 0, apperr.InsufficientData("register regions and cake types before seeding")
	}

	rows := 0
	for _, e := range DemoSales(from, to, regions, cakes, seed) {
		n, err := l.AppendDailySales(ctx, e.Date, e.Region, e.Quantities)
		if err != nil {
			return rows, err
		}
		rows += n
	}
	l.log.Info("demo sales seeded", "from", from.String(), "to", to.String(), "rows", rows)
	return rows, nil
}
