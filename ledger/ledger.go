// Package ledger is the append-only record of cake sales every report and forecast derives from.
package ledger

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/models"
)

// Ledger appends and reads sales facts through a store.
//
// Facts are never updated or deleted; corrections are made by appending offsetting records.
// Appending the same (date, region, cake type) twice accumulates.
type Ledger struct {
	store database.Store
	log   *logger.Logger
}

func New(store database.Store, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewNop()
	}
	return &Ledger{store: store, log: log.With("component", "ledger")}
}

// Sales is a lazy sequence of facts. Each range over it queries the store again.
type Sales = iter.Seq2[models.SaleRecord, error]

// AggregateFilter restricts AggregateQuantityByCakeType.
type AggregateFilter struct {
	Since  *civil.Date
	Region string
}

func cleanName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.InvalidArgument("%s name must not be empty", kind)
	}
	return name, nil
}

// EnsureRegion registers a region, or returns the existing id when the name is already taken.
func (l *Ledger) EnsureRegion(ctx context.Context, name string) (models.RegionID, error) {
	name, err := cleanName("region", name)
	if err != nil {
		return 0, err
	}
	id, err := l.store.EnsureRegion(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("ensure region %q: %w", name, err)
	}
	l.log.Debug("region ensured", "region", name, "id", id)
	return id, nil
}

// EnsureCakeType registers a cake type, or returns the existing id when the name is already taken.
func (l *Ledger) EnsureCakeType(ctx context.Context, name string) (models.CakeTypeID, error) {
	name, err := cleanName("cake type", name)
	if err != nil {
		return 0, err
	}
	id, err := l.store.EnsureCakeType(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("ensure cake type %q: %w", name, err)
	}
	l.log.Debug("cake type ensured", "cake_type", name, "id", id)
	return id, nil
}

func (l *Ledger) LookupRegion(ctx context.Context, name string) (models.Region, error) {
	return l.store.FindRegion(ctx, strings.TrimSpace(name))
}

func (l *Ledger) LookupCakeType(ctx context.Context, name string) (models.CakeType, error) {
	return l.store.FindCakeType(ctx, strings.TrimSpace(name))
}

// AppendSale records one fact.
func (l *Ledger) AppendSale(ctx context.Context, date civil.Date, region, cakeType string, quantity int) error {
	if quantity < 0 {
		return apperr.InvalidArgument("quantity must not be negative, got %d", quantity)
	}
	row, err := l.resolve(ctx, date, region, cakeType)
	if err != nil {
		return err
	}
	row.Quantity = quantity
	if err := l.store.InsertSales(ctx, []models.SaleRow{row}); err != nil {
		return fmt.Errorf("append sale: %w", err)
	}
	l.log.Info("sale appended", "date", date.String(), "region", region, "cake_type", cakeType, "quantity", quantity)
	return nil
}

// AppendDailySales records the quantities of one (date, region) in a single all-or-nothing write.
func (l *Ledger) AppendDailySales(ctx context.Context, date civil.Date, region string, quantities map[string]int) (int, error) {
	rows, err := l.dailyRows(ctx, date, region, quantities)
	if err != nil {
		return 0, err
	}
	if err := l.store.InsertSales(ctx, rows); err != nil {
		return 0, fmt.Errorf("append daily sales: %w", err)
	}
	l.log.Info("daily sales appended", "date", date.String(), "region", region, "rows", len(rows))
	return len(rows), nil
}

// AppendDailySalesOnce is AppendDailySales for uploads that may be retried. The first call for
// key writes the rows; later calls write nothing and return the first call's row count with
// replayed set.
func (l *Ledger) AppendDailySalesOnce(ctx context.Context, key database.SyncKey, date civil.Date, region string, quantities map[string]int) (n int, replayed bool, err error) {
	if strings.TrimSpace(key.LocalID) == "" {
		return 0, false, apperr.InvalidArgument("local id is required")
	}
	rows, err := l.dailyRows(ctx, date, region, quantities)
	if err != nil {
		return 0, false, err
	}
	n, applied, err := l.store.InsertSalesOnce(ctx, key, rows)
	if err != nil {
		return 0, false, fmt.Errorf("append synced daily sales: %w", err)
	}
	if !applied {
		l.log.Info("sync entry already applied", "device_id", key.DeviceID, "local_id", key.LocalID, "rows", n)
		return n, true, nil
	}
	l.log.Info("daily sales appended", "date", date.String(), "region", region, "rows", n, "local_id", key.LocalID)
	return n, false, nil
}

func (l *Ledger) dailyRows(ctx context.Context, date civil.Date, region string, quantities map[string]int) ([]models.SaleRow, error) {
	if len(quantities) == 0 {
		return nil, apperr.InvalidArgument("no quantities given for %s in %s", date, region)
	}
	cakes := make([]string, 0, len(quantities))
	for cake, qty := range quantities {
		if qty < 0 {
			return nil, apperr.InvalidArgument("quantity for %q must not be negative, got %d", cake, qty)
		}
		cakes = append(cakes, cake)
	}
	sort.Strings(cakes)

	rows := make([]models.SaleRow, 0, len(cakes))
	for _, cake := range cakes {
		row, err := l.resolve(ctx, date, region, cake)
		if err != nil {
			return nil, err
		}
		row.Quantity = quantities[cake]
		rows = append(rows, row)
	}
	return rows, nil
}

func (l *Ledger) resolve(ctx context.Context, date civil.Date, region, cakeType string) (models.SaleRow, error) {
	if !date.IsValid() {
		return models.SaleRow{}, apperr.InvalidArgument("invalid sale date %v", date)
	}
	r, err := l.LookupRegion(ctx, region)
	if err != nil {
		return models.SaleRow{}, err
	}
	c, err := l.LookupCakeType(ctx, cakeType)
	if err != nil {
		return models.SaleRow{}, err
	}
	return models.SaleRow{Date: date, RegionID: r.ID, CakeTypeID: c.ID}, nil
}

// AllSales yields every fact in the ledger.
func (l *Ledger) AllSales(ctx context.Context) Sales {
	return l.sales(ctx, database.SaleFilter{}, nil)
}

// SalesSince yields the facts dated on or after since.
func (l *Ledger) SalesSince(ctx context.Context, since civil.Date) Sales {
	return l.sales(ctx, database.SaleFilter{Since: &since}, nil)
}

// SalesForRegion yields the facts of one region. An unknown region yields a NotFound error.
func (l *Ledger) SalesForRegion(ctx context.Context, region string) Sales {
	return l.sales(ctx, database.SaleFilter{Region: region}, func() error {
		_, err := l.LookupRegion(ctx, region)
		return err
	})
}

// SalesForCakeType yields the facts of one cake type. An unknown cake type yields a NotFound error.
func (l *Ledger) SalesForCakeType(ctx context.Context, cakeType string) Sales {
	return l.sales(ctx, database.SaleFilter{CakeType: cakeType}, func() error {
		_, err := l.LookupCakeType(ctx, cakeType)
		return err
	})
}

// Query yields the facts matching an arbitrary filter.
func (l *Ledger) Query(ctx context.Context, filter database.SaleFilter) Sales {
	return l.sales(ctx, filter, nil)
}

// sales trims the name filters the same way lookups do, so a name that passes check also matches rows.
func (l *Ledger) sales(ctx context.Context, filter database.SaleFilter, check func() error) Sales {
	filter.Region = strings.TrimSpace(filter.Region)
	filter.CakeType = strings.TrimSpace(filter.CakeType)
	return func(yield func(models.SaleRecord, error) bool) {
		if check != nil {
			if err := check(); err != nil {
				yield(models.SaleRecord{}, err)
				return
			}
		}
		recs, err := l.store.QuerySales(ctx, filter)
		if err != nil {
			yield(models.SaleRecord{}, fmt.Errorf("query sales: %w", err))
			return
		}
		for _, rec := range recs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Collect drains a sequence, stopping at the first error.
func Collect(seq Sales) ([]models.SaleRecord, error) {
	out := []models.SaleRecord{}
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// AggregateQuantityByCakeType sums quantities per cake type, largest first and ties by name.
func (l *Ledger) AggregateQuantityByCakeType(ctx context.Context, filter AggregateFilter) ([]models.CakeTypeTotal, error) {
	filter.Region = strings.TrimSpace(filter.Region)
	sf := database.SaleFilter{Since: filter.Since, Region: filter.Region}
	var seq Sales
	if filter.Region != "" {
		seq = l.sales(ctx, sf, func() error {
			_, err := l.LookupRegion(ctx, filter.Region)
			return err
		})
	} else {
		seq = l.sales(ctx, sf, nil)
	}

	sums := map[string]int{}
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		sums[rec.CakeType] += rec.Quantity
	}
	return SortTotals(sums), nil
}

// SortTotals orders per cake type sums by quantity descending, then by name ascending.
func SortTotals(sums map[string]int) []models.CakeTypeTotal {
	out := make([]models.CakeTypeTotal, 0, len(sums))
	for name, qty := range sums {
		out = append(out, models.CakeTypeTotal{CakeType: name, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].CakeType < out[j].CakeType
	})
	return out
}

// Sales returns every fact as a slice.
func (l *Ledger) Sales(ctx context.Context) ([]models.SaleRecord, error) {
	return Collect(l.AllSales(ctx))
}

func (l *Ledger) ListRegions(ctx context.Context) ([]models.Region, error) {
	return l.store.ListRegions(ctx)
}

func (l *Ledger) ListCakeTypes(ctx context.Context) ([]models.CakeType, error) {
	return l.store.ListCakeTypes(ctx)
}

// Regions returns the registered region names in ascending order.
func (l *Ledger) Regions(ctx context.Context) ([]string, error) {
	regions, err := l.store.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	names := make([]string, 0, len(regions))
	for _, r := range regions {
		names = append(names, r.Name)
	}
	return names, nil
}

// CakeTypes returns the registered cake type names in ascending order.
func (l *Ledger) CakeTypes(ctx context.Context) ([]string, error) {
	cakes, err := l.store.ListCakeTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cake types: %w", err)
	}
	names := make([]string, 0, len(cakes))
	for _, c := range cakes {
		names = append(names, c.Name)
	}
	return names, nil
}
