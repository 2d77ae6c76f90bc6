package database

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/cakeworks/cake-sales/models"
)

// Store is the persistence collaborator behind the ledger and the prediction log.
//
// Implementations enforce unique region and cake type names and referential integrity of sale
// and prediction rows. Batch inserts are all-or-nothing. Stores assume a single writer.
type Store interface {
	// EnsureRegion creates the region if it does not exist and returns its id either way.
	EnsureRegion(ctx context.Context, name string) (models.RegionID, error)
	// EnsureCakeType creates the cake type if it does not exist and returns its id either way.
	EnsureCakeType(ctx context.Context, name string) (models.CakeTypeID, error)
	// FindRegion looks a region up by name. Fails with apperr.ErrNotFound.
	FindRegion(ctx context.Context, name string) (models.Region, error)
	// FindCakeType looks a cake type up by name. Fails with apperr.ErrNotFound.
	FindCakeType(ctx context.Context, name string) (models.CakeType, error)
	// ListRegions returns all regions ordered by name.
	ListRegions(ctx context.Context) ([]models.Region, error)
	// ListCakeTypes returns all cake types ordered by name.
	ListCakeTypes(ctx context.Context) ([]models.CakeType, error)

	InsertSales(ctx context.Context, rows []models.SaleRow) error
	// InsertSalesOnce writes rows and records key in the same transaction. When key was applied
	// before nothing is written, and the row count of the first application comes back with
	// applied=false.
	InsertSalesOnce(ctx context.Context, key SyncKey, rows []models.SaleRow) (rowCount int, applied bool, err error)
	InsertPredictions(ctx context.Context, rows []models.PredictionRow) error

	QuerySales(ctx context.Context, filter SaleFilter) ([]models.SaleRecord, error)
	QueryPredictions(ctx context.Context, filter PredictionFilter) ([]models.PredictionRecord, error)

	Close() error
}

// SyncKey identifies one entry uploaded by an offline device.
type SyncKey struct {
	DeviceID string
	LocalID  string
}

// SaleFilter restricts QuerySales. Zero fields do not filter.
type SaleFilter struct {
	Since    *civil.Date
	Until    *civil.Date
	Region   string
	CakeType string
}

// Match reports whether rec passes the filter.
func (f SaleFilter) Match(rec models.SaleRecord) bool {
	if f.Since != nil && rec.Date.Before(*f.Since) {
		return false
	}
	if f.Until != nil && rec.Date.After(*f.Until) {
		return false
	}
	if f.Region != "" && rec.Region != f.Region {
		return false
	}
	if f.CakeType != "" && rec.CakeType != f.CakeType {
		return false
	}
	return true
}

// PredictionFilter restricts QueryPredictions. Zero fields do not filter.
type PredictionFilter struct {
	Since   *civil.Date
	Until   *civil.Date
	Region  string
	BatchID uuid.UUID
}

// Match reports whether rec passes the filter.
func (f PredictionFilter) Match(rec models.PredictionRecord) bool {
	if f.Since != nil && rec.Date.Before(*f.Since) {
		return false
	}
	if f.Until != nil && rec.Date.After(*f.Until) {
		return false
	}
	if f.Region != "" && rec.Region != f.Region {
		return false
	}
	if f.BatchID != uuid.Nil && rec.BatchID != f.BatchID {
		return false
	}
	return true
}
