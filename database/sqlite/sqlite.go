// Package sqlite implements database.Store on a SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/models"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type region struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (region) TableName() string { return "regions" }

type cakeType struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (cakeType) TableName() string { return "cake_types" }

// Dates are stored as YYYY-MM-DD text so they compare correctly as strings.
type sale struct {
	ID         int64    `gorm:"primaryKey"`
	SaleDate   string   `gorm:"index;not null"`
	RegionID   int64    `gorm:"not null"`
	Region     region   `gorm:"constraint:OnDelete:RESTRICT"`
	CakeTypeID int64    `gorm:"not null"`
	CakeType   cakeType `gorm:"constraint:OnDelete:RESTRICT"`
	Quantity   int      `gorm:"not null"`
}

func (sale) TableName() string { return "sales" }

type prediction struct {
	ID           int64    `gorm:"primaryKey"`
	BatchID      string   `gorm:"index;not null"`
	ForecastDate string   `gorm:"index;not null"`
	Weekday      string   `gorm:"not null"`
	RegionID     int64    `gorm:"not null"`
	Region       region   `gorm:"constraint:OnDelete:RESTRICT"`
	CakeTypeID   int64    `gorm:"not null"`
	CakeType     cakeType `gorm:"constraint:OnDelete:RESTRICT"`
	Quantity     int      `gorm:"not null"`
	CreatedAt    time.Time
}

func (prediction) TableName() string { return "predictions" }

type syncEntry struct {
	DeviceID string `gorm:"primaryKey"`
	LocalID  string `gorm:"primaryKey"`
	RowCount int    `gorm:"not null"`
	SyncedAt time.Time
}

func (syncEntry) TableName() string { return "sync_entries" }

type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ database.Store = (*Store)(nil)

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	dsn := path + "?_foreign_keys=on"
	if path == MemoryPath {
		dsn = "file::memory:?_foreign_keys=on"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// SQLite allows one writer; an in-memory database also lives only as long as its connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&region{}, &cakeType{}, &sale{}, &prediction{}, &syncEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}
	log.Info("sqlite database ready", "path", path)
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) EnsureRegion(ctx context.Context, name string) (models.RegionID, error) {
	row := region{}
	if err := s.db.WithContext(ctx).Where(region{Name: name}).FirstOrCreate(&row).Error; err != nil {
		return 0, fmt.Errorf("ensure region: %w", err)
	}
	return models.RegionID(row.ID), nil
}

func (s *Store) EnsureCakeType(ctx context.Context, name string) (models.CakeTypeID, error) {
	row := cakeType{}
	if err := s.db.WithContext(ctx).Where(cakeType{Name: name}).FirstOrCreate(&row).Error; err != nil {
		return 0, fmt.Errorf("ensure cake type: %w", err)
	}
	return models.CakeTypeID(row.ID), nil
}

func (s *Store) FindRegion(ctx context.Context, name string) (models.Region, error) {
	row := region{}
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Region{}, apperr.NotFound("region %q not found", name)
	}
	if err != nil {
		return models.Region{}, fmt.Errorf("find region: %w", err)
	}
	return models.Region{ID: models.RegionID(row.ID), Name: row.Name}, nil
}

func (s *Store) FindCakeType(ctx context.Context, name string) (models.CakeType, error) {
	row := cakeType{}
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CakeType{}, apperr.NotFound("cake type %q not found", name)
	}
	if err != nil {
		return models.CakeType{}, fmt.Errorf("find cake type: %w", err)
	}
	return models.CakeType{ID: models.CakeTypeID(row.ID), Name: row.Name}, nil
}

func (s *Store) ListRegions(ctx context.Context) ([]models.Region, error) {
	var rows []region
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	out := make([]models.Region, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Region{ID: models.RegionID(r.ID), Name: r.Name})
	}
	return out, nil
}

func (s *Store) ListCakeTypes(ctx context.Context) ([]models.CakeType, error) {
	var rows []cakeType
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cake types: %w", err)
	}
	out := make([]models.CakeType, 0, len(rows))
	for _, c := range rows {
		out = append(out, models.CakeType{ID: models.CakeTypeID(c.ID), Name: c.Name})
	}
	return out, nil
}

// checkRefs fails with NotFound when a region or cake type id does not exist.
func checkRefs(tx *gorm.DB, regionID, cakeTypeID int64) error {
	var n int64
	if err := tx.Model(&region{}).Where("id = ?", regionID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("region id %d does not exist", regionID)
	}
	if err := tx.Model(&cakeType{}).Where("id = ?", cakeTypeID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("cake type id %d does not exist", cakeTypeID)
	}
	return nil
}

func insertSales(tx *gorm.DB, rows []models.SaleRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := make([]sale, 0, len(rows))
	for _, r := range rows {
		if err := checkRefs(tx, int64(r.RegionID), int64(r.CakeTypeID)); err != nil {
			return err
		}
		batch = append(batch, sale{
			SaleDate:   r.Date.String(),
			RegionID:   int64(r.RegionID),
			CakeTypeID: int64(r.CakeTypeID),
			Quantity:   r.Quantity,
		})
	}
	if err := tx.Omit("Region", "CakeType").Create(&batch).Error; err != nil {
		return fmt.Errorf("insert sales: %w", err)
	}
	return nil
}

func (s *Store) InsertSales(ctx context.Context, rows []models.SaleRow) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertSales(tx, rows)
	})
}

func (s *Store) InsertSalesOnce(ctx context.Context, key database.SyncKey, rows []models.SaleRow) (int, bool, error) {
	count, applied := len(rows), true
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev syncEntry
		err := tx.Where("device_id = ? AND local_id = ?", key.DeviceID, key.LocalID).First(&prev).Error
		switch {
		case err == nil:
			count, applied = prev.RowCount, false
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("find sync entry: %w", err)
		}
		if err := insertSales(tx, rows); err != nil {
			return err
		}
		entry := syncEntry{DeviceID: key.DeviceID, LocalID: key.LocalID, RowCount: len(rows), SyncedAt: time.Now().UTC()}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("record sync entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return count, applied, nil
}

func (s *Store) InsertPredictions(ctx context.Context, rows []models.PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch := make([]prediction, 0, len(rows))
		for _, r := range rows {
			if err := checkRefs(tx, int64(r.RegionID), int64(r.CakeTypeID)); err != nil {
				return err
			}
			batch = append(batch, prediction{
				BatchID:      r.BatchID.String(),
				ForecastDate: r.Date.String(),
				Weekday:      r.Weekday,
				RegionID:     int64(r.RegionID),
				CakeTypeID:   int64(r.CakeTypeID),
				Quantity:     r.Quantity,
				CreatedAt:    r.CreatedAt.UTC(),
			})
		}
		if err := tx.Omit("Region", "CakeType").Create(&batch).Error; err != nil {
			return fmt.Errorf("insert predictions: %w", err)
		}
		return nil
	})
}

type saleResult struct {
	SaleDate string
	Region   string
	CakeType string
	Quantity int
}

func (s *Store) QuerySales(ctx context.Context, filter database.SaleFilter) ([]models.SaleRecord, error) {
	q := s.db.WithContext(ctx).Table("sales AS s").
		Select("s.sale_date, r.name AS region, c.name AS cake_type, s.quantity").
		Joins("JOIN regions r ON r.id = s.region_id").
		Joins("JOIN cake_types c ON c.id = s.cake_type_id")
	if filter.Since != nil {
		q = q.Where("s.sale_date >= ?", filter.Since.String())
	}
	if filter.Until != nil {
		q = q.Where("s.sale_date <= ?", filter.Until.String())
	}
	if filter.Region != "" {
		q = q.Where("r.name = ?", filter.Region)
	}
	if filter.CakeType != "" {
		q = q.Where("c.name = ?", filter.CakeType)
	}

	var rows []saleResult
	if err := q.Order("s.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	out := make([]models.SaleRecord, 0, len(rows))
	for _, r := range rows {
		d, err := civil.ParseDate(r.SaleDate)
		if err != nil {
			return nil, fmt.Errorf("parse sale date %q: %w", r.SaleDate, err)
		}
		out = append(out, models.SaleRecord{Date: d, Region: r.Region, CakeType: r.CakeType, Quantity: r.Quantity})
	}
	return out, nil
}

type predictionResult struct {
	BatchID      string
	ForecastDate string
	Weekday      string
	Region       string
	CakeType     string
	Quantity     int
	CreatedAt    time.Time
}

func (s *Store) QueryPredictions(ctx context.Context, filter database.PredictionFilter) ([]models.PredictionRecord, error) {
	q := s.db.WithContext(ctx).Table("predictions AS p").
		Select("p.batch_id, p.forecast_date, p.weekday, r.name AS region, c.name AS cake_type, p.quantity, p.created_at").
		Joins("JOIN regions r ON r.id = p.region_id").
		Joins("JOIN cake_types c ON c.id = p.cake_type_id")
	if filter.Since != nil {
		q = q.Where("p.forecast_date >= ?", filter.Since.String())
	}
	if filter.Until != nil {
		q = q.Where("p.forecast_date <= ?", filter.Until.String())
	}
	if filter.Region != "" {
		q = q.Where("r.name = ?", filter.Region)
	}
	if filter.BatchID != uuid.Nil {
		q = q.Where("p.batch_id = ?", filter.BatchID.String())
	}

	var rows []predictionResult
	if err := q.Order("p.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	out := make([]models.PredictionRecord, 0, len(rows))
	for _, r := range rows {
		d, err := civil.ParseDate(r.ForecastDate)
		if err != nil {
			return nil, fmt.Errorf("parse forecast date %q: %w", r.ForecastDate, err)
		}
		batch, err := uuid.Parse(r.BatchID)
		if err != nil {
			return nil, fmt.Errorf("parse batch id: %w", err)
		}
		out = append(out, models.PredictionRecord{
			BatchID:   batch,
			Date:      d,
			Weekday:   r.Weekday,
			Region:    r.Region,
			CakeType:  r.CakeType,
			Quantity:  r.Quantity,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}
