// Package postgres implements database.Store on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS regions (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS cake_types (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS sales (
	id           BIGSERIAL PRIMARY KEY,
	sale_date    DATE    NOT NULL,
	region_id    BIGINT  NOT NULL REFERENCES regions(id),
	cake_type_id BIGINT  NOT NULL REFERENCES cake_types(id),
	quantity     INTEGER NOT NULL CHECK (quantity >= 0)
);
CREATE INDEX IF NOT EXISTS sales_sale_date_idx ON sales (sale_date);
CREATE TABLE IF NOT EXISTS predictions (
	id            BIGSERIAL PRIMARY KEY,
	batch_id      UUID        NOT NULL,
	forecast_date DATE        NOT NULL,
	weekday       TEXT        NOT NULL,
	region_id     BIGINT      NOT NULL REFERENCES regions(id),
	cake_type_id  BIGINT      NOT NULL REFERENCES cake_types(id),
	quantity      INTEGER     NOT NULL CHECK (quantity >= 0),
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sync_entries (
	device_id TEXT        NOT NULL,
	local_id  TEXT        NOT NULL,
	row_count INTEGER     NOT NULL,
	synced_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (device_id, local_id)
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

var _ database.Store = (*Store)(nil)

// Connect opens a pool, checks it with a ping and creates missing tables.
func Connect(ctx context.Context, databaseURL string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	log.Info("connected to postgres")
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	s.log.Info("database connection pool closed")
	return nil
}

// Truncate empties every table. Tests use it to start from a clean database.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE sync_entries, predictions, sales, regions, cake_types RESTART IDENTITY CASCADE`)
	return err
}

// mapErr translates constraint violations into apperr kinds.
func mapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
		switch pgerr.Code {
		case pgerrcode.ForeignKeyViolation:
			return apperr.Wrap(apperr.ErrNotFound, err, msg+": unknown region or cake type")
		case pgerrcode.UniqueViolation, pgerrcode.CheckViolation:
			return apperr.Wrap(apperr.ErrInvalidArgument, err, msg)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *Store) ensure(ctx context.Context, table, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+table+` (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, mapErr(err, "ensure "+table)
	}
	return id, nil
}

func (s *Store) EnsureRegion(ctx context.Context, name string) (models.RegionID, error) {
	id, err := s.ensure(ctx, "regions", name)
	return models.RegionID(id), err
}

func (s *Store) EnsureCakeType(ctx context.Context, name string) (models.CakeTypeID, error) {
	id, err := s.ensure(ctx, "cake_types", name)
	return models.CakeTypeID(id), err
}

func (s *Store) find(ctx context.Context, table, kind, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM `+table+` WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("%s %q not found", kind, name)
	}
	if err != nil {
		return 0, fmt.Errorf("find %s: %w", kind, err)
	}
	return id, nil
}

func (s *Store) FindRegion(ctx context.Context, name string) (models.Region, error) {
	id, err := s.find(ctx, "regions", "region", name)
	if err != nil {
		return models.Region{}, err
	}
	return models.Region{ID: models.RegionID(id), Name: name}, nil
}

func (s *Store) FindCakeType(ctx context.Context, name string) (models.CakeType, error) {
	id, err := s.find(ctx, "cake_types", "cake type", name)
	if err != nil {
		return models.CakeType{}, err
	}
	return models.CakeType{ID: models.CakeTypeID(id), Name: name}, nil
}

type namedRow struct {
	id   int64
	name string
}

func (s *Store) list(ctx context.Context, table string) ([]namedRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := []namedRow{}
	for rows.Next() {
		var r namedRow
		if err := rows.Scan(&r.id, &r.name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListRegions(ctx context.Context) ([]models.Region, error) {
	rows, err := s.list(ctx, "regions")
	if err != nil {
		return nil, err
	}
	out := make([]models.Region, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Region{ID: models.RegionID(r.id), Name: r.name})
	}
	return out, nil
}

func (s *Store) ListCakeTypes(ctx context.Context) ([]models.CakeType, error) {
	rows, err := s.list(ctx, "cake_types")
	if err != nil {
		return nil, err
	}
	out := make([]models.CakeType, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.CakeType{ID: models.CakeTypeID(r.id), Name: r.name})
	}
	return out, nil
}

// inTx runs fn in a transaction and commits only when fn succeeds.
func (s *Store) inTx(ctx context.Context, msg string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", msg, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return mapErr(err, msg)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr(err, msg)
	}
	return nil
}

func pgDate(d civil.Date) time.Time { return d.In(time.UTC) }

func insertSales(ctx context.Context, tx pgx.Tx, rows []models.SaleRow) error {
	for _, r := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sales (sale_date, region_id, cake_type_id, quantity) VALUES ($1, $2, $3, $4)`,
			pgDate(r.Date), int64(r.RegionID), int64(r.CakeTypeID), r.Quantity,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertSales(ctx context.Context, rows []models.SaleRow) error {
	return s.inTx(ctx, "insert sales", func(tx pgx.Tx) error {
		return insertSales(ctx, tx, rows)
	})
}

// InsertSalesOnce claims the key first. A concurrent upload of the same key waits on the
// primary key and then sees the claim.
func (s *Store) InsertSalesOnce(ctx context.Context, key database.SyncKey, rows []models.SaleRow) (int, bool, error) {
	count, applied := len(rows), true
	err := s.inTx(ctx, "insert synced sales", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO sync_entries (device_id, local_id, row_count) VALUES ($1, $2, $3)
			 ON CONFLICT (device_id, local_id) DO NOTHING`,
			key.DeviceID, key.LocalID, len(rows))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			applied = false
			return tx.QueryRow(ctx,
				`SELECT row_count FROM sync_entries WHERE device_id = $1 AND local_id = $2`,
				key.DeviceID, key.LocalID).Scan(&count)
		}
		return insertSales(ctx, tx, rows)
	})
	if err != nil {
		return 0, false, err
	}
	return count, applied, nil
}

func (s *Store) InsertPredictions(ctx context.Context, rows []models.PredictionRow) error {
	return s.inTx(ctx, "insert predictions", func(tx pgx.Tx) error {
		for _, r := range rows {
			if _, err := tx.Exec(ctx,
				`INSERT INTO predictions (batch_id, forecast_date, weekday, region_id, cake_type_id, quantity, created_at)
				 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)`,
				r.BatchID.String(), pgDate(r.Date), r.Weekday, int64(r.RegionID), int64(r.CakeTypeID), r.Quantity, r.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// where collects SQL conditions with numbered placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (s *Store) QuerySales(ctx context.Context, filter database.SaleFilter) ([]models.SaleRecord, error) {
	var w where
	if filter.Since != nil {
		w.add("s.sale_date >= ?", pgDate(*filter.Since))
	}
	if filter.Until != nil {
		w.add("s.sale_date <= ?", pgDate(*filter.Until))
	}
	if filter.Region != "" {
		w.add("r.name = ?", filter.Region)
	}
	if filter.CakeType != "" {
		w.add("c.name = ?", filter.CakeType)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.sale_date, r.name, c.name, s.quantity
		FROM sales s
		JOIN regions r ON r.id = s.region_id
		JOIN cake_types c ON c.id = s.cake_type_id`+w.String()+`
		ORDER BY s.id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	out := []models.SaleRecord{}
	for rows.Next() {
		var (
			rec models.SaleRecord
			d   time.Time
		)
		if err := rows.Scan(&d, &rec.Region, &rec.CakeType, &rec.Quantity); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		rec.Date = civil.DateOf(d)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) QueryPredictions(ctx context.Context, filter database.PredictionFilter) ([]models.PredictionRecord, error) {
	var w where
	if filter.Since != nil {
		w.add("p.forecast_date >= ?", pgDate(*filter.Since))
	}
	if filter.Until != nil {
		w.add("p.forecast_date <= ?", pgDate(*filter.Until))
	}
	if filter.Region != "" {
		w.add("r.name = ?", filter.Region)
	}
	if filter.BatchID != uuid.Nil {
		w.add("p.batch_id = ?::uuid", filter.BatchID.String())
	}

	rows, err := s.pool.Query(ctx, `
		SELECT p.batch_id::text, p.forecast_date, p.weekday, r.name, c.name, p.quantity, p.created_at
		FROM predictions p
		JOIN regions r ON r.id = p.region_id
		JOIN cake_types c ON c.id = p.cake_type_id`+w.String()+`
		ORDER BY p.id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := []models.PredictionRecord{}
	for rows.Next() {
		var (
			rec   models.PredictionRecord
			batch string
			d     time.Time
		)
		if err := rows.Scan(&batch, &d, &rec.Weekday, &rec.Region, &rec.CakeType, &rec.Quantity, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if rec.BatchID, err = uuid.Parse(batch); err != nil {
			return nil, fmt.Errorf("parse batch id: %w", err)
		}
		rec.Date = civil.DateOf(d)
		out = append(out, rec)
	}
	return out, rows.Err()
}
