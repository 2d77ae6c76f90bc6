package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// --- JWT & Auth ---

type JwtClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// --- Catalog ---

type RegionID int64

type CakeTypeID int64

// Region is a sales area. Names are unique and never change once created.
type Region struct {
	ID   RegionID `json:"id"`
	Name string   `json:"name"`
}

// CakeType is a product line. Same lifecycle as Region.
type CakeType struct {
	ID   CakeTypeID `json:"id"`
	Name string     `json:"name"`
}

// --- Ledger ---

// SaleRecord is one appended sales fact.
type SaleRecord struct {
	Date     civil.Date `json:"date"`
	Region   string     `json:"region"`
	CakeType string     `json:"cake_type"`
	Quantity int        `json:"quantity"`
}

// SaleRow is a sales fact resolved to catalog ids, ready for the store.
type SaleRow struct {
	Date       civil.Date
	RegionID   RegionID
	CakeTypeID CakeTypeID
	Quantity   int
}

// DailySalesEntry folds all facts of one (date, region) into a single row.
type DailySalesEntry struct {
	Date       civil.Date     `json:"date"`
	Weekday    string         `json:"weekday"`
	Region     string         `json:"region"`
	Quantities map[string]int `json:"quantities"`
	Total      int            `json:"total"`
}

// CakeTypeTotal is a summed quantity for one cake type.
type CakeTypeTotal struct {
	CakeType string `json:"cake_type"`
	Quantity int    `json:"quantity"`
}

// --- Predictions ---

// PredictionRow is a forecast quantity resolved to catalog ids, ready for the store.
type PredictionRow struct {
	BatchID    uuid.UUID
	Date       civil.Date
	Weekday    string
	RegionID   RegionID
	CakeTypeID CakeTypeID
	Quantity   int
	CreatedAt  time.Time
}

// PredictionRecord is a logged forecast as read back from the store.
type PredictionRecord struct {
	BatchID   uuid.UUID  `json:"batch_id"`
	Date      civil.Date `json:"date"`
	Weekday   string     `json:"weekday"`
	Region    string     `json:"region"`
	CakeType  string     `json:"cake_type"`
	Quantity  int        `json:"quantity"`
	CreatedAt time.Time  `json:"created_at"`
}

// Forecast is the next-day demand per cake type for one (date, region).
type Forecast struct {
	Date       civil.Date     `json:"date"`
	Weekday    string         `json:"weekday"`
	Region     string         `json:"region"`
	Quantities map[string]int `json:"quantities"`
}

// Recommendation is a restock suggestion derived from recent sales.
type Recommendation struct {
	CakeType            string `json:"cake_type"`
	ObservedQuantity    int    `json:"observed_quantity"`
	RecommendedQuantity int    `json:"recommended_quantity"`
}

// PredictionComparison lines a logged forecast up against what was actually sold.
type PredictionComparison struct {
	Date      civil.Date `json:"date"`
	Region    string     `json:"region"`
	CakeType  string     `json:"cake_type"`
	Predicted int        `json:"predicted"`
	Actual    int        `json:"actual"`
	Error     int        `json:"error"`
}

// AccuracyReport summarises a set of comparisons.
type AccuracyReport struct {
	Comparisons       []PredictionComparison `json:"comparisons"`
	MeanAbsoluteError float64                `json:"mean_absolute_error"`
}
