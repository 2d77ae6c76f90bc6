package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// WeeklySummary holds the totals of one ISO week.
type WeeklySummary struct {
	ISOYear    int            `json:"iso_year"`
	ISOWeek    int            `json:"iso_week"`
	StartDate  civil.Date     `json:"start_date"`
	EndDate    civil.Date     `json:"end_date"`
	Quantities map[string]int `json:"quantities"`
	Total      int            `json:"total"`
}

// MonthlySummary holds the totals of one calendar month.
type MonthlySummary struct {
	Year       int            `json:"year"`
	Month      time.Month     `json:"month"`
	Quantities map[string]int `json:"quantities"`
	Total      int            `json:"total"`
}

// DayOfWeekSummary holds the totals of one weekday across all weeks.
type DayOfWeekSummary struct {
	Weekday    string         `json:"weekday"`
	Quantities map[string]int `json:"quantities"`
	Total      int            `json:"total"`
}

// RegionalSummary holds the totals of one region.
type RegionalSummary struct {
	Region     string         `json:"region"`
	Quantities map[string]int `json:"quantities"`
	Total      int            `json:"total"`
}

// Dashboard carries the key metrics shown next to the summary charts.
type Dashboard struct {
	TotalSales      int             `json:"total_sales"`
	SalesByCakeType []CakeTypeTotal `json:"sales_by_cake_type"`
	BestCakeType    string          `json:"best_cake_type"`
	BestWeekday     string          `json:"best_weekday"`
	BestRegion      string          `json:"best_region"`
	FirstSaleDate   *civil.Date     `json:"first_sale_date,omitempty"`
	LastSaleDate    *civil.Date     `json:"last_sale_date,omitempty"`
	DailyEntryCount int             `json:"daily_entry_count"`
	RegionCount     int             `json:"region_count"`
	CakeTypeCount   int             `json:"cake_type_count"`
}

// ModelMetrics are the hold-out errors of one trained cake type model.
type ModelMetrics struct {
	CakeType  string  `json:"cake_type"`
	MSE       float64 `json:"mse"`
	MAE       float64 `json:"mae"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	Evaluated bool    `json:"evaluated"`
}

// TrainingReport describes the outcome of one training run.
type TrainingReport struct {
	TrainedAt    time.Time      `json:"trained_at"`
	DailyEntries int            `json:"daily_entries"`
	Regions      []string       `json:"regions"`
	Models       []ModelMetrics `json:"models"`
}
