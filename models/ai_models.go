package models

import "time"

// AiAnalysis contains the qualitative insights from the Gemini model.
type AiAnalysis struct {
	Summary         string   `json:"summary"`
	PositiveFactors []string `json:"positive_factors"`
	NegativeFactors []string `json:"negative_factors"`
}

// InsightResponse is the complete structure for the insights API response.
type InsightResponse struct {
	ReportName  string           `json:"reportName"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Region      string           `json:"region,omitempty"`
	Dashboard   Dashboard        `json:"dashboard"`
	Restock     []Recommendation `json:"restock"`
	Forecast    *Forecast        `json:"forecast,omitempty"`
	AiAnalysis  AiAnalysis       `json:"aiAnalysis"`
}
