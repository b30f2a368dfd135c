package models

import "time"

// AnalysisResult composes one ticker's full pipeline output: fundamentals,
// the two sentiment aggregates, and the rating outcome. It is owned by the
// pipeline for the duration of a run and then exported or discarded.
type AnalysisResult struct {
	RunID        string             `json:"run_id"`
	Ticker       string             `json:"ticker"`
	CompanyName  string             `json:"company_name,omitempty"`
	AnalyzedAt   time.Time          `json:"analyzed_at"`
	Duration     time.Duration      `json:"duration"`
	Fundamentals *Fundamentals      `json:"fundamentals,omitempty"`
	Company      SentimentAggregate `json:"company_sentiment"`
	Sector       SentimentAggregate `json:"sector_sentiment"`
	Rating       RatingOutcome      `json:"rating"`
	Success      bool               `json:"success"`
	ErrorKind    string             `json:"error_kind,omitempty"`
	Error        string             `json:"error,omitempty"`
}
