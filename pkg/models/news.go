package models

import "time"

// SentimentScope distinguishes company-level from sector-level sentiment.
type SentimentScope string

const (
	ScopeCompany SentimentScope = "company"
	ScopeSector  SentimentScope = "sector"
)

// NewsArticle is a single article retrieved during a collection run.
// It is created at search time, enriched once with a summary and once with
// a sentiment score, and immutable thereafter.
type NewsArticle struct {
	Query       string    `json:"query"`  // search query that produced it
	Title       string    `json:"title"`
	URL         string    `json:"url"`    // unique within a collection run
	Source      string    `json:"source,omitempty"`
	Content     string    `json:"content,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Sentiment   string    `json:"sentiment,omitempty"`       // e.g. "positive"
	Score       *float64  `json:"sentiment_score,omitempty"` // -5..+5
	PublishedAt time.Time `json:"published_at,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
}

// SentimentAggregate is the reduced sentiment for one (ticker, scope) pair.
// Both scopes carry a numeric score on the -5..+5 scale and a short
// rationale; Neutral aggregates have a nil score.
type SentimentAggregate struct {
	Scope    SentimentScope `json:"scope"`
	Score    *float64       `json:"score,omitempty"` // -5..+5, nil when unavailable
	Text     string         `json:"text"`
	Articles int            `json:"articles"` // number of articles reduced
}

// Neutral reports whether the aggregate is the empty-news placeholder.
func (s SentimentAggregate) Neutral() bool {
	return s.Score == nil && s.Articles == 0
}

// NeutralSentiment returns the placeholder aggregate used when no articles
// are found or the LLM is unavailable. The pipeline always proceeds with it.
func NeutralSentiment(scope SentimentScope) SentimentAggregate {
	return SentimentAggregate{
		Scope: scope,
		Text:  "No recent news coverage available; sentiment is neutral.",
	}
}

// CompanyProfile is provider metadata resolving a ticker to its company
// name and sector, used to build search queries.
type CompanyProfile struct {
	Ticker      string `json:"ticker"`
	Name        string `json:"name"`
	Sector      string `json:"sector,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Description string `json:"description,omitempty"`
}
