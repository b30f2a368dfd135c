package models

import "fmt"

// Rating is one of the five investment recommendations.
type Rating string

const (
	StrongBuy  Rating = "Strong Buy"
	Buy        Rating = "Buy"
	Hold       Rating = "Hold"
	Sell       Rating = "Sell"
	StrongSell Rating = "Strong Sell"
)

// Ratings lists the valid ratings in order from most to least bullish.
var Ratings = []Rating{StrongBuy, Buy, Hold, Sell, StrongSell}

// Valid reports whether r is one of the five enumerated values.
// Matching is case-sensitive and exact.
func (r Rating) Valid() bool {
	switch r {
	case StrongBuy, Buy, Hold, Sell, StrongSell:
		return true
	}
	return false
}

// RatingResult is the structured rating for one (ticker, analysis run).
type RatingResult struct {
	Rating                Rating   `json:"rating"`
	Confidence            float64  `json:"confidence"` // 0.0 .. 1.0
	Reasoning             string   `json:"reasoning"`
	KeyFactors            []string `json:"key_factors"`
	RiskFactors           []string `json:"risk_factors"`
	RecommendationSummary string   `json:"recommendation_summary"`
}

// RatingOutcome is the tagged result of a rating request. Callers always
// receive a well-typed RatingResult: either the parsed model output, or the
// Hold/0.0 sentinel when the response could not be parsed or validated.
type RatingOutcome struct {
	Result         RatingResult `json:"result"`
	Fallback       bool         `json:"fallback"`
	FallbackReason string       `json:"fallback_reason,omitempty"`
}

// OkOutcome wraps a validated rating result.
func OkOutcome(r RatingResult) RatingOutcome {
	return RatingOutcome{Result: r}
}

// FallbackOutcome builds the terminal sentinel outcome for an unusable LLM
// response: Hold, zero confidence, and a diagnostic naming the failure.
func FallbackOutcome(reason string) RatingOutcome {
	return RatingOutcome{
		Result: RatingResult{
			Rating:                Hold,
			Confidence:            0,
			Reasoning:             fmt.Sprintf("Rating response could not be used: %s", reason),
			KeyFactors:            []string{},
			RiskFactors:           []string{},
			RecommendationSummary: "Hold recommendation substituted because the analysis response was unusable.",
		},
		Fallback:       true,
		FallbackReason: reason,
	}
}
