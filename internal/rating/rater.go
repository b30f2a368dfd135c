// Package rating produces the final buy/sell recommendation from the
// fundamentals table and the sentiment pair. The model gets exactly one
// call per request; any response that cannot be repaired and validated
// collapses to the Hold fallback rather than an error.
package rating

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/phuslu/log"

	"github.com/finsightlab/finsight/internal/llm"
	"github.com/finsightlab/finsight/internal/prompts"
	"github.com/finsightlab/finsight/pkg/models"
)

// Input carries the four analysis inputs for one rating request.
type Input struct {
	CompanyName      string
	FinancialHTML    string
	CompanySentiment string
	SectorSentiment  string
}

// Rater issues rating requests against an LLM client.
type Rater struct {
	llm llm.Client
}

// NewRater creates a rater on top of the given client.
func NewRater(client llm.Client) *Rater {
	return &Rater{llm: client}
}

// RateStock makes a single model call and returns a rating outcome. The
// call is never retried: a transport error, unparseable response, or
// validation failure all yield the Hold fallback with a diagnostic
// reason. The returned outcome is always usable.
func (r *Rater) RateStock(ctx context.Context, in Input) models.RatingOutcome {
	prompt := prompts.BuildRatingPrompt(in.CompanyName, in.FinancialHTML, in.CompanySentiment, in.SectorSentiment)

	resp, err := r.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, nil)
	if err != nil {
		log.Warn().Err(err).Str("company", in.CompanyName).Msg("rating call failed, substituting Hold")
		return models.FallbackOutcome(fmt.Sprintf("model call failed: %v", err))
	}

	result, err := parseRating(resp.Content)
	if err != nil {
		log.Warn().Err(err).Str("company", in.CompanyName).Msg("rating response unusable, substituting Hold")
		return models.FallbackOutcome(err.Error())
	}

	log.Info().Str("company", in.CompanyName).Str("rating", string(result.Rating)).
		Float64("confidence", result.Confidence).Msg("stock rated")
	return models.OkOutcome(result)
}

// parseRating repairs and validates the model's JSON response. Repair
// fixes syntax only; validation of the content stays strict.
func parseRating(raw string) (models.RatingResult, error) {
	var result models.RatingResult

	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return result, fmt.Errorf("rating response is not repairable JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("rating response does not match the schema: %w", err)
	}

	if !result.Rating.Valid() {
		return result, fmt.Errorf("rating %q is not one of the five allowed values", result.Rating)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return result, fmt.Errorf("confidence %v is outside [0, 1]", result.Confidence)
	}
	if strings.TrimSpace(result.Reasoning) == "" {
		return result, fmt.Errorf("rating response has empty reasoning")
	}

	if result.KeyFactors == nil {
		result.KeyFactors = []string{}
	}
	if result.RiskFactors == nil {
		result.RiskFactors = []string{}
	}
	return result, nil
}
