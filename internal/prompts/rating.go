package prompts

import "fmt"

// ratingTemplate embeds the four analysis inputs, the five-point rating
// scale, and the required JSON output schema.
const ratingTemplate = `You are a senior equity analyst producing a stock rating for %s.

You are given three inputs:

1. Financial fundamentals (quarterly data, most recent first):
%s

2. Company news sentiment:
%s

3. Sector news sentiment:
%s

Weigh the fundamentals trajectory (growth, margins, balance sheet strength, cash generation) together with the company and sector sentiment.

Rate the stock using exactly one of these five ratings:
  "Strong Buy"  - exceptional fundamentals and strongly positive sentiment
  "Buy"         - solid fundamentals with a favorable outlook
  "Hold"        - mixed signals or fairly valued
  "Sell"        - deteriorating fundamentals or negative outlook
  "Strong Sell" - severe fundamental problems or strongly negative sentiment

Respond with a single JSON object and nothing else, using exactly this schema:
{
  "rating": "<one of: Strong Buy, Buy, Hold, Sell, Strong Sell>",
  "confidence": <float between 0 and 1>,
  "reasoning": "<detailed reasoning for the rating>",
  "key_factors": ["<positive factor>", ...],
  "risk_factors": ["<risk factor>", ...],
  "recommendation_summary": "<one-paragraph recommendation>"
}`

// BuildRatingPrompt constructs the full rating prompt. It is a pure
// function of its four inputs: identical inputs always produce an
// identical prompt.
func BuildRatingPrompt(companyName, financialHTML, companySentiment, sectorSentiment string) string {
	return fmt.Sprintf(ratingTemplate, companyName, financialHTML, companySentiment, sectorSentiment)
}
