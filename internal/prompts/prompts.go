// Package prompts contains the prompt text and prompt builders for every
// LLM call in the analysis pipeline: search query generation, article
// summarization, sentiment scoring, and the final stock rating.
package prompts

import "fmt"

// ── Query Generation ──

// queryGenerationTemplate asks the model for a list of news search queries
// covering both the company and its sector.
const queryGenerationTemplate = `You are a financial news analyst.
You are given a company and you need to generate a list of queries to search for news about the company stock.
You should generate queries regarding the company and the sector that the company is in.
The queries should be looking for news from reliable sources.
The queries should be in the format of a JSON list of strings.

Strictly return the list of queries, no other text.

Example:
Input: AAPL
Output: ["AAPL stock nasdaq news", "AAPL stock cnbc news", "tech sector news"]

Input: NVDA
Output: ["NVDA stock nasdaq news", "semiconductor sector news"]

Use the following context about the company to generate the queries about the company and the sector.

Company: %s

Context:
%s`

// BuildQueryPrompt returns the query-generation prompt for a company and
// its background context text.
func BuildQueryPrompt(companyName, context string) string {
	return fmt.Sprintf(queryGenerationTemplate, companyName, context)
}

// ── Article Summarization ──

// SummarySystemPrompt instructs the model to produce short factual
// summaries of news articles before sentiment scoring.
const SummarySystemPrompt = `You are a financial news summarizer.
Summarize the given article in 5-6 sentences.
Stick to the facts reported in the article: figures, events, statements, and dates.
Do not speculate, do not add opinions, and do not include information that is not in the article.
Return only the summary text.`

// BuildSummaryPrompt returns the user prompt for summarizing one article.
func BuildSummaryPrompt(title, content string) string {
	return fmt.Sprintf("Title: %s\n\nArticle:\n%s", title, content)
}

// ── Sentiment Scoring ──

// SentimentScaleRubric is the fixed -5..+5 scoring rubric. It is given to
// the model verbatim on every scoring call so that near-identical input
// produces reproducible scores.
const SentimentScaleRubric = `Score the sentiment on a fixed scale from -5 to +5 using these anchor points:

  -5: Catastrophic news. Bankruptcy, fraud, delisting, or existential threat to the business.
  -4 to -3: Strongly negative. Major earnings miss, guidance cut, lawsuit with material impact, executive scandal, or significant loss of market share.
  -2 to -1: Mildly negative. Small earnings miss, analyst downgrade, minor regulatory issue, or unfavorable but manageable developments.
   0: Neutral. Routine announcements, mixed signals, or news with no clear directional impact on the stock.
  +1 to +2: Mildly positive. Small earnings beat, analyst upgrade, incremental product news, or favorable but modest developments.
  +3 to +4: Strongly positive. Major earnings beat, raised guidance, significant contract win, or breakthrough product launch.
  +5: Transformational news. Acquisition at a premium, blockbuster approval, or a development that fundamentally re-rates the business.

Use the full range. Intermediate values are allowed. Respond with the numeric score only.`

// ArticleSentimentSystemPrompt scores a single article against the rubric.
const ArticleSentimentSystemPrompt = `You are a financial sentiment analyst.
You are given a news article summary about a company's stock.
` + SentimentScaleRubric

// BuildArticleScorePrompt returns the user prompt for scoring one article.
func BuildArticleScorePrompt(companyName, text string) string {
	return fmt.Sprintf("Company: %s\nArticle summary:\n%s", companyName, text)
}

// CompanySentimentSystemPrompt consolidates all company article summaries
// into a single sentiment statement.
const CompanySentimentSystemPrompt = `You are a financial sentiment analyst.
You are given the summaries of recent news articles about a company's stock.
Write one consolidated sentiment statement for the company: 3-5 sentences covering the overall tone of the coverage, the dominant themes, and any notable risks or catalysts mentioned.
Base the statement only on the provided summaries. Return only the statement.`

// BuildCompanySentimentPrompt returns the user prompt for the company
// aggregation call.
func BuildCompanySentimentPrompt(companyName, summaries string) string {
	return fmt.Sprintf("Company Name: %s\nSummaries:\n%s", companyName, summaries)
}

// SectorSentimentSystemPrompt scores sector-level coverage on the same
// scale, framed around the sector rather than a single company.
const SectorSentimentSystemPrompt = `You are a financial sentiment analyst.
You are given the summaries of recent news articles about a market sector.
Assess the overall sentiment for the sector as a whole, not for any single company in it.
` + SentimentScaleRubric

// BuildSectorSentimentPrompt returns the user prompt for the sector
// scoring call.
func BuildSectorSentimentPrompt(sector, summaries string) string {
	return fmt.Sprintf("Sector: %s\nSummaries list:\n%s", sector, summaries)
}
