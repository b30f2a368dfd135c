// Package sentiment implements the news sentiment collator: it searches
// recent coverage for a company and its sector, summarizes long
// articles, scores each one against a fixed rubric, and reduces the
// results to one company aggregate and one sector aggregate. The
// collator never fails an analysis: every LLM error degrades to a
// neutral aggregate after a single retry.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/phuslu/log"

	"github.com/finsightlab/finsight/internal/datasource"
	"github.com/finsightlab/finsight/internal/llm"
	"github.com/finsightlab/finsight/internal/prompts"
	"github.com/finsightlab/finsight/pkg/models"
	"github.com/finsightlab/finsight/pkg/utils"
)

// Options bound the collection run.
type Options struct {
	RecencyDays     int           // news window, default 7
	MaxResults      int           // per search query, default 10
	SummaryMinChars int           // articles longer than this get summarized, default 600
	RetryBackoff    time.Duration // backoff before the single LLM retry
}

func (o *Options) defaults() {
	if o.RecencyDays <= 0 {
		o.RecencyDays = 7
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 10
	}
	if o.SummaryMinChars <= 0 {
		o.SummaryMinChars = 600
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
}

// Collator gathers and reduces news sentiment for a ticker.
type Collator struct {
	llm     llm.Client
	news    datasource.NewsSource
	profile datasource.FundamentalsSource
	tavily  *datasource.TavilySource // optional context enrichment
	opts    Options
}

// NewCollator creates a collator. tavily may be nil; query generation
// then proceeds without web context.
func NewCollator(client llm.Client, news datasource.NewsSource, profile datasource.FundamentalsSource, tavily *datasource.TavilySource, opts Options) *Collator {
	opts.defaults()
	return &Collator{
		llm:     client,
		news:    news,
		profile: profile,
		tavily:  tavily,
		opts:    opts,
	}
}

// Result carries the two aggregates plus the scored articles for export.
type Result struct {
	CompanyName string
	SectorName  string
	Company     models.SentimentAggregate
	Sector      models.SentimentAggregate
	Articles    []models.NewsArticle
}

// GetStockSentiment runs the full collation for a ticker. It always
// returns a usable pair of aggregates: missing data and LLM failures
// degrade to neutral, never to an error.
func (c *Collator) GetStockSentiment(ctx context.Context, ticker string) Result {
	ticker = utils.NormalizeTicker(ticker)

	companyName, sector := c.resolveIdentity(ctx, ticker)
	companyQueries, sectorQueries := c.generateQueries(ctx, ticker, companyName, sector)

	from, to := utils.RecencyWindow(c.opts.RecencyDays)
	companyArticles := c.collect(ctx, companyQueries, from, to)
	sectorArticles := c.collect(ctx, sectorQueries, from, to)

	c.enrich(ctx, companyName, companyArticles)
	c.enrich(ctx, companyName, sectorArticles)

	return Result{
		CompanyName: companyName,
		SectorName:  sector,
		Company:     c.aggregateCompany(ctx, companyName, companyArticles),
		Sector:      c.aggregateSector(ctx, sector, sectorArticles),
		Articles:    append(companyArticles, sectorArticles...),
	}
}

// ── Identity resolution ──

// resolveIdentity maps the ticker to a company name and sector via
// provider metadata. Failures degrade to the ticker itself.
func (c *Collator) resolveIdentity(ctx context.Context, ticker string) (companyName, sector string) {
	companyName, sector = ticker, ""
	if c.profile == nil {
		return
	}
	profile, err := c.profile.GetProfile(ctx, ticker)
	if err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("profile resolution failed, using ticker as company name")
		return
	}
	if profile.Name != "" {
		companyName = profile.Name
	}
	sector = profile.Sector
	return
}

func (c *Collator) companyQuery(ticker, companyName string) string {
	if companyName != ticker {
		return fmt.Sprintf("%s (%s) stock news", companyName, ticker)
	}
	return ticker + " stock news"
}

func (c *Collator) sectorQuery(sector string) string {
	if sector == "" {
		return ""
	}
	return sector + " sector news"
}

// ── Query generation ──

// generateQueries asks the model for tailored search queries, seeded with
// web context about the company when a Tavily source is configured.
// Generated queries mentioning the sector go to the sector pool, the rest
// to the company pool. Any failure falls back to the template queries.
func (c *Collator) generateQueries(ctx context.Context, ticker, companyName, sector string) (companyQs, sectorQs []string) {
	companyQs = []string{c.companyQuery(ticker, companyName)}
	if q := c.sectorQuery(sector); q != "" {
		sectorQs = []string{q}
	}

	resp, err := llm.ChatWithRetry(ctx, c.llm, []llm.Message{
		llm.UserMessage(prompts.BuildQueryPrompt(companyName, c.companyContext(ctx, companyName))),
	}, nil, c.opts.RetryBackoff)
	if err != nil {
		log.Warn().Err(err).Str("company", companyName).Msg("query generation failed, using template queries")
		return
	}

	queries, err := parseQueryList(resp.Content)
	if err != nil || len(queries) == 0 {
		log.Warn().Err(err).Str("company", companyName).Msg("query list unparseable, using template queries")
		return
	}

	var comp, sect []string
	for _, q := range queries {
		if strings.Contains(strings.ToLower(q), "sector") {
			sect = append(sect, q)
		} else {
			comp = append(comp, q)
		}
	}
	if len(comp) > 0 {
		companyQs = comp
	}
	if len(sect) > 0 {
		sectorQs = sect
	}
	return
}

// companyContext fetches a short web context blurb for query generation.
// Empty when no Tavily source is configured or the search fails.
func (c *Collator) companyContext(ctx context.Context, companyName string) string {
	if c.tavily == nil {
		return ""
	}
	text, err := c.tavily.ContextSearch(ctx, companyName+" company overview", 5)
	if err != nil {
		log.Warn().Err(err).Str("company", companyName).Msg("context search failed")
		return ""
	}
	return text
}

// parseQueryList parses the model's JSON list of query strings, repairing
// malformed JSON first.
func parseQueryList(raw string) ([]string, error) {
	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("repair query list: %w", err)
	}
	var queries []string
	if err := json.Unmarshal([]byte(repaired), &queries); err != nil {
		return nil, fmt.Errorf("parse query list: %w", err)
	}
	out := queries[:0]
	for _, q := range queries {
		if s := strings.TrimSpace(q); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// ── Collection ──

// collect searches every query, deduplicating by URL across queries and
// capping the pool at MaxResults. Provider failures on individual queries
// only shrink the pool.
func (c *Collator) collect(ctx context.Context, queries []string, from, to time.Time) []models.NewsArticle {
	seen := make(map[string]bool)
	var out []models.NewsArticle
	for _, query := range queries {
		if query == "" {
			continue
		}
		if len(out) >= c.opts.MaxResults {
			break
		}
		articles, err := c.news.SearchNews(ctx, query, from, to, c.opts.MaxResults)
		if err != nil {
			log.Warn().Err(err).Str("query", query).Msg("news search failed")
			continue
		}
		for _, a := range articles {
			if a.URL == "" || seen[a.URL] {
				continue
			}
			seen[a.URL] = true
			out = append(out, a)
			if len(out) >= c.opts.MaxResults {
				break
			}
		}
	}
	return out
}

// ── Summarization and scoring ──

// enrich summarizes long articles and scores every article in place.
func (c *Collator) enrich(ctx context.Context, companyName string, articles []models.NewsArticle) {
	for i := range articles {
		a := &articles[i]
		if len(a.Content) > c.opts.SummaryMinChars {
			a.Summary = c.summarize(ctx, a)
		}
		score := c.scoreArticle(ctx, companyName, a)
		a.Score = score
		a.Sentiment = sentimentLabel(score)
	}
}

// summarize requests a short factual summary. On failure the raw
// content stands in.
func (c *Collator) summarize(ctx context.Context, a *models.NewsArticle) string {
	resp, err := llm.ChatWithRetry(ctx, c.llm, []llm.Message{
		llm.SystemMessage(prompts.SummarySystemPrompt),
		llm.UserMessage(prompts.BuildSummaryPrompt(a.Title, a.Content)),
	}, nil, c.opts.RetryBackoff)
	if err != nil {
		log.Warn().Err(err).Str("url", a.URL).Msg("article summarization failed, scoring raw content")
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

// scoreArticle scores one article against the rubric. nil means the
// score could not be obtained.
func (c *Collator) scoreArticle(ctx context.Context, companyName string, a *models.NewsArticle) *float64 {
	text := a.Summary
	if text == "" {
		text = a.Content
	}
	if text == "" {
		text = a.Title
	}
	if text == "" {
		return nil
	}

	resp, err := llm.ChatWithRetry(ctx, c.llm, []llm.Message{
		llm.SystemMessage(prompts.ArticleSentimentSystemPrompt),
		llm.UserMessage(prompts.BuildArticleScorePrompt(companyName, text)),
	}, nil, c.opts.RetryBackoff)
	if err != nil {
		log.Warn().Err(err).Str("url", a.URL).Msg("article scoring failed")
		return nil
	}
	return parseScore(resp.Content)
}

// ── Aggregation ──

// aggregateCompany reduces company articles to one consolidated
// statement plus the mean article score.
func (c *Collator) aggregateCompany(ctx context.Context, companyName string, articles []models.NewsArticle) models.SentimentAggregate {
	if len(articles) == 0 {
		return models.NeutralSentiment(models.ScopeCompany)
	}

	resp, err := llm.ChatWithRetry(ctx, c.llm, []llm.Message{
		llm.SystemMessage(prompts.CompanySentimentSystemPrompt),
		llm.UserMessage(prompts.BuildCompanySentimentPrompt(companyName, joinTexts(articles))),
	}, nil, c.opts.RetryBackoff)
	if err != nil {
		log.Warn().Err(err).Str("company", companyName).Msg("company sentiment aggregation failed, defaulting to neutral")
		return models.NeutralSentiment(models.ScopeCompany)
	}

	return models.SentimentAggregate{
		Scope:    models.ScopeCompany,
		Score:    meanScore(articles),
		Text:     strings.TrimSpace(resp.Content),
		Articles: len(articles),
	}
}

// aggregateSector reduces sector articles to a single rubric score.
func (c *Collator) aggregateSector(ctx context.Context, sector string, articles []models.NewsArticle) models.SentimentAggregate {
	if len(articles) == 0 {
		return models.NeutralSentiment(models.ScopeSector)
	}

	resp, err := llm.ChatWithRetry(ctx, c.llm, []llm.Message{
		llm.SystemMessage(prompts.SectorSentimentSystemPrompt),
		llm.UserMessage(prompts.BuildSectorSentimentPrompt(sector, joinTexts(articles))),
	}, nil, c.opts.RetryBackoff)
	if err != nil {
		log.Warn().Err(err).Str("sector", sector).Msg("sector sentiment aggregation failed, defaulting to neutral")
		return models.NeutralSentiment(models.ScopeSector)
	}

	score := parseScore(resp.Content)
	text := fmt.Sprintf("%s sector sentiment", sector)
	if score != nil {
		text = fmt.Sprintf("%s sector sentiment score: %+.1f", sector, *score)
	}
	return models.SentimentAggregate{
		Scope:    models.ScopeSector,
		Score:    score,
		Text:     text,
		Articles: len(articles),
	}
}

// ── Helpers ──

var scorePattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// parseScore extracts the first numeric token from an LLM response and
// clamps it to the [-5, +5] scale. nil when no number is present.
func parseScore(s string) *float64 {
	m := scorePattern.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	if v > 5 {
		v = 5
	}
	if v < -5 {
		v = -5
	}
	return &v
}

// meanScore averages the non-nil article scores. nil when none scored.
func meanScore(articles []models.NewsArticle) *float64 {
	var sum float64
	var n int
	for _, a := range articles {
		if a.Score != nil {
			sum += *a.Score
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// sentimentLabel maps a score to a coarse label for display.
func sentimentLabel(score *float64) string {
	switch {
	case score == nil:
		return ""
	case *score >= 2.5:
		return "strongly positive"
	case *score >= 0.5:
		return "positive"
	case *score <= -2.5:
		return "strongly negative"
	case *score <= -0.5:
		return "negative"
	default:
		return "neutral"
	}
}

// joinTexts concatenates the best available text for each article,
// separated by blank lines.
func joinTexts(articles []models.NewsArticle) string {
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		text := a.Summary
		if text == "" {
			text = a.Content
		}
		if text == "" {
			text = a.Title
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
