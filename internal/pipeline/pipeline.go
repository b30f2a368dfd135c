// Package pipeline orchestrates one full stock analysis: fundamentals,
// then news sentiment, then the rating. Fundamentals failures terminate
// the analysis with a classified error; everything downstream degrades
// instead of failing. Batch runs isolate tickers from each other.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/finsightlab/finsight/internal/datasource"
	"github.com/finsightlab/finsight/internal/rating"
	"github.com/finsightlab/finsight/internal/sentiment"
	"github.com/finsightlab/finsight/pkg/models"
	"github.com/finsightlab/finsight/pkg/utils"
)

// Gatherer produces the fundamentals for a ticker.
type Gatherer interface {
	Gather(ctx context.Context, ticker string) (*models.Fundamentals, error)
}

// Collator produces the sentiment pair for a ticker.
type Collator interface {
	GetStockSentiment(ctx context.Context, ticker string) sentiment.Result
}

// Rater produces the rating outcome from the assembled inputs.
type Rater interface {
	RateStock(ctx context.Context, in rating.Input) models.RatingOutcome
}

// Pipeline wires the three analysis stages together.
type Pipeline struct {
	gatherer    Gatherer
	collator    Collator
	rater       Rater
	concurrency int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds the number of tickers analyzed in parallel
// during a batch run. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New creates a pipeline. Batch runs are sequential unless
// WithConcurrency raises the limit.
func New(g Gatherer, c Collator, r Rater, opts ...Option) *Pipeline {
	p := &Pipeline{gatherer: g, collator: c, rater: r, concurrency: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AnalyzeStock runs the full analysis for one ticker. It always returns
// a result: a fundamentals failure yields Success=false with the error
// classification, while sentiment and rating failures are absorbed into
// neutral and fallback values upstream.
func (p *Pipeline) AnalyzeStock(ctx context.Context, ticker string) *models.AnalysisResult {
	start := time.Now()
	result := &models.AnalysisResult{
		RunID:      uuid.NewString(),
		Ticker:     utils.NormalizeTicker(ticker),
		AnalyzedAt: start,
	}
	defer func() { result.Duration = time.Since(start) }()

	if !utils.ValidTicker(result.Ticker) {
		result.Error = fmt.Sprintf("invalid ticker %q", ticker)
		return result
	}

	log.Info().Str("ticker", result.Ticker).Str("run_id", result.RunID).Msg("analysis started")

	fund, err := p.gatherer.Gather(ctx, result.Ticker)
	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = datasource.ErrorKind(err)
		log.Warn().Err(err).Str("ticker", result.Ticker).
			Str("kind", result.ErrorKind).Msg("analysis aborted on fundamentals")
		return result
	}
	result.Fundamentals = fund

	sent := p.collator.GetStockSentiment(ctx, result.Ticker)
	result.CompanyName = sent.CompanyName
	result.Company = sent.Company
	result.Sector = sent.Sector

	result.Rating = p.rater.RateStock(ctx, rating.Input{
		CompanyName:      sent.CompanyName,
		FinancialHTML:    fund.HTML,
		CompanySentiment: sent.Company.Text,
		SectorSentiment:  sent.Sector.Text,
	})

	result.Success = true
	log.Info().Str("ticker", result.Ticker).Str("rating", string(result.Rating.Result.Rating)).
		Bool("fallback", result.Rating.Fallback).Dur("duration", time.Since(start)).
		Msg("analysis completed")
	return result
}

// AnalyzeBatch analyzes each ticker independently and returns results in
// input order. A failing ticker never affects its neighbors.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, tickers []string) []*models.AnalysisResult {
	results := make([]*models.AnalysisResult, len(tickers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			results[i] = p.AnalyzeStock(ctx, ticker)
			return nil
		})
	}
	g.Wait()

	return results
}

// AllFailed reports whether every result in a batch failed. The CLI uses
// this for its exit status.
func AllFailed(results []*models.AnalysisResult) bool {
	for _, r := range results {
		if r != nil && r.Success {
			return false
		}
	}
	return len(results) > 0
}
