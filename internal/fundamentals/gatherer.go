// Package fundamentals turns raw provider records into the normalized
// metric table used by the rating prompt: unit conversion to USD
// millions, derived ratios, quarter-over-quarter changes, and an HTML
// rendering.
package fundamentals

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"github.com/finsightlab/finsight/internal/datasource"
	"github.com/finsightlab/finsight/pkg/models"
)

// maxPeriods is the number of fiscal quarters retained in the table.
const maxPeriods = 4

// Gatherer fetches fundamentals through a FundamentalsSource and builds
// the display-ready metric table.
type Gatherer struct {
	source datasource.FundamentalsSource
}

// NewGatherer creates a gatherer on top of the given source.
func NewGatherer(source datasource.FundamentalsSource) *Gatherer {
	return &Gatherer{source: source}
}

// Source returns the underlying fundamentals source.
func (g *Gatherer) Source() datasource.FundamentalsSource { return g.source }

// Gather fetches records for the ticker, retains the four most recent
// fiscal periods (newest first), and derives the metric table plus its
// HTML rendering. Provider failures propagate with their classification.
func (g *Gatherer) Gather(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	records, err := g.source.GetFundamentals(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("gather fundamentals for %s: %w", ticker, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("gather fundamentals for %s: %w", ticker, datasource.ErrEmptyResult)
	}

	// Sources return newest first; keep a defensive cap regardless.
	if len(records) > maxPeriods+1 {
		// One extra period so the oldest retained quarter still gets a
		// quarter-over-quarter delta.
		records = records[:maxPeriods+1]
	}

	table := BuildTable(ticker, records)
	html, err := RenderHTML(table)
	if err != nil {
		return nil, fmt.Errorf("render fundamentals table for %s: %w", ticker, err)
	}

	if len(records) > maxPeriods {
		records = records[:maxPeriods]
	}

	log.Info().Str("ticker", ticker).Int("periods", len(table.Periods)).
		Str("source", g.source.Name()).Msg("fundamentals gathered")

	return &models.Fundamentals{
		Ticker:  ticker,
		Records: records,
		Table:   table,
		HTML:    html,
	}, nil
}
