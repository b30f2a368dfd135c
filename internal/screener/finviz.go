// Package screener scrapes the Finviz stock screener: preset and custom
// filter sets, pagination, tolerant column mapping into typed rows, and
// CSV export. Screening is independent of the analysis pipeline.
package screener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"

	"github.com/finsightlab/finsight/internal/infra"
	"github.com/finsightlab/finsight/pkg/models"
)

const (
	finvizBaseURL = "https://finviz.com/screener.ashx"

	// pageSize is the fixed number of rows Finviz serves per page. A page
	// with fewer rows is the last one.
	pageSize = 20

	defaultMaxPages = 50
)

// ErrNoResults is returned when a screen matches no rows at all.
var ErrNoResults = errors.New("screener: no results")

// Screener runs screening queries against Finviz.
type Screener struct {
	baseURL  string
	maxPages int
	limiter  *infra.RateLimiter
}

// Option configures a Screener.
type Option func(*Screener)

// WithBaseURL overrides the screener endpoint.
func WithBaseURL(u string) Option {
	return func(s *Screener) { s.baseURL = u }
}

// WithMaxPages caps the number of pages fetched per screen.
func WithMaxPages(n int) Option {
	return func(s *Screener) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithRequestsPerMinute sets the scrape rate limit.
func WithRequestsPerMinute(n int) Option {
	return func(s *Screener) {
		if n > 0 {
			s.limiter = infra.NewRateLimiter(n, time.Minute)
		}
	}
}

// New creates a screener with the public endpoint, the 50-page safety
// cap, and a conservative scrape rate.
func New(opts ...Option) *Screener {
	s := &Screener{
		baseURL:  finvizBaseURL,
		maxPages: defaultMaxPages,
		limiter:  infra.NewRateLimiter(30, time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes a preset strategy.
func (s *Screener) Run(ctx context.Context, strategy Strategy) (*models.ScreenResult, error) {
	return s.screen(ctx, strategy.Name, strategy.Filters, strategy.View)
}

// RunCustom executes an ad-hoc filter list against a table view. An empty
// view defaults to the overview table.
func (s *Screener) RunCustom(ctx context.Context, filters []string, view string) (*models.ScreenResult, error) {
	if view == "" {
		view = ViewOverview
	}
	return s.screen(ctx, "custom", filters, view)
}

// screen paginates until a short page, an empty page, or the page cap.
func (s *Screener) screen(ctx context.Context, name string, filters []string, view string) (*models.ScreenResult, error) {
	result := &models.ScreenResult{Strategy: name, Filters: filters}

	for page := 1; page <= s.maxPages; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		rows, err := s.scrapePage(ctx, filters, view, page)
		if err != nil {
			return nil, fmt.Errorf("screen %s page %d: %w", name, page, err)
		}
		if len(rows) == 0 {
			break
		}

		result.Rows = append(result.Rows, rows...)
		result.Pages = page
		if len(rows) < pageSize {
			break
		}
	}

	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("screen %s: %w", name, ErrNoResults)
	}

	log.Info().Str("strategy", name).Int("rows", len(result.Rows)).
		Int("pages", result.Pages).Msg("screen completed")
	return result, nil
}

// scrapePage fetches and parses one result page.
func (s *Screener) scrapePage(ctx context.Context, filters []string, view string, page int) ([]models.ScreenRow, error) {
	params := url.Values{}
	params.Set("v", view)
	params.Set("r", strconv.Itoa((page-1)*pageSize+1))
	if len(filters) > 0 {
		params.Set("f", strings.Join(filters, ","))
	}

	body, _, err := infra.DoGet(ctx, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse screener page: %w", err)
	}
	return parseTable(doc), nil
}

// parseTable extracts rows from the screener table. Rows whose cell count
// does not match the header count are skipped.
func parseTable(doc *goquery.Document) []models.ScreenRow {
	table := doc.Find("table.screener_table").First()
	if table.Length() == 0 {
		return nil
	}

	var headers []string
	table.Find("tr").First().Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(cell.Text()))
	})
	if len(headers) == 0 {
		return nil
	}

	var rows []models.ScreenRow
	table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
		cells := extractCells(tr)
		if len(cells) != len(headers) {
			return
		}
		if row, ok := mapRow(headers, cells); ok {
			rows = append(rows, row)
		}
	})
	return rows
}

// extractCells returns the text of each cell, preferring the quote link
// text for ticker cells.
func extractCells(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		link := cell.Find(`a[href*="quote.ashx?t="]`).First()
		if link.Length() > 0 {
			cells = append(cells, strings.TrimSpace(link.Text()))
			return
		}
		cells = append(cells, strings.TrimSpace(cell.Text()))
	})
	return cells
}

// mapRow maps a header/cell pair into a typed row. Known columns fill the
// named fields; everything else lands in Extra keyed by header. Rows
// without a ticker are dropped.
func mapRow(headers, cells []string) (models.ScreenRow, bool) {
	var row models.ScreenRow
	for i, header := range headers {
		value := cells[i]
		switch strings.ToLower(header) {
		case "no.":
			// row counter, not data
		case "ticker":
			row.Ticker = strings.ToUpper(value)
		case "company":
			row.Company = strPtr(value)
		case "sector":
			row.Sector = strPtr(value)
		case "industry":
			row.Industry = strPtr(value)
		case "country":
			row.Country = strPtr(value)
		case "market cap":
			row.MarketCap = strPtr(value)
		case "p/e":
			row.PE = numPtr(value)
		case "price":
			row.Price = numPtr(value)
		case "change":
			row.ChangePct = numPtr(value)
		case "volume":
			row.Volume = strPtr(value)
		default:
			if value != "" && value != "-" {
				if row.Extra == nil {
					row.Extra = make(map[string]string)
				}
				row.Extra[header] = value
			}
		}
	}
	return row, row.Ticker != ""
}

func strPtr(s string) *string {
	if s == "" || s == "-" {
		return nil
	}
	return &s
}

// numPtr parses a display value such as "1,234.56" or "-2.31%". Dashes
// and unparseable text yield nil.
func numPtr(s string) *float64 {
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	if s == "" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
