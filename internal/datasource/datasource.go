// Package datasource provides data fetching from the remote providers the
// pipeline depends on: Alpha Vantage and Financial Modeling Prep for
// fundamentals, Exa and Tavily for news search, and an RSS fallback.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/finsightlab/finsight/internal/infra"
	"github.com/finsightlab/finsight/pkg/models"
)

// FundamentalsSource fetches canonical fundamentals records and company
// metadata for a ticker.
type FundamentalsSource interface {
	// Name returns the human-readable name of this source.
	Name() string

	// GetFundamentals returns the canonical fundamentals records for the
	// ticker, one per fiscal period.
	GetFundamentals(ctx context.Context, ticker string) ([]models.FundamentalsRecord, error)

	// GetProfile resolves the ticker to company name, sector, and industry.
	GetProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error)
}

// NewsSource searches for recent news articles matching a query.
type NewsSource interface {
	// Name returns the human-readable name of this source.
	Name() string

	// SearchNews returns articles for the query published inside the
	// [from, to] window, at most limit of them.
	SearchNews(ctx context.Context, query string, from, to time.Time, limit int) ([]models.NewsArticle, error)
}

// --- Sentinel errors ---

// ErrProviderAuth is returned for missing or rejected credentials.
var ErrProviderAuth = errors.New("provider authentication failed")

// ErrProviderRateLimit is returned when a provider throttles the request.
var ErrProviderRateLimit = errors.New("provider rate limit exceeded")

// ErrProviderNotFound is returned when a ticker cannot be resolved.
var ErrProviderNotFound = errors.New("ticker not found")

// ErrProviderTransient is returned for retryable provider failures
// (timeouts, 5xx responses, connection errors).
var ErrProviderTransient = errors.New("transient provider error")

// ErrEmptyResult is returned when a provider responds successfully but
// with no usable data.
var ErrEmptyResult = errors.New("provider returned no data")

// classifyHTTPError maps a failed request to one of the sentinel error
// kinds. Any *infra.ErrHTTP is classified by status; everything else
// (DNS, timeout, connection reset) is transient.
func classifyHTTPError(err error) error {
	var httpErr *infra.ErrHTTP
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrProviderAuth, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrProviderRateLimit, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrProviderNotFound, err)
		default:
			return fmt.Errorf("%w: %v", ErrProviderTransient, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrProviderTransient, err)
}

// ErrorKind returns the stable name of the error's classification, used
// in export files and API responses. Unclassified errors report as
// transient.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderAuth):
		return "ProviderAuth"
	case errors.Is(err, ErrProviderRateLimit):
		return "ProviderRateLimit"
	case errors.Is(err, ErrProviderNotFound):
		return "ProviderNotFound"
	case errors.Is(err, ErrEmptyResult):
		return "EmptyResult"
	default:
		return "ProviderTransient"
	}
}
