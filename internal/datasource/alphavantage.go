package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/phuslu/log"

	"github.com/finsightlab/finsight/internal/infra"
	"github.com/finsightlab/finsight/pkg/models"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageSource implements FundamentalsSource against the Alpha
// Vantage REST API. One GetFundamentals call issues four function
// requests (EARNINGS, INCOME_STATEMENT, BALANCE_SHEET, CASH_FLOW) and
// merges them by fiscal period.
type AlphaVantageSource struct {
	apiKey  string
	baseURL string
	limiter *infra.RateLimiter
	cache   *infra.Cache
}

// AlphaVantageOption configures the source.
type AlphaVantageOption func(*AlphaVantageSource)

// WithAlphaVantageBaseURL overrides the API base URL.
func WithAlphaVantageBaseURL(u string) AlphaVantageOption {
	return func(s *AlphaVantageSource) { s.baseURL = u }
}

// NewAlphaVantageSource creates an Alpha Vantage fundamentals source.
func NewAlphaVantageSource(apiKey string, opts ...AlphaVantageOption) *AlphaVantageSource {
	s := &AlphaVantageSource{
		apiKey:  apiKey,
		baseURL: alphaVantageBaseURL,
		// Free tier allows 5 requests/minute; one analysis needs 5.
		limiter: infra.NewRateLimiter(5, time.Minute),
		cache:   infra.NewCache(5 * time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AlphaVantageSource) Name() string { return "Alpha Vantage" }

// GetFundamentals fetches and merges the four statement endpoints into
// canonical records, one per fiscal period. Earnings quarters anchor the
// merge; statement rows for other periods are dropped.
func (s *AlphaVantageSource) GetFundamentals(ctx context.Context, ticker string) ([]models.FundamentalsRecord, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: Alpha Vantage API key not configured", ErrProviderAuth)
	}

	cacheKey := "av:fundamentals:" + ticker
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]models.FundamentalsRecord), nil
	}

	earnings, err := s.fetchEarnings(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if len(earnings) == 0 {
		return nil, fmt.Errorf("%w: no earnings data for %s", ErrEmptyResult, ticker)
	}

	income, err := s.fetchQuarterlyReports(ctx, ticker, "INCOME_STATEMENT")
	if err != nil {
		return nil, err
	}
	balance, err := s.fetchQuarterlyReports(ctx, ticker, "BALANCE_SHEET")
	if err != nil {
		return nil, err
	}
	cashflow, err := s.fetchQuarterlyReports(ctx, ticker, "CASH_FLOW")
	if err != nil {
		return nil, err
	}

	incomeByPeriod := indexByPeriod(income)
	balanceByPeriod := indexByPeriod(balance)
	cashflowByPeriod := indexByPeriod(cashflow)

	records := make([]models.FundamentalsRecord, 0, len(earnings))
	for _, e := range earnings {
		date, err := time.Parse("2006-01-02", e.FiscalDateEnding)
		if err != nil {
			log.Warn().Str("ticker", ticker).Str("period", e.FiscalDateEnding).Msg("skipping earnings row with unparseable fiscal date")
			continue
		}

		rec := models.FundamentalsRecord{
			Ticker:           ticker,
			FiscalDateEnding: date,
			ReportedEPS:      parseNumeric(e.ReportedEPS),
			EstimatedEPS:     parseNumeric(e.EstimatedEPS),
			Surprise:         parseNumeric(e.Surprise),
			SurprisePct:      parseNumeric(e.SurprisePercentage),
		}
		// Quarters without a reported EPS are placeholders, drop them.
		if rec.ReportedEPS == nil {
			continue
		}

		if row, ok := incomeByPeriod[e.FiscalDateEnding]; ok {
			rec.NetIncome = parseNumeric(row["netIncome"])
		}
		if row, ok := balanceByPeriod[e.FiscalDateEnding]; ok {
			rec.TotalAssets = parseNumeric(row["totalAssets"])
			rec.TotalLiabilities = parseNumeric(row["totalLiabilities"])
			rec.TotalCurrentAssets = parseNumeric(row["totalCurrentAssets"])
			rec.TotalCurrentLiabilities = parseNumeric(row["totalCurrentLiabilities"])
			rec.Inventory = parseNumeric(row["inventory"])
			rec.ShareholderEquity = parseNumeric(row["totalShareholderEquity"])
			rec.SharesOutstanding = parseNumeric(row["commonStockSharesOutstanding"])
		}
		if row, ok := cashflowByPeriod[e.FiscalDateEnding]; ok {
			rec.OperatingCashFlow = parseNumeric(row["operatingCashflow"])
			rec.CapitalExpenditures = parseNumeric(row["capitalExpenditures"])
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no usable fundamentals for %s", ErrEmptyResult, ticker)
	}

	// Newest first.
	sort.Slice(records, func(i, j int) bool {
		return records[i].FiscalDateEnding.After(records[j].FiscalDateEnding)
	})

	s.cache.Set(cacheKey, records)
	return records, nil
}

// GetProfile resolves company metadata via the OVERVIEW function.
func (s *AlphaVantageSource) GetProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: Alpha Vantage API key not configured", ErrProviderAuth)
	}

	cacheKey := "av:overview:" + ticker
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*models.CompanyProfile), nil
	}

	var overview struct {
		Symbol      string `json:"Symbol"`
		Name        string `json:"Name"`
		Sector      string `json:"Sector"`
		Industry    string `json:"Industry"`
		Description string `json:"Description"`
	}
	if err := s.callAPI(ctx, ticker, "OVERVIEW", &overview); err != nil {
		return nil, err
	}
	if overview.Symbol == "" && overview.Name == "" {
		return nil, fmt.Errorf("%w: no overview for %s", ErrProviderNotFound, ticker)
	}

	profile := &models.CompanyProfile{
		Ticker:      ticker,
		Name:        overview.Name,
		Sector:      overview.Sector,
		Industry:    overview.Industry,
		Description: overview.Description,
	}
	s.cache.SetWithTTL(cacheKey, profile, time.Hour)
	return profile, nil
}

// ── API plumbing ──

type avEarningsQuarter struct {
	FiscalDateEnding   string `json:"fiscalDateEnding"`
	ReportedEPS        string `json:"reportedEPS"`
	EstimatedEPS       string `json:"estimatedEPS"`
	Surprise           string `json:"surprise"`
	SurprisePercentage string `json:"surprisePercentage"`
}

func (s *AlphaVantageSource) fetchEarnings(ctx context.Context, ticker string) ([]avEarningsQuarter, error) {
	var payload struct {
		QuarterlyEarnings []avEarningsQuarter `json:"quarterlyEarnings"`
	}
	if err := s.callAPI(ctx, ticker, "EARNINGS", &payload); err != nil {
		return nil, err
	}
	return payload.QuarterlyEarnings, nil
}

// fetchQuarterlyReports fetches a statement endpoint whose rows share the
// quarterlyReports shape: string-valued fields keyed by metric name.
func (s *AlphaVantageSource) fetchQuarterlyReports(ctx context.Context, ticker, function string) ([]map[string]string, error) {
	var payload struct {
		QuarterlyReports []map[string]string `json:"quarterlyReports"`
	}
	if err := s.callAPI(ctx, ticker, function, &payload); err != nil {
		return nil, err
	}
	return payload.QuarterlyReports, nil
}

func (s *AlphaVantageSource) callAPI(ctx context.Context, ticker, function string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	u := fmt.Sprintf("%s?function=%s&symbol=%s&apikey=%s",
		s.baseURL, function, url.QueryEscape(ticker), url.QueryEscape(s.apiKey))

	body, _, err := infra.DoGet(ctx, u, nil)
	if err != nil {
		return classifyHTTPError(err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrProviderTransient, err)
	}

	// Alpha Vantage reports errors inside a 200 response.
	var envelope struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
		Information  string `json:"Information"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProviderTransient, err)
	}
	if envelope.ErrorMessage != "" {
		return fmt.Errorf("%w: %s %s: %s", ErrProviderNotFound, function, ticker, envelope.ErrorMessage)
	}
	if envelope.Note != "" || envelope.Information != "" {
		return fmt.Errorf("%w: %s", ErrProviderRateLimit, firstNonEmpty(envelope.Note, envelope.Information))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", ErrProviderTransient, function, err)
	}
	return nil
}

func indexByPeriod(rows []map[string]string) map[string]map[string]string {
	idx := make(map[string]map[string]string, len(rows))
	for _, row := range rows {
		if period := row["fiscalDateEnding"]; period != "" {
			idx[period] = row
		}
	}
	return idx
}

// parseNumeric parses a provider numeric string. "None", "-", and empty
// strings are missing values, not zeros.
func parseNumeric(s string) *float64 {
	switch s {
	case "", "None", "none", "-", "nan", "NaN":
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
