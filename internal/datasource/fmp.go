package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/finsightlab/finsight/internal/infra"
	"github.com/finsightlab/finsight/pkg/models"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPSource implements FundamentalsSource against the Financial Modeling
// Prep API. It is the alternative to Alpha Vantage, selected through
// the providers.fundamentals config key.
type FMPSource struct {
	apiKey  string
	baseURL string
	limiter *infra.RateLimiter
	cache   *infra.Cache
}

// FMPOption configures the source.
type FMPOption func(*FMPSource)

// WithFMPBaseURL overrides the API base URL.
func WithFMPBaseURL(u string) FMPOption {
	return func(s *FMPSource) { s.baseURL = u }
}

// NewFMPSource creates a Financial Modeling Prep fundamentals source.
func NewFMPSource(apiKey string, opts ...FMPOption) *FMPSource {
	s := &FMPSource{
		apiKey:  apiKey,
		baseURL: fmpBaseURL,
		limiter: infra.NewRateLimiter(10, time.Minute),
		cache:   infra.NewCache(5 * time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FMPSource) Name() string { return "Financial Modeling Prep" }

// ── FMP response shapes ──

type fmpIncomeRow struct {
	Date      string  `json:"date"`
	NetIncome float64 `json:"netIncome"`
	EPS       float64 `json:"eps"`
	EPSDil    float64 `json:"epsdiluted"`
}

type fmpBalanceRow struct {
	Date                    string  `json:"date"`
	TotalAssets             float64 `json:"totalAssets"`
	TotalLiabilities        float64 `json:"totalLiabilities"`
	TotalCurrentAssets      float64 `json:"totalCurrentAssets"`
	TotalCurrentLiabilities float64 `json:"totalCurrentLiabilities"`
	Inventory               float64 `json:"inventory"`
	TotalStockholdersEquity float64 `json:"totalStockholdersEquity"`
	CommonStock             float64 `json:"commonStock"`
}

type fmpCashFlowRow struct {
	Date               string  `json:"date"`
	OperatingCashFlow  float64 `json:"operatingCashFlow"`
	CapitalExpenditure float64 `json:"capitalExpenditure"`
	FreeCashFlow       float64 `json:"freeCashFlow"`
}

type fmpProfileRow struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
}

// GetFundamentals merges the three quarterly statement endpoints into
// canonical records keyed by period date. Income statement quarters
// anchor the merge.
func (s *FMPSource) GetFundamentals(ctx context.Context, ticker string) ([]models.FundamentalsRecord, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: FMP API key not configured", ErrProviderAuth)
	}

	cacheKey := "fmp:fundamentals:" + ticker
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]models.FundamentalsRecord), nil
	}

	var income []fmpIncomeRow
	if err := s.fetchJSON(ctx, fmt.Sprintf("/income-statement/%s?period=quarter&limit=8", url.PathEscape(ticker)), &income); err != nil {
		return nil, err
	}
	if len(income) == 0 {
		return nil, fmt.Errorf("%w: no income statements for %s", ErrEmptyResult, ticker)
	}

	var balance []fmpBalanceRow
	if err := s.fetchJSON(ctx, fmt.Sprintf("/balance-sheet-statement/%s?period=quarter&limit=8", url.PathEscape(ticker)), &balance); err != nil {
		return nil, err
	}
	var cashflow []fmpCashFlowRow
	if err := s.fetchJSON(ctx, fmt.Sprintf("/cash-flow-statement/%s?period=quarter&limit=8", url.PathEscape(ticker)), &cashflow); err != nil {
		return nil, err
	}

	balanceByDate := make(map[string]fmpBalanceRow, len(balance))
	for _, b := range balance {
		balanceByDate[b.Date] = b
	}
	cashflowByDate := make(map[string]fmpCashFlowRow, len(cashflow))
	for _, c := range cashflow {
		cashflowByDate[c.Date] = c
	}

	records := make([]models.FundamentalsRecord, 0, len(income))
	for _, in := range income {
		date, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			continue
		}
		rec := models.FundamentalsRecord{
			Ticker:           ticker,
			FiscalDateEnding: date,
			ReportedEPS:      nonZeroPtr(in.EPSDil, in.EPS),
			NetIncome:        ptr(in.NetIncome),
		}
		if b, ok := balanceByDate[in.Date]; ok {
			rec.TotalAssets = ptr(b.TotalAssets)
			rec.TotalLiabilities = ptr(b.TotalLiabilities)
			rec.TotalCurrentAssets = ptr(b.TotalCurrentAssets)
			rec.TotalCurrentLiabilities = ptr(b.TotalCurrentLiabilities)
			rec.Inventory = ptr(b.Inventory)
			rec.ShareholderEquity = ptr(b.TotalStockholdersEquity)
		}
		if c, ok := cashflowByDate[in.Date]; ok {
			rec.OperatingCashFlow = ptr(c.OperatingCashFlow)
			// FMP reports capex as a negative outflow; canonical records
			// carry the spend magnitude.
			capex := c.CapitalExpenditure
			if capex < 0 {
				capex = -capex
			}
			rec.CapitalExpenditures = ptr(capex)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no usable fundamentals for %s", ErrEmptyResult, ticker)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].FiscalDateEnding.After(records[j].FiscalDateEnding)
	})

	s.cache.Set(cacheKey, records)
	return records, nil
}

// GetProfile resolves company metadata via the profile endpoint.
func (s *FMPSource) GetProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: FMP API key not configured", ErrProviderAuth)
	}

	cacheKey := "fmp:profile:" + ticker
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*models.CompanyProfile), nil
	}

	var rows []fmpProfileRow
	if err := s.fetchJSON(ctx, "/profile/"+url.PathEscape(ticker), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no profile for %s", ErrProviderNotFound, ticker)
	}

	profile := &models.CompanyProfile{
		Ticker:      ticker,
		Name:        rows[0].CompanyName,
		Sector:      rows[0].Sector,
		Industry:    rows[0].Industry,
		Description: rows[0].Description,
	}
	s.cache.SetWithTTL(cacheKey, profile, time.Hour)
	return profile, nil
}

func (s *FMPSource) fetchJSON(ctx context.Context, path string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	sep := "?"
	for _, c := range path {
		if c == '?' {
			sep = "&"
			break
		}
	}
	u := s.baseURL + path + sep + "apikey=" + url.QueryEscape(s.apiKey)

	body, _, err := infra.DoGet(ctx, u, nil)
	if err != nil {
		return classifyHTTPError(err)
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode FMP response: %v", ErrProviderTransient, err)
	}
	return nil
}

func ptr(f float64) *float64 { return &f }

// nonZeroPtr returns the first non-zero value, or nil if all are zero.
func nonZeroPtr(values ...float64) *float64 {
	for _, v := range values {
		if v != 0 {
			return ptr(v)
		}
	}
	return nil
}
