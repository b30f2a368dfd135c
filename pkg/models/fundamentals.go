package models

import "time"

// MetricUnit tags the unit of a fundamentals metric.
type MetricUnit string

const (
	UnitUSDMillions MetricUnit = "USD (M)"
	UnitUSDPerShare MetricUnit = "USD/share"
	UnitPercent     MetricUnit = "%"
	UnitRatio       MetricUnit = "x"
	UnitShares      MetricUnit = "shares"
)

// FundamentalsRecord holds the canonical fundamentals for one fiscal period.
// All metrics are nullable: a nil pointer means the provider did not report
// the value, which is distinct from a reported zero.
type FundamentalsRecord struct {
	Ticker           string    `json:"ticker"`
	FiscalDateEnding time.Time `json:"fiscal_date_ending"`

	// Earnings
	ReportedEPS  *float64 `json:"reported_eps,omitempty"`  // USD/share
	EstimatedEPS *float64 `json:"estimated_eps,omitempty"` // USD/share
	Surprise     *float64 `json:"surprise,omitempty"`      // USD/share
	SurprisePct  *float64 `json:"surprise_pct,omitempty"`  // %

	// Income statement
	NetIncome *float64 `json:"net_income,omitempty"` // USD

	// Balance sheet
	TotalAssets             *float64 `json:"total_assets,omitempty"`
	TotalLiabilities        *float64 `json:"total_liabilities,omitempty"`
	TotalCurrentAssets      *float64 `json:"total_current_assets,omitempty"`
	TotalCurrentLiabilities *float64 `json:"total_current_liabilities,omitempty"`
	Inventory               *float64 `json:"inventory,omitempty"`
	ShareholderEquity       *float64 `json:"shareholder_equity,omitempty"`
	SharesOutstanding       *float64 `json:"shares_outstanding,omitempty"`

	// Cash flow
	OperatingCashFlow   *float64 `json:"operating_cash_flow,omitempty"`
	CapitalExpenditures *float64 `json:"capital_expenditures,omitempty"`
}

// Period returns the fiscal period label, e.g. "2025-06-30".
func (r FundamentalsRecord) Period() string {
	return r.FiscalDateEnding.Format("2006-01-02")
}

// MetricRow is one row of the display-ready fundamentals table: a named
// metric with its unit and one nullable value per fiscal period.
type MetricRow struct {
	Name   string     `json:"name"`
	Unit   MetricUnit `json:"unit"`
	Values []*float64 `json:"values"` // aligned with MetricTable.Periods
}

// MetricTable is the normalized fundamentals table for a ticker: the four
// most recent fiscal periods (newest first), metrics as rows. It is both a
// structured record set and the source of the HTML rendering embedded in
// rating prompts.
type MetricTable struct {
	Ticker  string      `json:"ticker"`
	Periods []string    `json:"periods"` // newest first
	Rows    []MetricRow `json:"rows"`
}

// Row returns the row with the given metric name, or nil.
func (t *MetricTable) Row(name string) *MetricRow {
	for i := range t.Rows {
		if t.Rows[i].Name == name {
			return &t.Rows[i]
		}
	}
	return nil
}

// Fundamentals bundles the gatherer output handed to the pipeline: the raw
// canonical records plus the rendered table.
type Fundamentals struct {
	Ticker  string               `json:"ticker"`
	Records []FundamentalsRecord `json:"records"` // newest first, at most 4
	Table   MetricTable          `json:"table"`
	HTML    string               `json:"html"`
}
