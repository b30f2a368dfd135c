package fundamentals

import "github.com/finsightlab/finsight/pkg/models"

// Canonical metric names, in display order.
const (
	MetricReportedEPS       = "Reported EPS"
	MetricEstimatedEPS      = "Estimated EPS"
	MetricSurprise          = "Surprise"
	MetricSurprisePct       = "Surprise %"
	MetricNetIncome         = "Net Income"
	MetricEPSChange         = "EPS Change QoQ"
	MetricNetIncomeChange   = "Net Income Change QoQ"
	MetricBookValuePerShare = "Book Value per Share"
	MetricReturnOnEquity    = "Return on Equity"
	MetricTotalAssets       = "Total Assets"
	MetricTotalLiabilities  = "Total Liabilities"
	MetricCurrentAssets     = "Total Current Assets"
	MetricCurrentLiab       = "Total Current Liabilities"
	MetricInventory         = "Inventory"
	MetricShareholderEquity = "Shareholder Equity"
	MetricSharesOutstanding = "Shares Outstanding"
	MetricOperatingCashFlow = "Operating Cash Flow"
	MetricCapex             = "Capital Expenditures"
	MetricFreeCashFlow      = "Free Cash Flow"
	MetricDebtToEquity      = "Debt to Equity Ratio"
	MetricCurrentRatio      = "Current Ratio"
	MetricQuickRatio        = "Quick Ratio"
	MetricLeverageRatio     = "Leverage Ratio"
)

const usdMillion = 1_000_000

// BuildTable derives the normalized metric table from canonical records.
// Records must be ordered newest first; at most four periods are kept in
// the table, with one older spare record (if present) contributing only
// to the quarter-over-quarter deltas of the oldest retained period.
// Every derived value is nil whenever an operand is missing or a
// denominator is zero.
func BuildTable(ticker string, records []models.FundamentalsRecord) models.MetricTable {
	retained := records
	if len(retained) > maxPeriods {
		retained = retained[:maxPeriods]
	}

	periods := make([]string, len(retained))
	for i, r := range retained {
		periods[i] = r.Period()
	}

	// prior returns the record one quarter older than index i, which may
	// be the spare record beyond the retained window.
	prior := func(i int) *models.FundamentalsRecord {
		if i+1 < len(records) {
			return &records[i+1]
		}
		return nil
	}

	n := len(retained)
	row := func(name string, unit models.MetricUnit, value func(i int) *float64) models.MetricRow {
		values := make([]*float64, n)
		for i := 0; i < n; i++ {
			values[i] = value(i)
		}
		return models.MetricRow{Name: name, Unit: unit, Values: values}
	}

	rows := []models.MetricRow{
		row(MetricReportedEPS, models.UnitUSDPerShare, func(i int) *float64 { return retained[i].ReportedEPS }),
		row(MetricEstimatedEPS, models.UnitUSDPerShare, func(i int) *float64 { return retained[i].EstimatedEPS }),
		row(MetricSurprise, models.UnitUSDPerShare, func(i int) *float64 { return retained[i].Surprise }),
		row(MetricSurprisePct, models.UnitPercent, func(i int) *float64 { return retained[i].SurprisePct }),
		row(MetricNetIncome, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].NetIncome) }),
		row(MetricEPSChange, models.UnitPercent, func(i int) *float64 {
			if p := prior(i); p != nil {
				return pctChange(retained[i].ReportedEPS, p.ReportedEPS)
			}
			return nil
		}),
		row(MetricNetIncomeChange, models.UnitPercent, func(i int) *float64 {
			if p := prior(i); p != nil {
				return pctChange(retained[i].NetIncome, p.NetIncome)
			}
			return nil
		}),
		row(MetricBookValuePerShare, models.UnitUSDPerShare, func(i int) *float64 {
			return div(retained[i].ShareholderEquity, retained[i].SharesOutstanding)
		}),
		row(MetricReturnOnEquity, models.UnitPercent, func(i int) *float64 {
			return scale(div(retained[i].NetIncome, retained[i].ShareholderEquity), 100)
		}),
		row(MetricTotalAssets, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].TotalAssets) }),
		row(MetricTotalLiabilities, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].TotalLiabilities) }),
		row(MetricCurrentAssets, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].TotalCurrentAssets) }),
		row(MetricCurrentLiab, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].TotalCurrentLiabilities) }),
		row(MetricInventory, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].Inventory) }),
		row(MetricShareholderEquity, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].ShareholderEquity) }),
		row(MetricSharesOutstanding, models.UnitShares, func(i int) *float64 { return retained[i].SharesOutstanding }),
		row(MetricOperatingCashFlow, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].OperatingCashFlow) }),
		row(MetricCapex, models.UnitUSDMillions, func(i int) *float64 { return toMillions(retained[i].CapitalExpenditures) }),
		row(MetricFreeCashFlow, models.UnitUSDMillions, func(i int) *float64 {
			return toMillions(sub(retained[i].OperatingCashFlow, retained[i].CapitalExpenditures))
		}),
		row(MetricDebtToEquity, models.UnitRatio, func(i int) *float64 {
			return div(retained[i].TotalLiabilities, retained[i].ShareholderEquity)
		}),
		row(MetricCurrentRatio, models.UnitRatio, func(i int) *float64 {
			return div(retained[i].TotalCurrentAssets, retained[i].TotalCurrentLiabilities)
		}),
		row(MetricQuickRatio, models.UnitRatio, func(i int) *float64 {
			return div(sub(retained[i].TotalCurrentAssets, retained[i].Inventory), retained[i].TotalCurrentLiabilities)
		}),
		row(MetricLeverageRatio, models.UnitRatio, func(i int) *float64 {
			return div(retained[i].TotalLiabilities, retained[i].TotalAssets)
		}),
	}

	return models.MetricTable{
		Ticker:  ticker,
		Periods: periods,
		Rows:    rows,
	}
}

// ── Nil-safe arithmetic ──

// pctChange returns (cur-prev)/prev*100, or nil when an operand is
// missing or prev is zero.
func pctChange(cur, prev *float64) *float64 {
	if cur == nil || prev == nil || *prev == 0 {
		return nil
	}
	v := (*cur - *prev) / *prev * 100
	return &v
}

func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}

func div(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := *num / *den
	return &v
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v * factor
	return &s
}

func toMillions(v *float64) *float64 {
	return scale(v, 1.0/usdMillion)
}
