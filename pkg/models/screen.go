package models

// ScreenRow is one row of a screening result. Column presence varies by
// table view and query, so everything beyond the ticker is nullable: an
// absent column is a nil pointer, never an error.
type ScreenRow struct {
	Ticker    string   `json:"ticker"`
	Company   *string  `json:"company,omitempty"`
	Sector    *string  `json:"sector,omitempty"`
	Industry  *string  `json:"industry,omitempty"`
	Country   *string  `json:"country,omitempty"`
	MarketCap *string  `json:"market_cap,omitempty"` // as displayed, e.g. "1.25B"
	PE        *float64 `json:"pe,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	ChangePct *float64 `json:"change_pct,omitempty"`
	Volume    *string  `json:"volume,omitempty"`

	// Extra carries columns not mapped to a named field, keyed by the
	// page's column header.
	Extra map[string]string `json:"extra,omitempty"`
}

// ScreenResult is the full output of one screening query.
type ScreenResult struct {
	Strategy string      `json:"strategy"`
	Filters  []string    `json:"filters"`
	Rows     []ScreenRow `json:"rows"`
	Pages    int         `json:"pages"`
}

// Top returns the first n rows (the site returns rows already ranked).
func (r *ScreenResult) Top(n int) []ScreenRow {
	if n <= 0 || n >= len(r.Rows) {
		return r.Rows
	}
	return r.Rows[:n]
}
