package screener

import (
	"fmt"
	"sort"
	"strings"
)

// Finviz table view codes.
const (
	ViewOverview  = "111"
	ViewValuation = "161"
	ViewDividends = "121"
)

// Strategy is a named filter set bound to a table view. Filter strings
// use Finviz's own filter syntax, e.g. "fa_pe_u15" for P/E under 15.
type Strategy struct {
	Name        string
	Description string
	Filters     []string
	View        string
}

// presets holds the built-in strategies, keyed by name.
var presets = map[string]Strategy{
	"quality": {
		Name:        "quality",
		Description: "Profitable growers at a reasonable price",
		Filters: []string{
			"cap_largeover",
			"exch_nasd",
			"fa_epsyoyttm_pos",
			"fa_evebitda_o10",
			"fa_pe_u25",
			"fa_roa_o10",
			"fa_roe_o15",
			"fa_salesyoyttm_o5",
		},
		View: ViewOverview,
	},
	"value": {
		Name:        "value",
		Description: "Undervalued large caps with strong balance sheets",
		Filters: []string{
			"cap_largeover",
			"exch_nasd",
			"fa_pe_u15",
			"fa_pb_u2",
			"fa_pfcf_u15",
			"fa_roe_o10",
			"fa_roa_o5",
			"fa_debt_u0.5",
		},
		View: ViewValuation,
	},
	"growth": {
		Name:        "growth",
		Description: "Fast earnings and revenue growth at a sane PEG",
		Filters: []string{
			"cap_midover",
			"fa_epsyoyttm_o20",
			"fa_salesyoyttm_o10",
			"fa_peg_u2",
			"fa_roe_o10",
		},
		View: ViewOverview,
	},
	"dividend": {
		Name:        "dividend",
		Description: "Sustainable dividend payers yielding 2%+",
		Filters: []string{
			"cap_largeover",
			"exch_nasd",
			"fa_div_pos",
			"fa_div_o2",
			"fa_pe_u20",
			"fa_roe_o10",
			"fa_payoutratio_u60",
		},
		View: ViewDividends,
	},
	"momentum": {
		Name:        "momentum",
		Description: "Uptrending stocks with earnings momentum",
		Filters: []string{
			"cap_largeover",
			"exch_nasd",
			"ta_perf_13w_o10",
			"ta_perf_26w_o20",
			"ta_rsi_no60",
			"fa_epsyoyttm_o20",
			"ta_sma20_pa",
			"ta_sma50_pa",
		},
		View: ViewOverview,
	},
	"buffett": {
		Name:        "buffett",
		Description: "Durable franchises: high ROE, low debt, steady EPS growth",
		Filters: []string{
			"cap_largeover",
			"fa_roe_o15",
			"fa_pe_u20",
			"fa_debt_u0.4",
			"fa_eps5years_o10",
			"fa_epsyoy_o5",
		},
		View: ViewOverview,
	},
	"lynch": {
		Name:        "lynch",
		Description: "Growth at a reasonable price with 52-week momentum",
		Filters: []string{
			"cap_midover",
			"fa_epsyoy_o15",
			"fa_pe_u25",
			"fa_peg_u1.5",
			"ta_perf_52w_o10",
		},
		View: ViewOverview,
	},
	"dividend-aristocrat": {
		Name:        "dividend-aristocrat",
		Description: "Large caps with well-covered dividends and solid returns",
		Filters: []string{
			"cap_largeover",
			"fa_div_pos",
			"fa_div_o2",
			"fa_payoutratio_u60",
			"fa_roe_o12",
		},
		View: ViewDividends,
	},
}

// StrategyByName looks up a preset strategy. The name is matched
// case-insensitively.
func StrategyByName(name string) (Strategy, error) {
	s, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Strategy{}, fmt.Errorf("unknown strategy %q (available: %s)", name, strings.Join(StrategyNames(), ", "))
	}
	return s, nil
}

// StrategyNames lists the preset strategy names in sorted order.
func StrategyNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
