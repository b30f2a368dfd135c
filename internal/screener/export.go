package screener

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/finsightlab/finsight/pkg/models"
	"github.com/finsightlab/finsight/pkg/utils"
)

// ExportCSV writes a screen result to <dir>/<name>_<timestamp>.csv and
// returns the file path. Named columns come first; extra columns follow
// in sorted header order. Missing values render as empty cells.
func ExportCSV(result *models.ScreenResult, dir, name string, now time.Time) (string, error) {
	if result == nil || len(result.Rows) == 0 {
		return "", ErrNoResults
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", name, utils.ExportTimestamp(now)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	extras := extraHeaders(result.Rows)
	header := append([]string{
		"Ticker", "Company", "Sector", "Industry", "Country",
		"Market Cap", "P/E", "Price", "Change %", "Volume",
	}, extras...)

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range result.Rows {
		record := []string{
			row.Ticker,
			strOrEmpty(row.Company),
			strOrEmpty(row.Sector),
			strOrEmpty(row.Industry),
			strOrEmpty(row.Country),
			strOrEmpty(row.MarketCap),
			numOrEmpty(row.PE),
			numOrEmpty(row.Price),
			numOrEmpty(row.ChangePct),
			strOrEmpty(row.Volume),
		}
		for _, h := range extras {
			record = append(record, row.Extra[h])
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}

// extraHeaders collects the union of Extra column headers across rows.
func extraHeaders(rows []models.ScreenRow) []string {
	set := make(map[string]bool)
	for _, row := range rows {
		for h := range row.Extra {
			set[h] = true
		}
	}
	headers := make([]string, 0, len(set))
	for h := range set {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func numOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
