package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/finsightlab/finsight/pkg/models"
	"github.com/finsightlab/finsight/pkg/utils"
)

// ExportJSON writes the analysis result to <dir>/<ticker>_<timestamp>.json.
func ExportJSON(result *models.AnalysisResult, dir string) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal analysis result: %w", err)
	}
	return writeExport(result, dir, "json", data)
}

// ExportText writes the human-readable report to
// <dir>/<ticker>_<timestamp>.txt.
func ExportText(result *models.AnalysisResult, dir string) (string, error) {
	return writeExport(result, dir, "txt", []byte(FormatText(result)))
}

func writeExport(result *models.AnalysisResult, dir, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.%s", result.Ticker, utils.ExportTimestamp(result.AnalyzedAt), ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// FormatText renders the analysis as a plain-text report. Failed analyses
// get a short report naming the terminal error.
func FormatText(result *models.AnalysisResult) string {
	var sb strings.Builder
	line := strings.Repeat("=", 64)

	fmt.Fprintf(&sb, "%s\nStock Analysis: %s\n%s\n", line, result.Ticker, line)
	if result.CompanyName != "" && result.CompanyName != result.Ticker {
		fmt.Fprintf(&sb, "Company:    %s\n", result.CompanyName)
	}
	fmt.Fprintf(&sb, "Run ID:     %s\n", result.RunID)
	fmt.Fprintf(&sb, "Analyzed:   %s\n", utils.FormatDateTime(result.AnalyzedAt))
	fmt.Fprintf(&sb, "Duration:   %s\n\n", result.Duration.Round(time.Millisecond))

	if !result.Success {
		fmt.Fprintf(&sb, "Analysis failed.\n")
		if result.ErrorKind != "" {
			fmt.Fprintf(&sb, "Error kind: %s\n", result.ErrorKind)
		}
		fmt.Fprintf(&sb, "Error:      %s\n", result.Error)
		return sb.String()
	}

	r := result.Rating.Result
	fmt.Fprintf(&sb, "Rating:     %s (confidence %.2f)\n", r.Rating, r.Confidence)
	if result.Rating.Fallback {
		fmt.Fprintf(&sb, "Note:       fallback rating (%s)\n", result.Rating.FallbackReason)
	}
	fmt.Fprintf(&sb, "\n-- Reasoning --\n%s\n", r.Reasoning)
	if len(r.KeyFactors) > 0 {
		sb.WriteString("\n-- Key Factors --\n")
		for _, f := range r.KeyFactors {
			fmt.Fprintf(&sb, "  + %s\n", f)
		}
	}
	if len(r.RiskFactors) > 0 {
		sb.WriteString("\n-- Risk Factors --\n")
		for _, f := range r.RiskFactors {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
	}
	if r.RecommendationSummary != "" {
		fmt.Fprintf(&sb, "\n-- Recommendation --\n%s\n", r.RecommendationSummary)
	}

	sb.WriteString("\n-- Company Sentiment --\n")
	fmt.Fprintf(&sb, "%s\n", sentimentLine(result.Company))
	sb.WriteString("\n-- Sector Sentiment --\n")
	fmt.Fprintf(&sb, "%s\n", sentimentLine(result.Sector))

	if result.Fundamentals != nil {
		sb.WriteString("\n-- Fundamentals --\n")
		sb.WriteString(FormatTable(result.Fundamentals.Table))
	}
	return sb.String()
}

func sentimentLine(agg models.SentimentAggregate) string {
	if agg.Score != nil {
		return fmt.Sprintf("Score %+.1f over %d articles. %s", *agg.Score, agg.Articles, agg.Text)
	}
	return agg.Text
}

// FormatTable renders the metric table as aligned text columns.
func FormatTable(table models.MetricTable) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-26s %-14s", "Metric", "Unit")
	for _, p := range table.Periods {
		fmt.Fprintf(&sb, " %12s", p)
	}
	sb.WriteString("\n")
	for _, row := range table.Rows {
		fmt.Fprintf(&sb, "%-26s %-14s", row.Name, row.Unit)
		for _, v := range row.Values {
			if v == nil {
				fmt.Fprintf(&sb, " %12s", "N/A")
			} else {
				fmt.Fprintf(&sb, " %12.2f", *v)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
