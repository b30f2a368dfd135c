package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finsightlab/finsight/api"
	"github.com/finsightlab/finsight/internal/config"
	"github.com/finsightlab/finsight/internal/datasource"
	"github.com/finsightlab/finsight/internal/fundamentals"
	"github.com/finsightlab/finsight/internal/llm"
	"github.com/finsightlab/finsight/internal/pipeline"
	"github.com/finsightlab/finsight/internal/rating"
	"github.com/finsightlab/finsight/internal/screener"
	"github.com/finsightlab/finsight/internal/sentiment"
	"github.com/finsightlab/finsight/pkg/models"
	"github.com/finsightlab/finsight/pkg/utils"
)

// errAllFailed makes the process exit non-zero when no ticker succeeds.
var errAllFailed = errors.New("all requested tickers failed")

// buildComponents wires the analysis pipeline from config.
func buildComponents(cfg *config.Config) (*pipeline.Pipeline, error) {
	client, err := llm.NewOpenAIClient(cfg.LLM.APIKey,
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTimeout(time.Duration(cfg.LLM.TimeoutSec)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("LLM setup failed: %w", err)
	}

	var fundSource datasource.FundamentalsSource
	switch cfg.Providers.Fundamentals {
	case "fmp":
		fundSource = datasource.NewFMPSource(cfg.Providers.FMPKey)
	default:
		fundSource = datasource.NewAlphaVantageSource(cfg.Providers.AlphaVantageKey)
	}

	var newsSource datasource.NewsSource
	if cfg.Search.ExaKey != "" {
		newsSource = datasource.NewExaSource(cfg.Search.ExaKey)
	} else {
		newsSource = datasource.NewRSSSource()
	}

	var tavily *datasource.TavilySource
	if cfg.Search.TavilyKey != "" {
		tavily = datasource.NewTavilySource(cfg.Search.TavilyKey)
	}

	collator := sentiment.NewCollator(client, newsSource, fundSource, tavily, sentiment.Options{
		RecencyDays:     cfg.News.RecencyDays,
		MaxResults:      cfg.News.MaxResults,
		SummaryMinChars: cfg.News.SummaryMinChars,
	})

	return pipeline.New(
		fundamentals.NewGatherer(fundSource),
		collator,
		rating.NewRater(client),
		pipeline.WithConcurrency(cfg.Analysis.ConcurrentFetches),
	), nil
}

func buildScreener(cfg *config.Config) *screener.Screener {
	return screener.New(
		screener.WithMaxPages(cfg.Screener.MaxPages),
		screener.WithRequestsPerMinute(cfg.Screener.RequestsPerMin),
	)
}

// resultLine renders the one-line per-ticker verdict.
func resultLine(r *models.AnalysisResult) string {
	if r.Success {
		verdict := fmt.Sprintf("✅ %s: %s (confidence %.2f)",
			r.Ticker, r.Rating.Result.Rating, r.Rating.Result.Confidence)
		if r.Rating.Fallback {
			verdict += " [fallback]"
		}
		return verdict
	}
	if r.ErrorKind != "" {
		return fmt.Sprintf("❌ %s: %s — %s", r.Ticker, r.ErrorKind, r.Error)
	}
	return fmt.Sprintf("❌ %s: %s", r.Ticker, r.Error)
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze TICKER...",
	Short: "Run the full analysis pipeline on one or more stocks",
	Long: `Gather fundamentals, collect and score recent news sentiment, and
produce a rated recommendation for each ticker. Tickers are analyzed
independently; the command fails only when every ticker fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		export, _ := cmd.Flags().GetString("export")

		pipe, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		results := make([]*models.AnalysisResult, 0, len(args))
		for _, ticker := range args {
			fmt.Printf("🔍 Analyzing %s...\n", utils.NormalizeTicker(ticker))
			result := pipe.AnalyzeStock(cmd.Context(), ticker)
			results = append(results, result)

			fmt.Println()
			fmt.Println(pipeline.FormatText(result))
		}

		if export != "" {
			if err := exportResults(results, export); err != nil {
				return err
			}
		}

		for _, r := range results {
			fmt.Println(resultLine(r))
		}
		if pipeline.AllFailed(results) {
			return errAllFailed
		}
		return nil
	},
}

// exportResults writes each result to the export target. A target ending
// in .json or .txt names the file directly (single ticker); anything else
// is treated as a directory with default <ticker>_<timestamp> names.
func exportResults(results []*models.AnalysisResult, target string) error {
	ext := strings.ToLower(filepath.Ext(target))
	if (ext == ".json" || ext == ".txt") && len(results) == 1 {
		dir := filepath.Dir(target)
		var path string
		var err error
		if ext == ".json" {
			path, err = pipeline.ExportJSON(results[0], dir)
		} else {
			path, err = pipeline.ExportText(results[0], dir)
		}
		if err != nil {
			return err
		}
		fmt.Printf("📄 Exported to %s\n", path)
		return nil
	}

	for _, r := range results {
		path, err := pipeline.ExportText(r, target)
		if err != nil {
			return err
		}
		fmt.Printf("📄 Exported to %s\n", path)
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringP("export", "o", "", "export analysis to FILE (.json or .txt) or directory")
}

// --- Batch Command ---

var batchCmd = &cobra.Command{
	Use:   "batch TICKER...",
	Short: "Analyze a batch of stocks concurrently",
	Long: `Run the analysis pipeline across many tickers with bounded
concurrency (config: analysis.concurrent_fetches). Results keep the
input order and every attempted ticker gets an export file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exportDir, _ := cmd.Flags().GetString("export-dir")
		if exportDir == "" {
			exportDir = cfg.Analysis.ExportDir
		}

		pipe, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("🔍 Analyzing %d tickers...\n\n", len(args))
		results := pipe.AnalyzeBatch(cmd.Context(), args)

		for _, r := range results {
			fmt.Println(resultLine(r))
			if _, err := pipeline.ExportJSON(r, exportDir); err != nil {
				fmt.Printf("   export failed: %v\n", err)
			}
		}
		fmt.Printf("\n📄 Exports written to %s\n", exportDir)

		if pipeline.AllFailed(results) {
			return errAllFailed
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().String("export-dir", "", "directory for per-ticker export files (default: analysis.export_dir)")
}

// --- Info Command ---

var infoCmd = &cobra.Command{
	Use:   "info TICKER",
	Short: "Show company profile and the fundamentals table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		if !utils.ValidTicker(ticker) {
			return fmt.Errorf("invalid ticker %q", args[0])
		}

		var source datasource.FundamentalsSource
		switch cfg.Providers.Fundamentals {
		case "fmp":
			source = datasource.NewFMPSource(cfg.Providers.FMPKey)
		default:
			source = datasource.NewAlphaVantageSource(cfg.Providers.AlphaVantageKey)
		}

		profile, err := source.GetProfile(cmd.Context(), ticker)
		if err != nil {
			return fmt.Errorf("profile lookup failed: %w", err)
		}
		fmt.Printf("%s — %s\n", profile.Ticker, profile.Name)
		if profile.Sector != "" {
			fmt.Printf("Sector:   %s\n", profile.Sector)
		}
		if profile.Industry != "" {
			fmt.Printf("Industry: %s\n", profile.Industry)
		}
		if profile.Description != "" {
			fmt.Printf("\n%s\n", profile.Description)
		}

		fund, err := fundamentals.NewGatherer(source).Gather(cmd.Context(), ticker)
		if err != nil {
			return fmt.Errorf("fundamentals unavailable: %w", err)
		}
		fmt.Println()
		fmt.Println(pipeline.FormatTable(fund.Table))
		return nil
	},
}

// --- List Examples Command ---

var listExamplesCmd = &cobra.Command{
	Use:   "list-examples",
	Short: "Show example invocations",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(`Examples:

  Analyze a single stock and print the report:
    finsight analyze NVDA

  Analyze several stocks and export each to JSON:
    finsight batch AAPL MSFT NVDA --export-dir ./exports

  Export one analysis to a specific file:
    finsight analyze TSLA -o tsla_report.json

  Screen for value stocks and keep the top 20:
    finsight screen value --limit 20

  Screen with custom Finviz filters:
    finsight screen custom --filters fa_pe_u15,fa_roe_o15 --csv value_picks.csv

  Show the fundamentals table without running the LLM stages:
    finsight info AMD

  Start the HTTP API:
    finsight serve`)
	},
}

// --- Screen Command ---

var screenCmd = &cobra.Command{
	Use:   "screen STRATEGY",
	Short: "Run the stock screener",
	Long: fmt.Sprintf(`Run a screening strategy against Finviz and print the matching
stocks. STRATEGY is one of: %s, or "custom" with --filters.`,
		strings.Join(screener.StrategyNames(), ", ")),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		csvPath, _ := cmd.Flags().GetString("csv")
		filtersFlag, _ := cmd.Flags().GetString("filters")

		s := buildScreener(cfg)

		var result *models.ScreenResult
		var err error
		if strings.EqualFold(args[0], "custom") {
			if filtersFlag == "" {
				return fmt.Errorf("custom screen requires --filters")
			}
			result, err = s.RunCustom(cmd.Context(), strings.Split(filtersFlag, ","), "")
		} else {
			strategy, lookupErr := screener.StrategyByName(args[0])
			if lookupErr != nil {
				return lookupErr
			}
			result, err = s.Run(cmd.Context(), strategy)
		}
		if err != nil {
			return err
		}

		rows := result.Top(limit)
		fmt.Printf("📊 %s screen: %d matches (%d pages)\n\n", result.Strategy, len(result.Rows), result.Pages)
		fmt.Printf("%-8s %-30s %-20s %10s %10s %8s\n", "Ticker", "Company", "Sector", "Market Cap", "Price", "P/E")
		for _, row := range rows {
			fmt.Printf("%-8s %-30s %-20s %10s %10s %8s\n",
				row.Ticker,
				truncate(deref(row.Company), 30),
				truncate(deref(row.Sector), 20),
				deref(row.MarketCap),
				fmtNum(row.Price),
				fmtNum(row.PE),
			)
		}

		if csvPath != "" {
			dir := filepath.Dir(csvPath)
			name := strings.TrimSuffix(filepath.Base(csvPath), ".csv")
			path, err := screener.ExportCSV(result, dir, name, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("\n📄 Exported to %s\n", path)
		}
		return nil
	},
}

func init() {
	screenCmd.Flags().Int("limit", 0, "show only the top N rows")
	screenCmd.Flags().String("csv", "", "export results to a CSV file")
	screenCmd.Flags().String("filters", "", "comma-separated Finviz filters for the custom strategy")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fmtNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		srv := api.NewServer(cfg, pipe, buildScreener(cfg))

		addr := api.Addr(cfg)
		fmt.Printf("🌐 FinSight API listening on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}
