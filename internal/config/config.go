// Package config handles configuration loading for FinSight.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Search    SearchConfig    `mapstructure:"search"    yaml:"search"`
	News      NewsConfig      `mapstructure:"news"      yaml:"news"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"  yaml:"analysis"`
	Screener  ScreenerConfig  `mapstructure:"screener"  yaml:"screener"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"      yaml:"api_key"`
	BaseURL     string  `mapstructure:"base_url"     yaml:"base_url"` // OpenAI-compatible endpoint
	Model       string  `mapstructure:"model"        yaml:"model"`
	Temperature float64 `mapstructure:"temperature"  yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"   yaml:"max_tokens"`
	TimeoutSec  int     `mapstructure:"timeout_sec"  yaml:"timeout_sec"`
}

// ProvidersConfig holds fundamentals data provider configuration.
type ProvidersConfig struct {
	Fundamentals    string `mapstructure:"fundamentals"      yaml:"fundamentals"` // "alphavantage" or "fmp"
	AlphaVantageKey string `mapstructure:"alphavantage_key"  yaml:"alphavantage_key"`
	FMPKey          string `mapstructure:"fmp_key"           yaml:"fmp_key"`
}

// SearchConfig holds news search provider credentials.
type SearchConfig struct {
	ExaKey    string `mapstructure:"exa_key"    yaml:"exa_key"`
	TavilyKey string `mapstructure:"tavily_key" yaml:"tavily_key"`
}

// NewsConfig holds news collection settings.
type NewsConfig struct {
	RecencyDays     int `mapstructure:"recency_days"      yaml:"recency_days"`
	MaxResults      int `mapstructure:"max_results"       yaml:"max_results"` // per search query
	SummaryMinChars int `mapstructure:"summary_min_chars" yaml:"summary_min_chars"`
}

// AnalysisConfig holds analysis pipeline settings.
type AnalysisConfig struct {
	CacheTTL          int    `mapstructure:"cache_ttl"          yaml:"cache_ttl"` // seconds
	ConcurrentFetches int    `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
	ExportDir         string `mapstructure:"export_dir"         yaml:"export_dir"`
}

// ScreenerConfig holds stock screener settings.
type ScreenerConfig struct {
	MaxPages       int `mapstructure:"max_pages"        yaml:"max_pages"`
	RequestsPerMin int `mapstructure:"requests_per_min" yaml:"requests_per_min"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.finsight/config.yaml (home directory)
//  3. /etc/finsight/config.yaml (system)
//
// Environment variables override config file values.
// Format: FINSIGHT_<SECTION>_<KEY>, e.g., FINSIGHT_LLM_API_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".finsight"))
	v.AddConfigPath("/etc/finsight")

	v.SetEnvPrefix("FINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not required to exist; defaults + env vars suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("FINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout_sec", 120)

	// Provider defaults
	v.SetDefault("providers.fundamentals", "alphavantage")

	// News defaults
	v.SetDefault("news.recency_days", 7)
	v.SetDefault("news.max_results", 10)
	v.SetDefault("news.summary_min_chars", 600)

	// Analysis defaults
	v.SetDefault("analysis.cache_ttl", 300) // 5 minutes
	v.SetDefault("analysis.concurrent_fetches", 3)
	v.SetDefault("analysis.export_dir", "./exports")

	// Screener defaults
	v.SetDefault("screener.max_pages", 50)
	v.SetDefault("screener.requests_per_min", 30)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("FINSIGHT_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv("FINSIGHT_PROVIDERS_ALPHAVANTAGE_KEY"); key != "" {
		cfg.Providers.AlphaVantageKey = key
	}
	if key := os.Getenv("FINSIGHT_PROVIDERS_FMP_KEY"); key != "" {
		cfg.Providers.FMPKey = key
	}
	if key := os.Getenv("FINSIGHT_SEARCH_EXA_KEY"); key != "" {
		cfg.Search.ExaKey = key
	}
	if key := os.Getenv("FINSIGHT_SEARCH_TAVILY_KEY"); key != "" {
		cfg.Search.TavilyKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
