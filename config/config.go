package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

const DateLayout = "2006-01-02"

const (
	ProviderYahoo    = "yahoo"
	ProviderFinnhub  = "finnhub"
	ProviderLongport = "longport"
	ProviderCSV      = "csv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	Provider      string `json:"provider"`
	CSVPath       string `json:"csv_path,omitempty"`
	CacheEnabled  bool   `json:"cache_enabled"`
	CacheTTLHours int    `json:"cache_ttl_hours"`
	Debug         bool   `json:"debug"`
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`

	// Backtest defaults, used when a flag or prompt is left empty
	DefaultSymbol  string  `json:"default_symbol"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	InitialCapital float64 `json:"initial_capital"`
	FeePercent     float64 `json:"fee_percent"`
	Overbought     float64 `json:"overbought"`
	Oversold       float64 `json:"oversold"`
	RSIPeriod      int     `json:"rsi_period"`

	// Market data API keys come from the environment only and are never persisted
	FinnhubAPIKey       string `json:"-"`
	LongportAppKey      string `json:"-"`
	LongportAppSecret   string `json:"-"`
	LongportAccessToken string `json:"-"`
}

// DefaultConfig roots the data directories at the working directory, then
// applies .env and environment overrides.
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot returns the built-in defaults without reading the environment
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),

		Provider:      ProviderYahoo,
		CacheEnabled:  true,
		CacheTTLHours: 24,
		Debug:         false,
		LogLevel:      "info",
		LogFormat:     "text",

		DefaultSymbol:  "AAPL",
		StartDate:      "2020-01-01",
		EndDate:        "2023-12-31",
		InitialCapital: backtest.DefaultCapital,
		FeePercent:     0.1,
		Overbought:     backtest.DefaultOverbought,
		Oversold:       backtest.DefaultOversold,
		RSIPeriod:      backtest.DefaultPeriod,
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := os.Getenv("RSIBT_PROVIDER"); val != "" {
		c.Provider = strings.ToLower(strings.TrimSpace(val))
	}
	if val := os.Getenv("RSIBT_CSV_PATH"); val != "" {
		c.CSVPath = val
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("CACHE_TTL_HOURS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.CacheTTLHours = v
		}
	}
	if val := os.Getenv("RSIBT_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.LogFormat = val
	}

	if val := os.Getenv("RSIBT_SYMBOL"); val != "" {
		c.DefaultSymbol = strings.ToUpper(val)
	}
	if val := os.Getenv("RSIBT_START_DATE"); val != "" {
		c.StartDate = val
	}
	if val := os.Getenv("RSIBT_END_DATE"); val != "" {
		c.EndDate = val
	}
	if val := os.Getenv("RSIBT_CAPITAL"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.InitialCapital = v
		}
	}
	if val := os.Getenv("RSIBT_FEE_PERCENT"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.FeePercent = v
		}
	}
	if val := os.Getenv("RSIBT_OVERBOUGHT"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.Overbought = v
		}
	}
	if val := os.Getenv("RSIBT_OVERSOLD"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.Oversold = v
		}
	}
	if val := os.Getenv("RSIBT_RSI_PERIOD"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RSIPeriod = v
		}
	}

	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}
}

// Providers lists the accepted provider names
func Providers() []string {
	return []string{ProviderYahoo, ProviderFinnhub, ProviderLongport, ProviderCSV}
}

// Validate checks the fields that cannot be corrected later by flags.
// Backtest parameters are validated through Params so the reason is typed.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderYahoo, ProviderFinnhub, ProviderLongport:
	case ProviderCSV:
		if strings.TrimSpace(c.CSVPath) == "" {
			return fmt.Errorf("csv provider needs csv_path")
		}
	default:
		return fmt.Errorf("unknown provider %q (want one of %s)", c.Provider, strings.Join(Providers(), ", "))
	}
	if c.CacheTTLHours < 0 {
		return fmt.Errorf("cache ttl cannot be negative: %d", c.CacheTTLHours)
	}
	start, err := time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q, use YYYY-MM-DD: %w", c.StartDate, err)
	}
	end, err := time.Parse(DateLayout, c.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q, use YYYY-MM-DD: %w", c.EndDate, err)
	}
	if !start.Before(end) {
		return fmt.Errorf("start date %s must be before end date %s", c.StartDate, c.EndDate)
	}
	return c.BacktestParams().Validate()
}

// BacktestParams converts the defaults into simulation parameters; the fee
// is stored as a percentage and converted to a fraction here.
func (c *Config) BacktestParams() backtest.Params {
	return backtest.Params{
		Period:         c.RSIPeriod,
		Overbought:     c.Overbought,
		Oversold:       c.Oversold,
		InitialCapital: c.InitialCapital,
		FeeRate:        backtest.FeeRateFromPercent(c.FeePercent),
	}
}

// CacheTTL is how long fetched prices stay fresh in the price store
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// PriceDBPath is the SQLite file backing the price cache
func (c *Config) PriceDBPath() string {
	return filepath.Join(c.DataCacheDir, "prices.db")
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
