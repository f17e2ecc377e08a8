package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/rsi-backtest/config"
	"github.com/dyike/rsi-backtest/internal/display"
	"github.com/dyike/rsi-backtest/internal/logger"
	"github.com/dyike/rsi-backtest/internal/storage"
	"github.com/dyike/rsi-backtest/internal/trading"
	"github.com/dyike/rsi-backtest/pkg/backtest"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.3.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	// Initialize configuration early
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "rsibt",
		Short: "rsibt - RSI momentum strategy backtester",
		Long: `rsibt backtests an RSI threshold-crossing strategy on daily closing prices
and compares it with buying and holding the same instrument.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}
			logger.Init("rsibt", logger.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

			// Ensure directories exist
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: start interactive mode
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInteractiveMode(cmd.Context(), cmd.OutOrStdout(), cfg, configDir)
		},
	}

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newCompaniesCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(cfg))

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config-dir", "", "Directory holding config.json for interactive defaults")

	return rootCmd
}

// newRunCmd creates the run command
func newRunCmd(cfg *config.Config) *cobra.Command {
	var (
		start, end string
		provider   string
		csvPath    string
		capital    float64
		feePercent float64
		overbought float64
		oversold   float64
		period     int
		noCharts   bool
		noCache    bool
		export     bool
		report     bool
	)

	cmd := &cobra.Command{
		Use:   "run SYMBOL|COMPANY",
		Short: "Backtest the RSI strategy for one instrument",
		Long: `Backtest the RSI strategy for a ticker or a company from the built-in list.
Example: rsibt run AAPL --start 2020-01-01 --end 2023-12-31 --fee 0.1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCfg := *cfg
			if provider != "" {
				runCfg.Provider = strings.ToLower(provider)
			}
			if csvPath != "" {
				runCfg.CSVPath = csvPath
				if provider == "" {
					runCfg.Provider = config.ProviderCSV
				}
			}
			if noCache {
				runCfg.CacheEnabled = false
			}

			from, to, err := parseRange(start, end)
			if err != nil {
				return err
			}

			req := trading.BacktestRequest{
				Symbol: resolveSymbol(strings.Join(args, " ")),
				Start:  from,
				End:    to,
				Params: backtest.Params{
					Period:         period,
					Overbought:     overbought,
					Oversold:       oversold,
					InitialCapital: capital,
					FeeRate:        backtest.FeeRateFromPercent(feePercent),
				},
			}
			opts := runOptions{charts: !noCharts, export: export, report: report}
			return runBacktestCommand(cmd.Context(), cmd.OutOrStdout(), &runCfg, req, opts)
		},
	}

	cmd.Flags().StringVar(&start, "start", cfg.StartDate, "Start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&end, "end", cfg.EndDate, "End date (YYYY-MM-DD, exclusive)")
	cmd.Flags().Float64Var(&capital, "capital", cfg.InitialCapital, "Initial capital in dollars")
	cmd.Flags().Float64Var(&feePercent, "fee", cfg.FeePercent, "Transaction fee in percent of notional (0.1 = 0.1%)")
	cmd.Flags().Float64Var(&overbought, "overbought", cfg.Overbought, "RSI overbought level")
	cmd.Flags().Float64Var(&oversold, "oversold", cfg.Oversold, "RSI oversold level")
	cmd.Flags().IntVar(&period, "period", cfg.RSIPeriod, "RSI lookback period in days")
	cmd.Flags().StringVar(&provider, "provider", "", "Price source: "+strings.Join(config.Providers(), ", "))
	cmd.Flags().StringVar(&csvPath, "csv", "", "Read closes from a local CSV file with Date and Close columns")
	cmd.Flags().BoolVar(&noCharts, "no-charts", false, "Skip the text charts")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the local price cache")
	cmd.Flags().BoolVar(&export, "export", false, "Write the per-day results to a CSV file under the data directory")
	cmd.Flags().BoolVar(&report, "report", false, "Write a markdown summary under the data directory")

	return cmd
}

func runBacktestCommand(ctx context.Context, w io.Writer, cfg *config.Config, req trading.BacktestRequest, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintf(w, "🚀 Starting backtest for %s\n", req.Symbol)

	b := newBacktester(w, cfg)
	defer b.Close()

	outcome, err := b.run(ctx, cfg, req, opts)
	if err != nil {
		return fmt.Errorf("backtest failed: %s", describeError(err))
	}
	if outcome != nil {
		printSuccess(w, "Backtest completed successfully!")
	}
	return nil
}

// newCompaniesCmd lists the built-in company table
func newCompaniesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "companies",
		Short: "List the built-in companies",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "🏢 Built-in companies:")
			for _, c := range config.Companies {
				fmt.Fprintf(w, "  %-6s %s\n", c.Ticker, c.Name)
			}
		},
	}
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rsibt %s\n", Version)
			fmt.Fprintln(cmd.OutOrStdout(), "RSI momentum strategy backtester")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Show and validate rsibt configuration settings",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), cfg)
		},
	})

	return configCmd
}

// showConfig displays the current configuration
func showConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "📋 Current rsibt Configuration:")
	fmt.Fprintln(w, "═══════════════════════════════════════")
	fmt.Fprintf(w, "Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Fprintf(w, "Data Directory:       %s\n", cfg.DataDir)
	fmt.Fprintf(w, "Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Provider:             %s\n", cfg.Provider)
	if cfg.Provider == config.ProviderCSV {
		fmt.Fprintf(w, "CSV File:             %s\n", cfg.CSVPath)
	}
	fmt.Fprintf(w, "Cache Enabled:        %t (ttl %s)\n", cfg.CacheEnabled, cfg.CacheTTL())
	fmt.Fprintf(w, "Log Level:            %s (%s)\n", cfg.LogLevel, cfg.LogFormat)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "📈 Backtest Defaults:")
	fmt.Fprintln(w, "─────────────────────")
	fmt.Fprintf(w, "Symbol:               %s\n", cfg.DefaultSymbol)
	fmt.Fprintf(w, "Date Range:           %s to %s\n", cfg.StartDate, cfg.EndDate)
	fmt.Fprintf(w, "Initial Capital:      %s\n", display.Money(cfg.InitialCapital))
	fmt.Fprintf(w, "Fee:                  %.3f%%\n", cfg.FeePercent)
	fmt.Fprintf(w, "RSI Period:           %d\n", cfg.RSIPeriod)
	fmt.Fprintf(w, "Overbought/Oversold:  %.0f / %.0f\n", cfg.Overbought, cfg.Oversold)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔌 API Configuration:")
	fmt.Fprintln(w, "─────────────────────")
	fmt.Fprintf(w, "Finnhub API:          %s\n", configured(cfg.FinnhubAPIKey != ""))
	fmt.Fprintf(w, "Longport API:         %s\n", configured(cfg.LongportAppKey != "" && cfg.LongportAppSecret != "" && cfg.LongportAccessToken != ""))
}

func configured(ok bool) string {
	if ok {
		return "✅ Configured"
	}
	return "❌ Not configured"
}

// validateConfig validates the configuration and provider credentials
func validateConfig(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, "🔍 Validating rsibt Configuration...")
	fmt.Fprintln(w, "═══════════════════════════════════════")

	fmt.Fprint(w, "📁 Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintln(w, "❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "⚙️  Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w, "❌")
		return fmt.Errorf("invalid configuration: %s", describeError(err))
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "🔑 Checking provider credentials... ")
	var warnings []string
	switch {
	case cfg.Provider == config.ProviderFinnhub && cfg.FinnhubAPIKey == "":
		warnings = append(warnings, "Finnhub API key not configured (set FINNHUB_API_KEY)")
	case cfg.Provider == config.ProviderLongport && (cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == ""):
		warnings = append(warnings, "Longport credentials not configured (set LONGPORT_APP_KEY, LONGPORT_APP_SECRET, LONGPORT_ACCESS_TOKEN)")
	}
	if len(warnings) > 0 {
		fmt.Fprintln(w, "⚠️")
		for _, warning := range warnings {
			fmt.Fprintf(w, "  ⚠️  %s\n", warning)
		}
	} else {
		fmt.Fprintln(w, "✅")
	}

	fmt.Fprint(w, "🗄️  Opening price cache... ")
	store, err := storage.NewPriceStore(cfg.PriceDBPath())
	if err != nil {
		fmt.Fprintln(w, "❌")
		slog.Warn("price cache unavailable", "error", err)
		warnings = append(warnings, "price cache unavailable")
	} else {
		_ = store.Close()
		fmt.Fprintln(w, "✅")
	}

	fmt.Fprintln(w)
	if len(warnings) == 0 {
		printSuccess(w, "Configuration validation completed successfully!")
	} else {
		printWarning(w, fmt.Sprintf("Configuration validation completed with %d warnings.", len(warnings)))
	}
	return nil
}
