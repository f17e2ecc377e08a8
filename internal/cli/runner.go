package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/rsi-backtest/config"
	"github.com/dyike/rsi-backtest/internal/cache"
	"github.com/dyike/rsi-backtest/internal/display"
	"github.com/dyike/rsi-backtest/internal/storage"
	"github.com/dyike/rsi-backtest/internal/trading"
	"github.com/dyike/rsi-backtest/internal/utils"
	"github.com/dyike/rsi-backtest/pkg/backtest"
	"github.com/dyike/rsi-backtest/pkg/dataflows"
	pkgutils "github.com/dyike/rsi-backtest/pkg/utils"
)

// noDataMessage is shown instead of a report when the range has no prices
const noDataMessage = "No data available for the selected parameters."

type runOptions struct {
	charts bool
	export bool
	report bool
}

// resolveSymbol maps a company name or label to its ticker; anything else
// is used as a raw ticker.
func resolveSymbol(input string) string {
	if c, ok := config.LookupCompany(input); ok {
		return c.Ticker
	}
	return dataflows.NormalizeSymbol(input)
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := dataflows.ParseDateString(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	e, err := dataflows.ParseDateString(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
	}
	return s, e, nil
}

// backtester owns the caches shared by every run of one command, so
// repeated interactive runs over the same range skip the provider.
type backtester struct {
	w     io.Writer
	store *storage.PriceStore
	cache *cache.PriceCache
}

// newBacktester opens the price store. A failure leaves only the memory
// cache for this process.
func newBacktester(w io.Writer, cfg *config.Config) *backtester {
	b := &backtester{w: w}
	store, err := storage.NewPriceStore(cfg.PriceDBPath())
	if err != nil {
		slog.Warn("price cache unavailable", "path", cfg.PriceDBPath(), "error", err)
		b.cache = cache.NewPriceCache(nil, cache.DefaultMemoryTTL)
		return b
	}
	b.store = store
	b.cache = cache.NewPriceCache(store, cache.DefaultMemoryTTL)
	return b
}

func (b *backtester) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// run executes one request and renders it. NoData is reported and
// swallowed; every other failure is returned.
func (b *backtester) run(ctx context.Context, cfg *config.Config, req trading.BacktestRequest, opts runOptions) (*trading.BacktestOutcome, error) {
	// params are checked before any provider is created
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	provider, err := dataflows.NewPriceProvider(cfg, b.cache)
	if err != nil {
		return nil, err
	}

	outcome, err := trading.NewBacktestSession(provider, req, trading.WithOutput(b.w)).Execute(ctx)
	if errors.Is(err, backtest.ErrNoData) {
		printWarning(b.w, noDataMessage)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	display.NewResultsDisplay(b.w, opts.charts).DisplayBacktestResults(outcome)

	if opts.export {
		path, err := utils.NewCSVManager(cfg.DataDir).WriteBacktestCSV(outcome.Symbol, outcome.RunID, outcome.Outcome)
		if err != nil {
			return outcome, fmt.Errorf("export results: %w", err)
		}
		fmt.Fprintf(b.w, "\n💾 Results exported to %s\n", path)
	}
	if opts.report {
		dir := filepath.Join(cfg.DataDir, "reports", outcome.Symbol)
		name := fmt.Sprintf("%s_rsi_%s.md", outcome.Symbol, outcome.RunID)
		path, err := pkgutils.WriteMarkdown(dir, name, display.MarkdownReport(outcome))
		if err != nil {
			return outcome, fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(b.w, "📝 Report written to %s\n", path)
	}
	return outcome, nil
}

// describeError turns a backtest failure into a one-line user message
func describeError(err error) string {
	var perr *backtest.ParamError
	switch {
	case errors.As(err, &perr):
		return "Invalid parameter: " + perr.Reason.String()
	case errors.Is(err, trading.ErrInvalidDateRange):
		return "Invalid date range: " + strings.TrimPrefix(err.Error(), trading.ErrInvalidDateRange.Error()+": ")
	default:
		return err.Error()
	}
}
