package trading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/rsi-backtest/config"
	"github.com/dyike/rsi-backtest/internal/logger"
	"github.com/dyike/rsi-backtest/pkg/backtest"
	"github.com/dyike/rsi-backtest/pkg/dataflows"
)

// ErrInvalidDateRange is returned when start is not before end
var ErrInvalidDateRange = errors.New("start date must be before end date")

// BacktestRequest is one user request: an instrument, a date range and the
// strategy parameters. End is exclusive.
type BacktestRequest struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Params backtest.Params
}

// BacktestOutcome is a finished run ready for display
type BacktestOutcome struct {
	RunID       string
	Symbol      string
	CompanyName string
	Start       time.Time
	End         time.Time
	Provider    string
	*backtest.Outcome
}

// BacktestSession fetches prices for a request and runs the strategy on them
type BacktestSession struct {
	provider dataflows.PriceProvider
	request  BacktestRequest
	out      io.Writer
	newID    func() string
}

type SessionOption func(*BacktestSession)

// WithOutput sets where progress lines go; defaults to stdout
func WithOutput(w io.Writer) SessionOption {
	return func(s *BacktestSession) {
		if w != nil {
			s.out = w
		}
	}
}

// NewBacktestSession creates a new backtest session
func NewBacktestSession(provider dataflows.PriceProvider, req BacktestRequest, opts ...SessionOption) *BacktestSession {
	s := &BacktestSession{
		provider: provider,
		request:  req,
		out:      os.Stdout,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute validates the request before touching the network, then fetches,
// cleans and backtests. An empty price history returns backtest.ErrNoData.
func (s *BacktestSession) Execute(ctx context.Context) (*BacktestOutcome, error) {
	req := s.request
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if !req.Start.Before(req.End) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDateRange, dataflows.FormatDateRange(req.Start, req.End))
	}
	if err := dataflows.ValidateSymbol(req.Symbol); err != nil {
		return nil, err
	}
	symbol := dataflows.NormalizeSymbol(req.Symbol)

	runID := s.newID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	fmt.Fprintf(s.out, "📊 Fetching %s prices from %s (%s)...\n", symbol, s.provider.Name(),
		dataflows.FormatDateRange(req.Start, req.End))
	raw, err := s.provider.GetDailyCloses(ctx, symbol, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("fetch %s prices: %w", symbol, err)
	}

	series := dataflows.CleanSeries(raw)
	log.Info("prices loaded", "symbol", symbol, "provider", s.provider.Name(), "rows", len(raw), "clean", len(series))
	if len(series) == 0 {
		return nil, backtest.ErrNoData
	}

	fmt.Fprintf(s.out, "🔄 Running RSI(%d) strategy over %d trading days...\n", req.Params.Period, len(series))
	outcome, err := backtest.Run(series, req.Params)
	if err != nil {
		return nil, err
	}

	result := &BacktestOutcome{
		RunID:       runID,
		Symbol:      symbol,
		CompanyName: s.companyName(ctx, symbol),
		Start:       req.Start,
		End:         req.End,
		Provider:    s.provider.Name(),
		Outcome:     outcome,
	}

	log.Info("backtest finished",
		"final_value", outcome.Report.Strategy.FinalValue,
		"trades", outcome.Report.Strategy.NumTrades,
		"baseline_final", outcome.Report.BuyAndHold.FinalValue)
	return result, nil
}

func (s *BacktestSession) companyName(ctx context.Context, symbol string) string {
	if c, ok := config.LookupCompany(symbol); ok && c.Ticker == symbol {
		return c.Name
	}
	namer, ok := s.provider.(dataflows.CompanyNamer)
	if !ok {
		return ""
	}
	name, err := namer.CompanyName(ctx, symbol)
	if err != nil {
		logger.FromContext(ctx).Debug("company name lookup failed", "symbol", symbol, "error", err)
		return ""
	}
	return name
}
