package dataflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

// YahooFinanceClient loads daily bars from the Yahoo chart API
type YahooFinanceClient struct {
	retry     *RetryConfig
	fetchBars func(params *chart.Params) ([]*finance.ChartBar, error)
	fetchName func(symbol string) (string, error)
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient() *YahooFinanceClient {
	return &YahooFinanceClient{
		retry:     DefaultRetryConfig(),
		fetchBars: chartBars,
		fetchName: quoteName,
	}
}

func (yf *YahooFinanceClient) Name() string { return "yahoo" }

// GetDailyCloses returns the unadjusted daily closes in [start, end)
func (yf *YahooFinanceClient) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) (backtest.PriceSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, Permanent(err)
	}
	symbol = NormalizeSymbol(symbol)

	var bars []*finance.ChartBar
	err := WithRetry(ctx, yf.retry, func() error {
		if err := ctx.Err(); err != nil {
			return Permanent(err)
		}
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}
		b, err := yf.fetchBars(params)
		if err != nil {
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}
		bars = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	series := make(backtest.PriceSeries, 0, len(bars))
	for _, bar := range bars {
		if bar == nil {
			continue
		}
		px, ok := decimalClose(bar.Close)
		if !ok {
			continue
		}
		d := Day(time.Unix(int64(bar.Timestamp), 0).UTC())
		if !InRange(d, start, end) {
			continue
		}
		series = append(series, backtest.PricePoint{Date: d, Close: px})
	}

	slog.Debug("yahoo bars fetched", "symbol", symbol, "bars", len(bars), "kept", len(series))
	return series, nil
}

// CompanyName resolves the short name from the quote endpoint
func (yf *YahooFinanceClient) CompanyName(ctx context.Context, symbol string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return yf.fetchName(NormalizeSymbol(symbol))
}

func chartBars(params *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(params)

	var bars []*finance.ChartBar
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

func quoteName(symbol string) (string, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return "", fmt.Errorf("failed to get company info for %s: %w", symbol, err)
	}
	if q == nil {
		return "", fmt.Errorf("no quote for %s", symbol)
	}
	return q.ShortName, nil
}
