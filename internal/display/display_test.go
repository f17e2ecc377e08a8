package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dyike/rsi-backtest/internal/trading"
	"github.com/dyike/rsi-backtest/pkg/backtest"
)

func roundTripOutcome(t *testing.T) *trading.BacktestOutcome {
	t.Helper()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	var series backtest.PriceSeries
	for i, c := range []float64{100, 90, 80, 90, 100, 110, 108, 95, 100} {
		series = append(series, backtest.PricePoint{Date: start.AddDate(0, 0, i), Close: c})
	}
	params := backtest.Params{Period: 2, Overbought: 70, Oversold: 30, InitialCapital: 1000, FeeRate: 0.001}
	out, err := backtest.Run(series, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return &trading.BacktestOutcome{
		RunID:       "0b7f5d2e-1111-2222-3333-444455556666",
		Symbol:      "AAPL",
		CompanyName: "Apple Inc.",
		Start:       start,
		End:         start.AddDate(0, 0, 10),
		Provider:    "yahoo",
		Outcome:     out,
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{Money(10000), "$10,000.00"},
		{Money(1234567.891), "$1,234,567.89"},
		{Money(-42.5), "-$42.50"},
		{Money(0), "$0.00"},
		{Percent(0.1234), "12.34%"},
		{Percent(-0.2), "-20.00%"},
		{Ratio(0.8512), "0.85"},
		{Count(12), "12"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestMetricsTable(t *testing.T) {
	o := roundTripOutcome(t)
	out := MetricsTable(o.Report)

	for _, want := range []string{
		"RSI-Strategy", "Buy-n-Hold",
		"Portfolio Value", "Total Return", "Max. Drawdown", "Volatility",
		"Sharpe Ratio", "Fees Paid", "Number of Trades",
		"$1,000.00", notApplicable,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics table missing %q:\n%s", want, out)
		}
	}
}

func TestTradeLog(t *testing.T) {
	o := roundTripOutcome(t)
	out := TradeLog(o.Trades)
	if !strings.Contains(out, "BUY") || !strings.Contains(out, "SELL") {
		t.Fatalf("expected both sides in trade log:\n%s", out)
	}
	if !strings.Contains(out, "2023-01-05") {
		t.Fatalf("expected the buy date in trade log:\n%s", out)
	}
	if got := TradeLog(nil); !strings.Contains(got, "no trades") {
		t.Fatalf("unexpected empty trade log %q", got)
	}
}

func TestDisplayBacktestResults(t *testing.T) {
	var buf bytes.Buffer
	NewResultsDisplay(&buf, true).DisplayBacktestResults(roundTripOutcome(t))

	out := buf.String()
	for _, want := range []string{"Apple Inc. (AAPL)", "RSI(2)", "TRADES (2)", "PRICE", "PORTFOLIO VALUE", "0b7f5d2e"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestPriceChartMarksTrades(t *testing.T) {
	o := roundTripOutcome(t)
	chart := Chart{Height: 8, Width: 40}.Price(o.Result.Steps)
	if strings.Count(chart, "B") != 1 || strings.Count(chart, "S") != 1 {
		t.Fatalf("expected one B and one S marker:\n%s", chart)
	}
	if lines := strings.Count(chart, "\n"); lines != 9 {
		t.Fatalf("expected 8 rows plus axis, got %d lines", lines)
	}
}

func TestRSIChartShowsLevels(t *testing.T) {
	chart := Chart{Height: 11, Width: 20}.RSI([]float64{50, 50, 50}, 70, 30)
	rows := strings.Split(strings.TrimRight(chart, "\n"), "\n")
	// the 0..100 scale puts 70 on row 3 and 30 on row 7 of 11
	if !strings.Contains(rows[3], "---") || !strings.Contains(rows[7], "---") {
		t.Fatalf("expected level lines on rows 3 and 7:\n%s", chart)
	}
	if !strings.Contains(rows[5], "•") {
		t.Fatalf("expected neutral RSI on the middle row:\n%s", chart)
	}
}

func TestEquityChartOverlap(t *testing.T) {
	values := []float64{100, 100, 100}
	baseline := []backtest.EquityPoint{{Value: 100}, {Value: 100}, {Value: 100}}
	chart := DefaultChart().Equity(values, baseline)
	if !strings.Contains(chart, "###") {
		t.Fatalf("expected overlapping glyphs:\n%s", chart)
	}
}

func TestChartEmpty(t *testing.T) {
	if got := DefaultChart().Price(nil); !strings.Contains(got, "no data") {
		t.Fatalf("unexpected empty chart %q", got)
	}
}

func TestMarkdownReport(t *testing.T) {
	md := MarkdownReport(roundTripOutcome(t))

	for _, want := range []string{
		"# RSI Backtest: Apple Inc. (AAPL)",
		"| Metric | RSI-Strategy | Buy-n-Hold |",
		"| Number of Trades | 2 | N/A |",
		"## Trades (2)",
		"| 2023-01-05 | BUY |",
		"fee 0.10% of notional",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}
