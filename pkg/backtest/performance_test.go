package backtest

import (
	"math"
	"testing"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"flat", []float64{100, 100, 100}, 0},
		{"monotonic rise", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 80, 120}, -0.2},
		{"deepest from later peak", []float64{100, 90, 200, 120, 150}, -0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approx(t, "drawdown", MaxDrawdown(tt.values), tt.want)
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	if v := AnnualizedVolatility([]float64{0.01}); v != 0 {
		t.Fatalf("single observation: expected 0, got %v", v)
	}
	if v := AnnualizedVolatility([]float64{0, 0, 0}); v != 0 {
		t.Fatalf("constant returns: expected 0, got %v", v)
	}
	// sample stdev of {0.01, -0.01} is sqrt(0.0002)
	approx(t, "volatility", AnnualizedVolatility([]float64{0.01, -0.01}), math.Sqrt(0.0002)*math.Sqrt(252))
}

func TestSharpeRatio(t *testing.T) {
	if s := SharpeRatio([]float64{0, 0}, 0); s != 0 {
		t.Fatalf("zero volatility: expected 0, got %v", s)
	}
	returns := []float64{0.02, 0, 0.01}
	vol := AnnualizedVolatility(returns)
	approx(t, "sharpe", SharpeRatio(returns, vol), (0.01*252-0.01)/vol)
}

func TestBuyAndHold(t *testing.T) {
	curve := BuyAndHold(seriesOf(50, 55, 44), 1000)
	if len(curve) != 3 {
		t.Fatalf("expected 3 points, got %d", len(curve))
	}
	approx(t, "v0", curve[0].Value, 1000)
	approx(t, "v1", curve[1].Value, 1100)
	approx(t, "v2", curve[2].Value, 880)
	approx(t, "r0", curve[0].DailyReturn, 0)
	approx(t, "r1", curve[1].DailyReturn, 0.1)
	approx(t, "r2", curve[2].DailyReturn, -0.2)
}

func TestAnalyzeReport(t *testing.T) {
	series := seriesOf(100, 90, 80, 90, 100, 110, 108, 95, 100)
	signals := GenerateSignals(RSI(series, 2), 70, 30)
	result, _, err := Simulate(series, signals, 1000, 0)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	report := Analyze(result, series, 1000)

	approx(t, "strategy final", report.Strategy.FinalValue, 1055)
	approx(t, "strategy return", report.Strategy.TotalReturn, 0.055)
	if report.Strategy.NumTrades != 2 {
		t.Fatalf("expected 2 trades, got %d", report.Strategy.NumTrades)
	}
	approx(t, "strategy fees", report.Strategy.FeesPaid, 0)
	if report.Strategy.MaxDrawdown > 0 {
		t.Fatalf("drawdown must be <= 0, got %v", report.Strategy.MaxDrawdown)
	}
	// peak 1220 at 110, trough 1055 at 95 while still holding (10 cash + 11 shares)
	approx(t, "strategy drawdown", report.Strategy.MaxDrawdown, (1055.0-1220.0)/1220.0)

	approx(t, "baseline final", report.BuyAndHold.FinalValue, 1000)
	approx(t, "baseline return", report.BuyAndHold.TotalReturn, 0)
	approx(t, "baseline drawdown", report.BuyAndHold.MaxDrawdown, -0.2)
	if report.BuyAndHold.Volatility <= 0 {
		t.Fatalf("expected positive baseline volatility, got %v", report.BuyAndHold.Volatility)
	}
}
