package backtest

import (
	"errors"
	"reflect"
	"testing"
)

func TestRunScenario(t *testing.T) {
	series := seriesOf(100, 100, 90, 90, 110, 110, 130, 80, 80, 80)
	params := Params{Period: 2, Overbought: 70, Oversold: 30, InitialCapital: 1000, FeeRate: 0}

	out, err := Run(series, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// all-gain windows saturate at 100, so the 130 -> 80 drop crosses back
	// through 70 and the flat tail recovers out of 0
	wantSignals := []Signal{Hold, Hold, Hold, Hold, Buy, Hold, Hold, Sell, Hold, Buy}
	if !reflect.DeepEqual(out.Signals, wantSignals) {
		t.Fatalf("expected signals %v, got %v", wantSignals, out.Signals)
	}
	approx(t, "rsi at entry", out.RSI[4], 100)
	approx(t, "rsi at exit", out.RSI[7], 100-100/1.4)

	// 9 shares at 110, sold at 80, then 9 shares again at 80
	wantSides := []Signal{Buy, Sell, Buy}
	if len(out.Trades) != len(wantSides) {
		t.Fatalf("unexpected trades %+v", out.Trades)
	}
	for i, tr := range out.Trades {
		if tr.Side != wantSides[i] || tr.Shares != 9 {
			t.Fatalf("trade %d: unexpected %+v", i, tr)
		}
	}
	approx(t, "cash after exit", out.Trades[1].CashAfter, 730)

	last := out.Result.Steps[len(out.Result.Steps)-1]
	want := last.Cash + float64(last.Shares)*series[len(series)-1].Close
	if last.PortfolioValue != want {
		t.Fatalf("final value %v != cash + holdings %v", last.PortfolioValue, want)
	}
	approx(t, "final value", out.Report.Strategy.FinalValue, 730)
	approx(t, "max drawdown", out.Report.Strategy.MaxDrawdown, (730.0-1180.0)/1180.0)
	if out.Report.Strategy.NumTrades != 3 {
		t.Fatalf("expected 3 trades, got %d", out.Report.Strategy.NumTrades)
	}
	approx(t, "baseline final", out.Report.BuyAndHold.FinalValue, 800)
}

func TestRunFlatSeries(t *testing.T) {
	series := seriesOf(25, 25, 25, 25, 25, 25, 25, 25)
	out, err := Run(series, DefaultParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := range series {
		if out.RSI[i] != NeutralRSI {
			t.Fatalf("step %d: expected neutral RSI, got %v", i, out.RSI[i])
		}
		if out.Signals[i] != Hold {
			t.Fatalf("step %d: expected HOLD, got %s", i, out.Signals[i])
		}
		if out.Result.Steps[i].PortfolioValue != DefaultCapital {
			t.Fatalf("step %d: expected constant value, got %v", i, out.Result.Steps[i].PortfolioValue)
		}
	}
	if out.Report.Strategy.TotalReturn != 0 || out.Report.Strategy.MaxDrawdown != 0 {
		t.Fatalf("expected zero return and drawdown, got %+v", out.Report.Strategy)
	}
	if out.Report.Strategy.SharpeRatio != 0 || out.Report.BuyAndHold.SharpeRatio != 0 {
		t.Fatalf("expected zero sharpe on zero volatility, got %+v", out.Report)
	}
}

func TestRunSinglePoint(t *testing.T) {
	out, err := Run(seriesOf(123.45), DefaultParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.RSI[0] != NeutralRSI || out.Signals[0] != Hold {
		t.Fatalf("expected neutral hold, got rsi=%v signal=%s", out.RSI[0], out.Signals[0])
	}
	if out.Report.Strategy.FinalValue != DefaultCapital {
		t.Fatalf("expected %v, got %v", DefaultCapital, out.Report.Strategy.FinalValue)
	}
	if out.Report.Strategy.NumTrades != 0 {
		t.Fatalf("expected no trades, got %d", out.Report.Strategy.NumTrades)
	}
	if out.Report.Strategy.Volatility != 0 || out.Report.Strategy.SharpeRatio != 0 {
		t.Fatalf("expected zero volatility and sharpe, got %+v", out.Report.Strategy)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	series := wave(250)
	params := DefaultParams()
	params.Overbought, params.Oversold = 60, 40

	first, err := Run(series, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := Run(series, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(first.Result, second.Result) {
		t.Fatal("simulation results differ between identical runs")
	}
	if first.Report != second.Report {
		t.Fatalf("reports differ: %+v vs %+v", first.Report, second.Report)
	}
}

func TestRunRejectsInvalidParams(t *testing.T) {
	series := seriesOf(1, 2, 3)
	tests := []struct {
		name   string
		mutate func(*Params)
		reason Reason
	}{
		{"zero capital", func(p *Params) { p.InitialCapital = 0 }, CapitalNotPositive},
		{"negative capital", func(p *Params) { p.InitialCapital = -5 }, CapitalNotPositive},
		{"negative fee", func(p *Params) { p.FeeRate = -0.001 }, FeeNegative},
		{"overbought at 100", func(p *Params) { p.Overbought = 100 }, OverboughtOutOfRange},
		{"overbought at 0", func(p *Params) { p.Overbought = 0 }, OverboughtOutOfRange},
		{"oversold at 0", func(p *Params) { p.Oversold = 0 }, OversoldOutOfRange},
		{"inverted thresholds", func(p *Params) { p.Oversold, p.Overbought = 70, 30 }, OversoldNotBelowOverbought},
		{"equal thresholds", func(p *Params) { p.Oversold, p.Overbought = 50, 50 }, OversoldNotBelowOverbought},
		{"zero period", func(p *Params) { p.Period = 0 }, PeriodNotPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			tt.mutate(&params)

			out, err := Run(series, params)
			if out != nil {
				t.Fatal("expected no outcome for rejected params")
			}
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			var perr *ParamError
			if !errors.As(err, &perr) || perr.Reason != tt.reason {
				t.Fatalf("expected reason %q, got %v", tt.reason, err)
			}
		})
	}
}

func TestRunInvalidParamsWinOverEmptySeries(t *testing.T) {
	params := DefaultParams()
	params.Oversold, params.Overbought = 70, 30
	if _, err := Run(nil, params); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestRunEmptySeries(t *testing.T) {
	out, err := Run(PriceSeries{}, DefaultParams())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if out != nil {
		t.Fatal("expected no outcome for empty series")
	}
	if errors.Is(err, ErrInvalidParameter) {
		t.Fatal("no data must not be reported as a parameter error")
	}
}

func TestFeeRateFromPercent(t *testing.T) {
	approx(t, "fee", FeeRateFromPercent(0.1), 0.001)
	approx(t, "fee", FeeRateFromPercent(0), 0)
}
