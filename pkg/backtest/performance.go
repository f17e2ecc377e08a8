package backtest

import "math"

const (
	TradingDaysPerYear = 252
	RiskFreeRate       = 0.01
)

// Metrics are the summary statistics shared by every strategy
type Metrics struct {
	FinalValue  float64 `json:"final_value"`
	TotalReturn float64 `json:"total_return"`
	MaxDrawdown float64 `json:"max_drawdown"` // <= 0
	Volatility  float64 `json:"volatility"`   // annualized
	SharpeRatio float64 `json:"sharpe_ratio"` // annualized
}

// StrategyMetrics adds the figures that only exist for an actively traded strategy
type StrategyMetrics struct {
	Metrics
	FeesPaid  float64 `json:"fees_paid"`
	NumTrades int     `json:"num_trades"`
}

// PerformanceReport compares the simulated strategy with buy and hold
type PerformanceReport struct {
	Strategy   StrategyMetrics `json:"strategy"`
	BuyAndHold Metrics         `json:"buy_and_hold"`
}

// BuyAndHold invests all capital on day 0 and scales it by close/close[0].
// Daily returns are the raw price changes, 0 on the first day.
func BuyAndHold(series PriceSeries, initialCapital float64) []EquityPoint {
	curve := make([]EquityPoint, len(series))
	if len(series) == 0 {
		return curve
	}
	base := series[0].Close
	for i, p := range series {
		curve[i] = EquityPoint{Date: p.Date, Value: initialCapital * (p.Close / base)}
		if i > 0 {
			prev := series[i-1].Close
			if prev != 0 {
				curve[i].DailyReturn = (p.Close - prev) / prev
			}
		}
	}
	return curve
}

// Analyze derives the performance report of a simulation and of the
// buy-and-hold baseline over the same series.
func Analyze(result *SimulationResult, series PriceSeries, initialCapital float64) PerformanceReport {
	strategy := StrategyMetrics{
		Metrics:   summarize(result.Values(), result.DailyReturns(), initialCapital),
		FeesPaid:  result.TotalFees,
		NumTrades: result.TradeCount(),
	}

	baseline := BuyAndHold(series, initialCapital)
	values := make([]float64, len(baseline))
	returns := make([]float64, len(baseline))
	for i, pt := range baseline {
		values[i] = pt.Value
		returns[i] = pt.DailyReturn
	}

	return PerformanceReport{
		Strategy:   strategy,
		BuyAndHold: summarize(values, returns, initialCapital),
	}
}

func summarize(values, returns []float64, initialCapital float64) Metrics {
	var m Metrics
	if len(values) == 0 {
		return m
	}
	m.FinalValue = values[len(values)-1]
	m.TotalReturn = m.FinalValue/initialCapital - 1
	m.MaxDrawdown = MaxDrawdown(values)
	m.Volatility = AnnualizedVolatility(returns)
	m.SharpeRatio = SharpeRatio(returns, m.Volatility)
	return m
}

// MaxDrawdown is the most negative (value - running peak) / running peak
func MaxDrawdown(values []float64) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak == 0 {
			continue
		}
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// AnnualizedVolatility is the sample standard deviation of daily returns
// scaled by sqrt(252). Fewer than two observations give 0.
func AnnualizedVolatility(returns []float64) float64 {
	return sampleStdDev(returns) * math.Sqrt(TradingDaysPerYear)
}

// SharpeRatio annualizes the mean daily return, subtracts the fixed
// risk-free rate and divides by volatility; 0 when volatility is 0.
func SharpeRatio(returns []float64, volatility float64) float64 {
	if volatility == 0 || len(returns) == 0 {
		return 0
	}
	return (mean(returns)*TradingDaysPerYear - RiskFreeRate) / volatility
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
