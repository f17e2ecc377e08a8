// Package backtest evaluates an RSI threshold-crossing strategy on a daily
// price series and compares it with buying and holding the same instrument.
//
// The pipeline is linear and pure: RSI -> GenerateSignals -> Simulate ->
// Analyze. Run chains the stages after validating the parameters.
package backtest

// Outcome is everything a presentation layer needs from one run
type Outcome struct {
	Params   Params            `json:"params"`
	Series   PriceSeries       `json:"series"`
	RSI      []float64         `json:"rsi"`
	Signals  []Signal          `json:"signals"`
	Result   *SimulationResult `json:"result"`
	Trades   []TradeRecord     `json:"trades"`
	Baseline []EquityPoint     `json:"baseline"`
	Report   PerformanceReport `json:"report"`
}

// Run validates params and executes the full pipeline over series.
// Invalid params return a *ParamError and an empty series returns
// ErrNoData; in both cases no computation is attempted.
func Run(series PriceSeries, params Params) (*Outcome, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}

	rsi := RSI(series, params.Period)
	signals := GenerateSignals(rsi, params.Overbought, params.Oversold)
	result, trades, err := Simulate(series, signals, params.InitialCapital, params.FeeRate)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Params:   params,
		Series:   series,
		RSI:      rsi,
		Signals:  signals,
		Result:   result,
		Trades:   trades,
		Baseline: BuyAndHold(series, params.InitialCapital),
		Report:   Analyze(result, series, params.InitialCapital),
	}, nil
}
