package backtest

import (
	"fmt"
	"math"
)

// Fill is what a single ledger step executed, if anything
type Fill struct {
	Side   Signal
	Shares int64
	Price  float64
	Fee    float64
}

// Executed reports whether the step traded
func (f Fill) Executed() bool {
	return f.Side != Hold
}

// Marker is the +1/-1/0 trade marker of the fill
func (f Fill) Marker() int {
	return int(f.Side)
}

// ApplySignal advances the ledger by one step.
//
// A Buy while flat spends as many whole shares as cash/price allows plus
// the fee on that notional; if not even one share fits nothing happens.
// A Sell while holding liquidates the whole position net of fee. Every
// other combination leaves the ledger untouched.
func ApplySignal(state LedgerState, price float64, signal Signal, feeRate float64) (LedgerState, Fill) {
	switch {
	case signal == Buy && !state.Holding():
		shares := int64(math.Floor(state.Cash / price))
		if shares <= 0 {
			return state, Fill{}
		}
		notional := float64(shares) * price
		fee := notional * feeRate
		state.Cash -= notional + fee
		state.Shares = shares
		state.CumulativeFees += fee
		return state, Fill{Side: Buy, Shares: shares, Price: price, Fee: fee}

	case signal == Sell && state.Holding():
		shares := state.Shares
		notional := float64(shares) * price
		fee := notional * feeRate
		state.Cash += notional - fee
		state.Shares = 0
		state.CumulativeFees += fee
		return state, Fill{Side: Sell, Shares: shares, Price: price, Fee: fee}
	}
	return state, Fill{}
}

// Simulate replays signals against a ledger that starts with all cash.
//
// It is a strict left fold: step t only sees the ledger left by step t-1.
// The returned trades list every executed fill in order.
func Simulate(series PriceSeries, signals []Signal, initialCapital, feeRate float64) (*SimulationResult, []TradeRecord, error) {
	if len(series) != len(signals) {
		return nil, nil, fmt.Errorf("series has %d points but %d signals", len(series), len(signals))
	}

	state := LedgerState{Cash: initialCapital}
	result := &SimulationResult{Steps: make([]Step, 0, len(series))}
	var trades []TradeRecord
	prevValue := initialCapital

	for i, p := range series {
		var fill Fill
		state, fill = ApplySignal(state, p.Close, signals[i], feeRate)
		if fill.Executed() {
			trades = append(trades, TradeRecord{
				Date:      p.Date,
				Side:      fill.Side,
				Shares:    fill.Shares,
				Price:     fill.Price,
				Fee:       fill.Fee,
				CashAfter: state.Cash,
			})
		}

		value := state.Value(p.Close)
		dailyReturn := 0.0
		if prevValue != 0 {
			dailyReturn = (value - prevValue) / prevValue
		}
		prevValue = value

		position := 0
		if state.Holding() {
			position = 1
		}
		result.Steps = append(result.Steps, Step{
			Date:           p.Date,
			Close:          p.Close,
			Signal:         signals[i],
			PortfolioValue: value,
			Position:       position,
			Trade:          fill.Marker(),
			DailyReturn:    dailyReturn,
			Cash:           state.Cash,
			Shares:         state.Shares,
			CumulativeFees: state.CumulativeFees,
		})
	}

	result.Final = state
	result.TotalFees = state.CumulativeFees
	return result, trades, nil
}
