package backtest

import "time"

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is a chronological run of daily closes with unique dates
type PriceSeries []PricePoint

// Closes returns the close prices in series order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Signal is the discrete event emitted for a single step
type Signal int

const (
	Hold Signal = 0
	Buy  Signal = 1
	Sell Signal = -1
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// LedgerState is the cash/holdings accumulator carried from step to step
type LedgerState struct {
	Cash           float64 `json:"cash"`
	Shares         int64   `json:"shares"`
	CumulativeFees float64 `json:"cumulative_fees"`
}

// Value marks the ledger to market at the given price
func (l LedgerState) Value(price float64) float64 {
	return l.Cash + float64(l.Shares)*price
}

// Holding reports whether the ledger has an open position
func (l LedgerState) Holding() bool {
	return l.Shares > 0
}

// Step is one row of the equity curve
type Step struct {
	Date           time.Time `json:"date"`
	Close          float64   `json:"close"`
	Signal         Signal    `json:"signal"`
	PortfolioValue float64   `json:"portfolio_value"`
	Position       int       `json:"position"` // 1 while holding shares
	Trade          int       `json:"trade"`    // +1 buy, -1 sell, 0 none
	DailyReturn    float64   `json:"daily_return"`

	Cash           float64 `json:"cash"`
	Shares         int64   `json:"shares"`
	CumulativeFees float64 `json:"cumulative_fees"`
}

// SimulationResult is the full day-by-day replay of a signal sequence
type SimulationResult struct {
	Steps     []Step      `json:"steps"`
	TotalFees float64     `json:"total_fees"`
	Final     LedgerState `json:"final"`
}

// DailyReturns returns the strategy's daily return column
func (r *SimulationResult) DailyReturns() []float64 {
	out := make([]float64, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.DailyReturn
	}
	return out
}

// Values returns the portfolio value column
func (r *SimulationResult) Values() []float64 {
	out := make([]float64, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.PortfolioValue
	}
	return out
}

// TradeCount is the sum of absolute trade markers
func (r *SimulationResult) TradeCount() int {
	n := 0
	for _, s := range r.Steps {
		if s.Trade != 0 {
			n++
		}
	}
	return n
}

// TradeRecord describes one executed fill
type TradeRecord struct {
	Date      time.Time `json:"date"`
	Side      Signal    `json:"side"`
	Shares    int64     `json:"shares"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	CashAfter float64   `json:"cash_after"`
}

// EquityPoint is one row of a passive equity curve
type EquityPoint struct {
	Date        time.Time `json:"date"`
	Value       float64   `json:"value"`
	DailyReturn float64   `json:"daily_return"`
}
