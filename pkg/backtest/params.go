package backtest

import (
	"errors"
	"fmt"
)

const (
	DefaultPeriod     = 14
	DefaultOverbought = 70.0
	DefaultOversold   = 30.0
	DefaultCapital    = 10000.0
	DefaultFeeRate    = 0.001 // 0.1%
)

var (
	// ErrInvalidParameter is matched by every *ParamError
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoData means the price series was empty; nothing was simulated
	ErrNoData = errors.New("no data available for the selected parameters")
)

// Reason enumerates why a parameter set was rejected
type Reason int

const (
	CapitalNotPositive Reason = iota + 1
	FeeNegative
	OverboughtOutOfRange
	OversoldOutOfRange
	OversoldNotBelowOverbought
	PeriodNotPositive
)

func (r Reason) String() string {
	switch r {
	case CapitalNotPositive:
		return "starting capital must be positive"
	case FeeNegative:
		return "fee percentage cannot be negative"
	case OverboughtOutOfRange:
		return "RSI overbought level must be between 0 and 100"
	case OversoldOutOfRange:
		return "RSI oversold level must be between 0 and 100"
	case OversoldNotBelowOverbought:
		return "RSI oversold level must be less than RSI overbought level"
	case PeriodNotPositive:
		return "RSI period must be a positive integer"
	default:
		return "unknown parameter error"
	}
}

// ParamError is a rejected configuration
type ParamError struct {
	Reason Reason
	Field  string
	Value  float64
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s (got %g)", e.Field, e.Reason, e.Value)
}

func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// Params are the inputs of one simulation run besides the price series.
// FeeRate is a fraction of traded notional, not a percentage.
type Params struct {
	Period         int     `json:"period"`
	Overbought     float64 `json:"overbought"`
	Oversold       float64 `json:"oversold"`
	InitialCapital float64 `json:"initial_capital"`
	FeeRate        float64 `json:"fee_rate"`
}

// DefaultParams returns the documented defaults
func DefaultParams() Params {
	return Params{
		Period:         DefaultPeriod,
		Overbought:     DefaultOverbought,
		Oversold:       DefaultOversold,
		InitialCapital: DefaultCapital,
		FeeRate:        DefaultFeeRate,
	}
}

// FeeRateFromPercent converts a user-facing percentage (0.1 means 0.1%) to a fraction
func FeeRateFromPercent(pct float64) float64 {
	return pct / 100
}

// Validate checks p in the same order the values are entered and
// returns the first violation as a *ParamError.
func (p Params) Validate() error {
	if !(p.InitialCapital > 0) {
		return &ParamError{Reason: CapitalNotPositive, Field: "initial_capital", Value: p.InitialCapital}
	}
	if !(p.FeeRate >= 0) {
		return &ParamError{Reason: FeeNegative, Field: "fee_rate", Value: p.FeeRate}
	}
	if !(p.Overbought > 0 && p.Overbought < 100) {
		return &ParamError{Reason: OverboughtOutOfRange, Field: "overbought", Value: p.Overbought}
	}
	if !(p.Oversold > 0 && p.Oversold < 100) {
		return &ParamError{Reason: OversoldOutOfRange, Field: "oversold", Value: p.Oversold}
	}
	if p.Oversold >= p.Overbought {
		return &ParamError{Reason: OversoldNotBelowOverbought, Field: "oversold", Value: p.Oversold}
	}
	if p.Period <= 0 {
		return &ParamError{Reason: PeriodNotPositive, Field: "period", Value: float64(p.Period)}
	}
	return nil
}
