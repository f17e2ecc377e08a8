package dataflows

import (
	"context"
	"time"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

// PriceProvider loads daily closing prices for [start, end). Implementations
// return the series oldest first; an empty series is not an error.
type PriceProvider interface {
	Name() string
	GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) (backtest.PriceSeries, error)
}

// CompanyNamer is implemented by providers that can resolve a display name
type CompanyNamer interface {
	CompanyName(ctx context.Context, symbol string) (string, error)
}

// PriceCache is the persistence the cached provider needs
type PriceCache interface {
	LoadPrices(ctx context.Context, provider, symbol string, start, end time.Time, maxAge time.Duration) (backtest.PriceSeries, bool, error)
	SavePrices(ctx context.Context, provider, symbol string, start, end time.Time, series backtest.PriceSeries) error
}
