package dataflows

import (
	"context"
	"log/slog"
	"time"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

// CachedProvider serves repeated requests for the same range from a
// PriceCache. Cache failures are logged and fall through to the provider.
type CachedProvider struct {
	inner PriceProvider
	cache PriceCache
	ttl   time.Duration
}

func NewCachedProvider(inner PriceProvider, cache PriceCache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachedProvider) Name() string { return c.inner.Name() }

func (c *CachedProvider) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) (backtest.PriceSeries, error) {
	symbol = NormalizeSymbol(symbol)
	start, end = Day(start), Day(end)

	series, found, err := c.cache.LoadPrices(ctx, c.inner.Name(), symbol, start, end, c.ttl)
	switch {
	case err != nil:
		slog.Warn("price cache read failed", "provider", c.inner.Name(), "symbol", symbol, "error", err)
	case found:
		slog.Debug("price cache hit", "provider", c.inner.Name(), "symbol", symbol, "bars", len(series))
		return series, nil
	default:
		slog.Debug("price cache miss", "provider", c.inner.Name(), "symbol", symbol, "range", FormatDateRange(start, end))
	}

	series, err = c.inner.GetDailyCloses(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SavePrices(ctx, c.inner.Name(), symbol, start, end, series); err != nil {
		slog.Warn("price cache write failed", "provider", c.inner.Name(), "symbol", symbol, "error", err)
	}
	return series, nil
}

// CompanyName forwards to the wrapped provider when it can resolve names
func (c *CachedProvider) CompanyName(ctx context.Context, symbol string) (string, error) {
	if namer, ok := c.inner.(CompanyNamer); ok {
		return namer.CompanyName(ctx, symbol)
	}
	return "", nil
}
