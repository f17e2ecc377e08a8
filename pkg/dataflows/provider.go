package dataflows

import (
	"fmt"

	"github.com/dyike/rsi-backtest/config"
)

// NewPriceProvider builds the provider named by cfg.Provider and wraps it
// with cache when caching is enabled and a cache is given.
func NewPriceProvider(cfg *config.Config, cache PriceCache) (PriceProvider, error) {
	var provider PriceProvider
	switch cfg.Provider {
	case "", config.ProviderYahoo:
		provider = NewYahooFinanceClient()
	case config.ProviderFinnhub:
		if cfg.FinnhubAPIKey == "" {
			return nil, fmt.Errorf("finnhub provider needs FINNHUB_API_KEY")
		}
		provider = NewFinnhubClient(cfg.FinnhubAPIKey)
	case config.ProviderLongport:
		client, err := NewLongportClient(LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		})
		if err != nil {
			return nil, fmt.Errorf("create longport client: %w", err)
		}
		provider = client
	case config.ProviderCSV:
		// local files are not cached
		return NewCSVFileClient(cfg.CSVPath), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.CacheEnabled && cache != nil {
		return NewCachedProvider(provider, cache, cfg.CacheTTL()), nil
	}
	return provider, nil
}
