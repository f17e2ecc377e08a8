package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dyike/rsi-backtest/pkg/backtest"
	"github.com/dyike/rsi-backtest/pkg/dataflows"
)

// DefaultMemoryTTL bounds how long a range stays in process memory
const DefaultMemoryTTL = 5 * time.Minute

// PriceCache keeps recently used ranges in memory in front of an optional
// persistent cache. A nil next makes it memory only.
type PriceCache struct {
	mu      sync.Mutex
	entries map[string]*cachedSeries
	next    dataflows.PriceCache
	ttl     time.Duration
	now     func() time.Time
}

type cachedSeries struct {
	series backtest.PriceSeries
	// zero when the next tier could not say when the range was fetched
	fetchedAt time.Time
	loadedAt  time.Time
}

// fresh reports whether the entry may answer a load at now
func (e *cachedSeries) fresh(now time.Time, ttl, maxAge time.Duration) bool {
	if now.Sub(e.loadedAt) > ttl {
		return false
	}
	if maxAge <= 0 {
		return true
	}
	return !e.fetchedAt.IsZero() && now.Sub(e.fetchedAt) <= maxAge
}

// fetchClock is implemented by persistent tiers that record fetch times
type fetchClock interface {
	FetchedAt(ctx context.Context, provider, symbol string, start, end time.Time) (time.Time, bool, error)
}

func NewPriceCache(next dataflows.PriceCache, ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &PriceCache{
		entries: make(map[string]*cachedSeries),
		next:    next,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(provider, symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%s", provider, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// LoadPrices checks memory first, then the persistent tier. Hits from the
// persistent tier are promoted to memory with the tier's own fetch time, so
// maxAge keeps counting from the original download.
func (c *PriceCache) LoadPrices(ctx context.Context, provider, symbol string, start, end time.Time, maxAge time.Duration) (backtest.PriceSeries, bool, error) {
	key := cacheKey(provider, symbol, start, end)
	now := c.now()

	c.mu.Lock()
	if cached, ok := c.entries[key]; ok {
		if cached.fresh(now, c.ttl, maxAge) {
			series := cloneSeries(cached.series)
			c.mu.Unlock()
			slog.Debug("memory cache hit", "key", key)
			return series, true, nil
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.next == nil {
		return nil, false, nil
	}
	series, found, err := c.next.LoadPrices(ctx, provider, symbol, start, end, maxAge)
	if err != nil || !found {
		return series, found, err
	}

	var fetchedAt time.Time
	if clock, ok := c.next.(fetchClock); ok {
		at, known, err := clock.FetchedAt(ctx, provider, symbol, start, end)
		if err != nil {
			slog.Debug("fetch time unavailable", "key", key, "error", err)
		} else if known {
			fetchedAt = at
		}
	}

	c.mu.Lock()
	c.entries[key] = &cachedSeries{series: cloneSeries(series), fetchedAt: fetchedAt, loadedAt: now}
	c.mu.Unlock()
	return series, true, nil
}

// SavePrices stores the range in memory and forwards it to the next tier
func (c *PriceCache) SavePrices(ctx context.Context, provider, symbol string, start, end time.Time, series backtest.PriceSeries) error {
	now := c.now()
	c.mu.Lock()
	c.entries[cacheKey(provider, symbol, start, end)] = &cachedSeries{
		series:    cloneSeries(series),
		fetchedAt: now,
		loadedAt:  now,
	}
	c.mu.Unlock()

	if c.next == nil {
		return nil
	}
	return c.next.SavePrices(ctx, provider, symbol, start, end, series)
}

// Clear drops every in-memory entry; the persistent tier is untouched
func (c *PriceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cachedSeries)
}

// Keys returns the cached range keys, sorted
func (c *PriceCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func cloneSeries(series backtest.PriceSeries) backtest.PriceSeries {
	if series == nil {
		return nil
	}
	out := make(backtest.PriceSeries, len(series))
	copy(out, series)
	return out
}
