package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dyike/rsi-backtest/internal/storage"
	"github.com/dyike/rsi-backtest/pkg/backtest"
	"github.com/dyike/rsi-backtest/pkg/sqlite"
)

type countingCache struct {
	loads, saves int
	series       backtest.PriceSeries
}

func (c *countingCache) LoadPrices(ctx context.Context, provider, symbol string, start, end time.Time, maxAge time.Duration) (backtest.PriceSeries, bool, error) {
	c.loads++
	return c.series, c.series != nil, nil
}

func (c *countingCache) SavePrices(ctx context.Context, provider, symbol string, start, end time.Time, series backtest.PriceSeries) error {
	c.saves++
	c.series = series
	return nil
}

var (
	start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)
)

func sampleSeries() backtest.PriceSeries {
	return backtest.PriceSeries{
		{Date: start, Close: 10},
		{Date: start.AddDate(0, 0, 1), Close: 11},
	}
}

func TestMemoryHitSkipsNextTier(t *testing.T) {
	next := &countingCache{}
	c := NewPriceCache(next, time.Minute)
	ctx := context.Background()

	if err := c.SavePrices(ctx, "yahoo", "AAPL", start, end, sampleSeries()); err != nil {
		t.Fatalf("SavePrices: %v", err)
	}
	if next.saves != 1 {
		t.Fatalf("expected write-through, got %d saves", next.saves)
	}

	got, found, err := c.LoadPrices(ctx, "yahoo", "AAPL", start, end, time.Hour)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if len(got) != 2 || got[1].Close != 11 {
		t.Fatalf("unexpected series %+v", got)
	}
	if next.loads != 0 {
		t.Fatalf("memory hit must not reach next tier, got %d loads", next.loads)
	}

	got[0].Close = 999
	again, _, _ := c.LoadPrices(ctx, "yahoo", "AAPL", start, end, time.Hour)
	if again[0].Close != 10 {
		t.Fatal("cached series was mutated through a returned slice")
	}
}

func TestExpiredEntryFallsThrough(t *testing.T) {
	next := &countingCache{}
	c := NewPriceCache(next, time.Minute)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	if err := c.SavePrices(ctx, "yahoo", "AAPL", start, end, sampleSeries()); err != nil {
		t.Fatalf("SavePrices: %v", err)
	}

	clock = clock.Add(2 * time.Minute)
	if _, found, _ := c.LoadPrices(ctx, "yahoo", "AAPL", start, end, 0); !found {
		t.Fatal("expected next tier to answer after memory expiry")
	}
	if next.loads != 1 {
		t.Fatalf("expected one next-tier load, got %d", next.loads)
	}

	// promoted back into memory
	if _, found, _ := c.LoadPrices(ctx, "yahoo", "AAPL", start, end, 0); !found || next.loads != 1 {
		t.Fatalf("expected promoted memory hit, loads=%d", next.loads)
	}
}

func TestMemoryOnly(t *testing.T) {
	c := NewPriceCache(nil, 0)
	ctx := context.Background()

	if _, found, err := c.LoadPrices(ctx, "csv", "X", start, end, 0); found || err != nil {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}
	if err := c.SavePrices(ctx, "csv", "X", start, end, sampleSeries()); err != nil {
		t.Fatalf("SavePrices: %v", err)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "csv|X|2023-01-02|2023-01-06" {
		t.Fatalf("unexpected keys %v", keys)
	}
	c.Clear()
	if len(c.Keys()) != 0 {
		t.Fatal("Clear left entries behind")
	}
}

func TestOverPriceStore(t *testing.T) {
	store, err := storage.NewPriceStore(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("NewPriceStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	writer := NewPriceCache(store, time.Minute)
	if err := writer.SavePrices(ctx, "yahoo", "MSFT", start, end, sampleSeries()); err != nil {
		t.Fatalf("SavePrices: %v", err)
	}

	// a fresh process sees only what reached the store
	reader := NewPriceCache(store, time.Minute)
	got, found, err := reader.LoadPrices(ctx, "yahoo", "MSFT", start, end, time.Hour)
	if err != nil || !found {
		t.Fatalf("expected store hit, got found=%v err=%v", found, err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
}

type stampedCache struct {
	*countingCache
	fetchedAt time.Time
}

func (c *stampedCache) FetchedAt(ctx context.Context, provider, symbol string, start, end time.Time) (time.Time, bool, error) {
	return c.fetchedAt, true, nil
}

func TestPromotionKeepsOriginalFetchTime(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	next := &stampedCache{
		countingCache: &countingCache{series: sampleSeries()},
		fetchedAt:     clock.Add(-50 * time.Minute),
	}
	c := NewPriceCache(next, 30*time.Minute)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	if _, found, _ := c.LoadPrices(ctx, "yahoo", "AAPL", start, end, time.Hour); !found || next.loads != 1 {
		t.Fatalf("expected next-tier hit, found=%v loads=%d", found, next.loads)
	}

	clock = clock.Add(2 * time.Minute)
	if _, found, _ := c.LoadPrices(ctx, "yahoo", "AAPL", start, end, time.Hour); !found || next.loads != 1 {
		t.Fatalf("expected memory hit, found=%v loads=%d", found, next.loads)
	}

	// 61 minutes after the download: still inside the memory ttl but past maxAge
	clock = clock.Add(9 * time.Minute)
	c.LoadPrices(ctx, "yahoo", "AAPL", start, end, time.Hour)
	if next.loads != 2 {
		t.Fatalf("stale promoted entry answered from memory, loads=%d", next.loads)
	}
}

func TestPromotionWithUnknownFetchTime(t *testing.T) {
	next := &countingCache{series: sampleSeries()}
	c := NewPriceCache(next, time.Minute)
	ctx := context.Background()

	c.LoadPrices(ctx, "yahoo", "AAPL", start, end, time.Hour)
	c.LoadPrices(ctx, "yahoo", "AAPL", start, end, time.Hour)
	if next.loads != 2 {
		t.Fatalf("entry of unknown age must defer to the next tier under maxAge, loads=%d", next.loads)
	}
	if _, found, _ := c.LoadPrices(ctx, "yahoo", "AAPL", start, end, 0); !found || next.loads != 2 {
		t.Fatalf("expected memory hit without maxAge, loads=%d", next.loads)
	}
}

func TestPriceStoreReportsFetchTime(t *testing.T) {
	store, err := storage.NewPriceStore(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("NewPriceStore: %v", err)
	}
	defer store.Close()

	var _ fetchClock = store
	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)
	if err := store.SavePrices(ctx, "yahoo", "NVDA", start, end, sampleSeries()); err != nil {
		t.Fatalf("SavePrices: %v", err)
	}
	at, known, err := store.FetchedAt(ctx, "yahoo", "NVDA", start, end)
	if err != nil || !known {
		t.Fatalf("expected a fetch time, got known=%v err=%v", known, err)
	}
	if at.Before(before) {
		t.Fatalf("fetch time %v predates the save", at)
	}
}
