package dataflows

import (
	"context"
	"testing"
	"time"

	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
)

type fakeCandles struct {
	symbol string
	count  int32
	sticks []*quote.Candlestick
}

func (f *fakeCandles) Candlesticks(ctx context.Context, symbol string, period quote.Period, count int32, adjustType quote.AdjustType) ([]*quote.Candlestick, error) {
	f.symbol = symbol
	f.count = count
	return f.sticks, nil
}

func (f *fakeCandles) StaticInfo(ctx context.Context, symbols []string) ([]*quote.StaticInfo, error) {
	return []*quote.StaticInfo{{Symbol: symbols[0], NameEn: "Apple Inc."}}, nil
}

func stick(day string, px float64) *quote.Candlestick {
	c := decimal.NewFromFloat(px)
	return &quote.Candlestick{Close: &c, Timestamp: date(day).Unix()}
}

func TestLongportClientRequiresCredentials(t *testing.T) {
	if _, err := NewLongportClient(LongportConfig{AppKey: "k"}); err == nil {
		t.Fatal("expected an error for missing credentials")
	}
}

func TestLongportGetDailyCloses(t *testing.T) {
	src := &fakeCandles{sticks: []*quote.Candlestick{
		stick("2023-12-28", 193.58),
		stick("2024-01-02", 185.64),
		{Timestamp: date("2024-01-03").Unix()},
		stick("2024-01-04", 181.91),
		stick("2024-01-05", 181.18),
	}}
	client := &LongportClient{
		quoteCtx: src,
		now:      func() time.Time { return date("2024-01-10") },
	}

	series, err := client.GetDailyCloses(context.Background(), "aapl", date("2024-01-01"), date("2024-01-05"))
	if err != nil {
		t.Fatalf("GetDailyCloses: %v", err)
	}
	if src.symbol != "AAPL.US" || src.count != 9 {
		t.Fatalf("unexpected request symbol=%s count=%d", src.symbol, src.count)
	}
	if len(series) != 2 || series[0].Close != 185.64 || series[1].Close != 181.91 {
		t.Fatalf("unexpected series %+v", series)
	}

	name, err := client.CompanyName(context.Background(), "AAPL")
	if err != nil || name != "Apple Inc." {
		t.Fatalf("CompanyName = %q, %v", name, err)
	}
}

func TestLongportCapsCandleCount(t *testing.T) {
	src := &fakeCandles{}
	client := &LongportClient{quoteCtx: src, now: func() time.Time { return date("2024-01-10") }}
	if _, err := client.GetDailyCloses(context.Background(), "AAPL", date("2015-01-01"), date("2024-01-01")); err != nil {
		t.Fatalf("GetDailyCloses: %v", err)
	}
	if src.count != longportMaxCandles {
		t.Fatalf("expected count capped at %d, got %d", longportMaxCandles, src.count)
	}
}
