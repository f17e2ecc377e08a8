package dataflows

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

// longportMaxCandles is the most daily candles one Candlesticks call returns
const longportMaxCandles = 1000

// candleSource is the part of *quote.QuoteContext the client uses
type candleSource interface {
	Candlesticks(ctx context.Context, symbol string, period quote.Period, count int32, adjustType quote.AdjustType) ([]*quote.Candlestick, error)
	StaticInfo(ctx context.Context, symbols []string) ([]*quote.StaticInfo, error)
}

// LongportConfig holds the OpenAPI credentials
type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

type LongportClient struct {
	quoteCtx candleSource
	now      func() time.Time
}

func NewLongportClient(cfg LongportConfig) (*LongportClient, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.AppKey, cfg.AppSecret, cfg.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext, now: time.Now}, nil
}

func (lpc *LongportClient) Name() string { return "longport" }

// LongportSymbol adds the US market suffix to bare tickers
func LongportSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

// GetDailyCloses pulls enough recent daily candles to reach start and keeps
// those in [start, end). Ranges older than the candle limit come back short.
func (lpc *LongportClient) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) (backtest.PriceSeries, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	days := int(math.Ceil(lpc.now().Sub(Day(start)).Hours() / 24))
	if days <= 0 {
		return backtest.PriceSeries{}, nil
	}
	if days > longportMaxCandles {
		days = longportMaxCandles
	}

	sym := LongportSymbol(symbol)
	sticks, err := lpc.quoteCtx.Candlesticks(ctx, sym, quote.PeriodDay, int32(days), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("failed to get candlesticks for %s: %w", sym, err)
	}

	series := make(backtest.PriceSeries, 0, len(sticks))
	for _, stick := range sticks {
		if stick == nil || stick.Close == nil {
			continue
		}
		px, ok := decimalClose(*stick.Close)
		if !ok {
			continue
		}
		d := Day(time.Unix(stick.Timestamp, 0).UTC())
		if !InRange(d, start, end) {
			continue
		}
		series = append(series, backtest.PricePoint{Date: d, Close: px})
	}
	return series, nil
}

// CompanyName returns the English name from the static info endpoint
func (lpc *LongportClient) CompanyName(ctx context.Context, symbol string) (string, error) {
	if lpc.quoteCtx == nil {
		return "", errors.New("quote context is nil")
	}
	infos, err := lpc.quoteCtx.StaticInfo(ctx, []string{LongportSymbol(symbol)})
	if err != nil {
		return "", err
	}
	for _, info := range infos {
		if info != nil && info.NameEn != "" {
			return info.NameEn, nil
		}
	}
	return "", fmt.Errorf("no static info for %s", symbol)
}
