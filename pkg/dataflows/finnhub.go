package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient loads daily candles from the Finnhub REST API
type FinnhubClient struct {
	client *resty.Client
	apiKey string
	retry  *RetryConfig
}

// FinnhubOption customises a FinnhubClient
type FinnhubOption func(*FinnhubClient)

// WithFinnhubBaseURL points the client at another host; used by tests.
func WithFinnhubBaseURL(url string) FinnhubOption {
	return func(fc *FinnhubClient) {
		if url != "" {
			fc.client.SetBaseURL(url)
		}
	}
}

// WithFinnhubRetry overrides the retry policy
func WithFinnhubRetry(cfg *RetryConfig) FinnhubOption {
	return func(fc *FinnhubClient) {
		if cfg != nil {
			fc.retry = cfg
		}
	}
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(apiKey string, opts ...FinnhubOption) *FinnhubClient {
	client := resty.New()
	client.SetBaseURL(finnhubBaseURL)
	client.SetTimeout(30 * time.Second)

	fc := &FinnhubClient{
		client: client,
		apiKey: apiKey,
		retry:  DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// finnhubCandles is the /stock/candle payload
type finnhubCandles struct {
	Close     []json.Number `json:"c"`
	Timestamp []int64       `json:"t"`
	Status    string        `json:"s"`
}

type finnhubProfile struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

func (fc *FinnhubClient) Name() string { return "finnhub" }

// GetDailyCloses returns daily closes in [start, end). A "no_data" status is
// an empty series.
func (fc *FinnhubClient) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) (backtest.PriceSeries, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("Finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, Permanent(err)
	}
	symbol = NormalizeSymbol(symbol)

	var payload finnhubCandles
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol":     symbol,
				"resolution": "D",
				"from":       strconv.FormatInt(Day(start).Unix(), 10),
				"to":         strconv.FormatInt(Day(end).Unix()-1, 10),
				"token":      fc.apiKey,
			}).
			Get("/stock/candle")
		if err != nil {
			if ctx.Err() != nil {
				return Permanent(ctx.Err())
			}
			return fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
		}
		if err := statusError(resp); err != nil {
			return err
		}

		payload = finnhubCandles{}
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return Permanent(fmt.Errorf("failed to parse candle response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch payload.Status {
	case "no_data":
		return backtest.PriceSeries{}, nil
	case "ok":
	default:
		return nil, fmt.Errorf("unexpected candle status %q for %s", payload.Status, symbol)
	}
	if len(payload.Close) != len(payload.Timestamp) {
		return nil, fmt.Errorf("candle response for %s has %d closes and %d timestamps",
			symbol, len(payload.Close), len(payload.Timestamp))
	}

	series := make(backtest.PriceSeries, 0, len(payload.Close))
	for i, c := range payload.Close {
		d, err := decimal.NewFromString(c.String())
		if err != nil {
			continue
		}
		px, ok := decimalClose(d)
		if !ok {
			continue
		}
		day := Day(time.Unix(payload.Timestamp[i], 0).UTC())
		if !InRange(day, start, end) {
			continue
		}
		series = append(series, backtest.PricePoint{Date: day, Close: px})
	}
	return series, nil
}

// CompanyName looks the symbol up in /stock/profile2
func (fc *FinnhubClient) CompanyName(ctx context.Context, symbol string) (string, error) {
	if fc.apiKey == "" {
		return "", fmt.Errorf("Finnhub API key not configured")
	}
	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": NormalizeSymbol(symbol),
			"token":  fc.apiKey,
		}).
		Get("/stock/profile2")
	if err != nil {
		return "", fmt.Errorf("failed to fetch profile for %s: %w", symbol, err)
	}
	if err := statusError(resp); err != nil {
		return "", err
	}
	var profile finnhubProfile
	if err := json.Unmarshal(resp.Body(), &profile); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}
	return profile.Name, nil
}

// statusError maps HTTP failures; client errors other than rate limiting
// are not retried.
func statusError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code == http.StatusOK {
		return nil
	}
	err := fmt.Errorf("API error %d: %s", code, resp.String())
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return Permanent(err)
	}
	return err
}
