package dataflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

const dateLayout = "2006-01-02"

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (bad key, unknown symbol)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithRetry executes fn with exponential backoff. Sleeps are cut short when
// ctx is done, and permanent errors are returned immediately.
func WithRetry(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt-1)))
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
			slog.Debug("retrying request", "attempt", attempt, "delay", delay, "error", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// ValidateSymbol checks if a stock symbol is valid format
func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if len(symbol) == 0 {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 12 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if strings.ContainsAny(symbol, " \t/\\?&") {
		return fmt.Errorf("symbol contains invalid characters: %q", symbol)
	}
	return nil
}

// NormalizeSymbol converts symbol to standard format
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// FormatDateRange creates a human-readable date range string
func FormatDateRange(start, end time.Time) string {
	return fmt.Sprintf("%s to %s", start.Format(dateLayout), end.Format(dateLayout))
}

// ParseDateString parses common date formats into a UTC calendar day
func ParseDateString(dateStr string) (time.Time, error) {
	formats := []string{
		dateLayout,
		"2006-01-02 15:04:05",
		"01/02/2006",
		"01-02-2006",
		time.RFC3339,
	}

	s := strings.TrimSpace(dateStr)
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return Day(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CleanSeries drops rows without a usable close, sorts by date and keeps the
// first row for each trading day.
func CleanSeries(series backtest.PriceSeries) backtest.PriceSeries {
	cleaned := make(backtest.PriceSeries, 0, len(series))
	for _, p := range series {
		if p.Date.IsZero() || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			continue
		}
		cleaned = append(cleaned, backtest.PricePoint{Date: Day(p.Date), Close: p.Close})
	}
	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Date.Before(cleaned[j].Date) })

	out := cleaned[:0]
	for i, p := range cleaned {
		if i > 0 && p.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// InRange reports whether day d falls in [start, end)
func InRange(d, start, end time.Time) bool {
	d = Day(d)
	return !d.Before(Day(start)) && d.Before(Day(end))
}

// decimalClose converts a provider decimal to float64, rejecting zero and
// negative values.
func decimalClose(d decimal.Decimal) (float64, bool) {
	if !d.IsPositive() {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}
