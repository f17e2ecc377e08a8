package backtest

import (
	"math"
	"testing"
	"time"
)

const tolerance = 1e-9

func seriesOf(closes ...float64) PriceSeries {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	s := make(PriceSeries, len(closes))
	for i, c := range closes {
		s[i] = PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return s
}

// wave is a deterministic oscillating series long enough to trigger several crosses
func wave(n int) PriceSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 15*math.Sin(float64(i)/4) + 4*math.Sin(float64(i)*1.7)
	}
	return seriesOf(closes...)
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Fatalf("%s: expected %.10f, got %.10f", name, want, got)
	}
}
