package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

const (
	defaultChartHeight = 12
	defaultChartWidth  = 72
)

// Chart renders fixed-size text line charts
type Chart struct {
	Height int
	Width  int
}

func DefaultChart() Chart {
	return Chart{Height: defaultChartHeight, Width: defaultChartWidth}
}

type line struct {
	values []float64
	glyph  rune
}

type level struct {
	value float64
	glyph rune
}

// Price plots closes with B and S at executed trades
func (c Chart) Price(steps []backtest.Step) string {
	values := make([]float64, len(steps))
	markers := make(map[int]rune)
	for i, s := range steps {
		values[i] = s.Close
		switch s.Trade {
		case 1:
			markers[i] = 'B'
		case -1:
			markers[i] = 'S'
		}
	}
	return c.render([]line{{values: values, glyph: '•'}}, nil, markers, 2)
}

// RSI plots the oscillator against its overbought and oversold levels
func (c Chart) RSI(rsi []float64, overbought, oversold float64) string {
	levels := []level{{value: overbought, glyph: '-'}, {value: oversold, glyph: '-'}, {value: 0, glyph: ' '}, {value: 100, glyph: ' '}}
	return c.render([]line{{values: rsi, glyph: '•'}}, levels, nil, 0)
}

// Equity overlays the strategy value (*) and the buy-and-hold value (+).
// Cells where both land show #.
func (c Chart) Equity(strategy []float64, baseline []backtest.EquityPoint) string {
	base := make([]float64, len(baseline))
	for i, p := range baseline {
		base[i] = p.Value
	}
	return c.render([]line{{values: strategy, glyph: '*'}, {values: base, glyph: '+'}}, nil, nil, 0)
}

func (c Chart) size(n int) (int, int) {
	h, w := c.Height, c.Width
	if h < 2 {
		h = defaultChartHeight
	}
	if w < 1 {
		w = defaultChartWidth
	}
	if n < w {
		w = n
	}
	return h, w
}

func (c Chart) render(lines []line, levels []level, markers map[int]rune, decimals int) string {
	n := 0
	for _, l := range lines {
		if len(l.values) > n {
			n = len(l.values)
		}
	}
	if n == 0 {
		return "(no data)\n"
	}
	height, width := c.size(n)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range lines {
		for _, v := range l.values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	for _, lv := range levels {
		lo, hi = math.Min(lo, lv.value), math.Max(hi, lv.value)
	}
	if hi == lo {
		hi = lo + 1
	}
	row := func(v float64) int {
		return int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
	}

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	for _, lv := range levels {
		r := row(lv.value)
		for col := range grid[r] {
			grid[r][col] = lv.glyph
		}
	}

	for _, l := range lines {
		for col := 0; col < width; col++ {
			from, to := bucket(col, len(l.values), width)
			if from >= to {
				continue
			}
			r := row(l.values[to-1])
			if cur := grid[r][col]; cur != ' ' && cur != '-' && cur != l.glyph {
				grid[r][col] = '#'
			} else {
				grid[r][col] = l.glyph
			}
		}
	}

	if len(markers) > 0 && len(lines) > 0 {
		values := lines[0].values
		for col := 0; col < width; col++ {
			from, to := bucket(col, len(values), width)
			for i := to - 1; i >= from; i-- {
				if m, ok := markers[i]; ok {
					grid[row(values[i])][col] = m
					break
				}
			}
		}
	}

	var b strings.Builder
	for r, cells := range grid {
		label := ""
		switch r {
		case 0:
			label = fmt.Sprintf("%.*f", decimals, hi)
		case height - 1:
			label = fmt.Sprintf("%.*f", decimals, lo)
		}
		fmt.Fprintf(&b, "%10s │%s\n", label, string(cells))
	}
	fmt.Fprintf(&b, "%10s └%s\n", "", strings.Repeat("─", width))
	return b.String()
}

// bucket maps column col to the half-open index range it summarises
func bucket(col, n, width int) (int, int) {
	return col * n / width, (col + 1) * n / width
}
