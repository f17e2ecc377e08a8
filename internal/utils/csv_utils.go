package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

type CSVManager struct {
	basePath string
}

func NewCSVManager(basePath string) *CSVManager {
	return &CSVManager{
		basePath: basePath,
	}
}

// WriteBacktestCSV writes one row per trading day of a finished run to
// {base}/csv/backtests/{symbol}/{symbol}_rsi_{runID}.csv and returns the path.
func (c *CSVManager) WriteBacktestCSV(symbol, runID string, out *backtest.Outcome) (string, error) {
	if out == nil || out.Result == nil {
		return "", fmt.Errorf("no backtest result to export")
	}

	dirPath := filepath.Join(c.basePath, "csv", "backtests", symbol)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	filePath := filepath.Join(dirPath, fmt.Sprintf("%s_rsi_%s.csv", symbol, runID))

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	headers := []string{
		"Date", "Close", "RSI", "Signal", "Position", "Trade",
		"Cash", "Shares", "PortfolioValue", "DailyReturn", "CumulativeFees", "BuyHoldValue",
	}
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write headers: %w", err)
	}

	for i, step := range out.Result.Steps {
		row := []string{
			step.Date.Format("2006-01-02"),
			formatFloat(step.Close, 4),
			formatFloat(valueAt(out.RSI, i), 4),
			step.Signal.String(),
			strconv.Itoa(step.Position),
			strconv.Itoa(step.Trade),
			formatFloat(step.Cash, 2),
			strconv.FormatInt(step.Shares, 10),
			formatFloat(step.PortfolioValue, 2),
			formatFloat(step.DailyReturn, 6),
			formatFloat(step.CumulativeFees, 2),
			formatFloat(equityAt(out.Baseline, i), 2),
		}
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return filePath, nil
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func equityAt(curve []backtest.EquityPoint, i int) float64 {
	if i < len(curve) {
		return curve[i].Value
	}
	return 0
}
