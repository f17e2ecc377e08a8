package dataflows

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

// CSVFileClient reads daily closes from a local CSV export with a header
// row naming "Date" and "Close" columns. UTF-16 files with a BOM are decoded.
type CSVFileClient struct {
	path string
}

func NewCSVFileClient(path string) *CSVFileClient {
	return &CSVFileClient{path: path}
}

func (c *CSVFileClient) Name() string { return "csv" }

// GetDailyCloses ignores symbol; the file holds a single instrument.
func (c *CSVFileClient) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) (backtest.PriceSeries, error) {
	if strings.TrimSpace(c.path) == "" {
		return nil, errors.New("csv provider needs a file path")
	}
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	series, err := readCloses(f, start, end)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	return series, nil
}

func readCloses(r io.Reader, start, end time.Time) (backtest.PriceSeries, error) {
	br := bufio.NewReader(r)
	// detect UTF-16 BOM; if present, decode to UTF-8
	if b, _ := br.Peek(2); len(b) == 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		br = bufio.NewReader(transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return backtest.PriceSeries{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "date", "timestamp":
			dateCol = i
		case "close":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("header must contain Date and Close columns, got %v", header)
	}

	series := backtest.PriceSeries{}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(rec) <= dateCol || len(rec) <= closeCol {
			continue
		}
		d, err := ParseDateString(rec[dateCol])
		if err != nil {
			continue
		}
		px, err := strconv.ParseFloat(strings.TrimSpace(strings.Trim(rec[closeCol], `"`)), 64)
		if err != nil {
			continue
		}
		if !InRange(d, start, end) {
			continue
		}
		series = append(series, backtest.PricePoint{Date: d, Close: px})
	}
	return series, nil
}
