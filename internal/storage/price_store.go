package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/rsi-backtest/pkg/backtest"
	"github.com/dyike/rsi-backtest/pkg/sqlite"
)

const dateLayout = "2006-01-02"

// PriceStore caches daily closes per provider and requested range.
type PriceStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPriceStore(dbPath string) (*PriceStore, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &PriceStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := sqlite.Migrate(context.Background(), db, priceSchema...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init price schema: %w", err)
	}
	return s, nil
}

func (s *PriceStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var priceSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_bars (
    provider TEXT NOT NULL,
    symbol TEXT NOT NULL,
    date TEXT NOT NULL,
    close REAL NOT NULL,
    PRIMARY KEY (provider, symbol, date)
)`,
	`CREATE TABLE IF NOT EXISTS price_fetches (
    provider TEXT NOT NULL,
    symbol TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    fetched_at DATETIME NOT NULL,
    rows INTEGER NOT NULL,
    PRIMARY KEY (provider, symbol, start_date, end_date)
)`,
}

// SavePrices replaces the cached bars for [start, end) and stamps the fetch.
func (s *PriceStore) SavePrices(ctx context.Context, provider, symbol string, start, end time.Time, series backtest.PriceSeries) error {
	if strings.TrimSpace(provider) == "" || strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("provider and symbol are required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
DELETE FROM price_bars
WHERE provider = ? AND symbol = ? AND date >= ? AND date < ?
`, provider, symbol, start.Format(dateLayout), end.Format(dateLayout)); err != nil {
		return fmt.Errorf("clear price bars: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO price_bars (provider, symbol, date, close)
VALUES (?, ?, ?, ?)
ON CONFLICT(provider, symbol, date) DO UPDATE SET close = excluded.close
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range series {
		if _, err := stmt.ExecContext(ctx, provider, symbol, p.Date.Format(dateLayout), p.Close); err != nil {
			return fmt.Errorf("insert price bar %s: %w", p.Date.Format(dateLayout), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO price_fetches (provider, symbol, start_date, end_date, fetched_at, rows)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, symbol, start_date, end_date) DO UPDATE SET
    fetched_at = excluded.fetched_at,
    rows = excluded.rows
`, provider, symbol, start.Format(dateLayout), end.Format(dateLayout), s.now(), len(series)); err != nil {
		return fmt.Errorf("record fetch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prices: %w", err)
	}
	return nil
}

// FetchedAt returns when the range was last downloaded
func (s *PriceStore) FetchedAt(ctx context.Context, provider, symbol string, start, end time.Time) (time.Time, bool, error) {
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx, `
SELECT fetched_at FROM price_fetches
WHERE provider = ? AND symbol = ? AND start_date = ? AND end_date = ?
`, provider, symbol, start.Format(dateLayout), end.Format(dateLayout)).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lookup fetch: %w", err)
	}
	return fetchedAt, true, nil
}

// LoadPrices returns the cached bars for exactly this range. found is false
// when the range was never fetched or the fetch is older than maxAge; a
// non-positive maxAge never expires.
func (s *PriceStore) LoadPrices(ctx context.Context, provider, symbol string, start, end time.Time, maxAge time.Duration) (backtest.PriceSeries, bool, error) {
	fetchedAt, found, err := s.FetchedAt(ctx, provider, symbol, start, end)
	if err != nil || !found {
		return nil, false, err
	}
	if maxAge > 0 && s.now().Sub(fetchedAt) > maxAge {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT date, close FROM price_bars
WHERE provider = ? AND symbol = ? AND date >= ? AND date < ?
ORDER BY date ASC
`, provider, symbol, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, false, fmt.Errorf("load price bars: %w", err)
	}
	defer rows.Close()

	series := backtest.PriceSeries{}
	for rows.Next() {
		var (
			date string
			px   float64
		)
		if err := rows.Scan(&date, &px); err != nil {
			return nil, false, fmt.Errorf("scan price bar: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, false, fmt.Errorf("parse cached date %q: %w", date, err)
		}
		series = append(series, backtest.PricePoint{Date: d, Close: px})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("price bar rows: %w", err)
	}
	return series, true, nil
}
