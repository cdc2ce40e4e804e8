package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"metals-dashboard/internal/models"
)

const dateLayout = "2006-01-02"

// UpsertPriceTick inserts a price tick, overwriting any existing row for the
// same (ticker, timestamp) key. Retried feed polls therefore never duplicate.
func (db *DB) UpsertPriceTick(t *models.PriceTick) error {
	query := `
		INSERT INTO metals_prices (ticker, timestamp, price, volume, open, high, low, close, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, timestamp) DO UPDATE SET
			price = EXCLUDED.price,
			volume = EXCLUDED.volume,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close
	`
	_, err := db.conn.Exec(query,
		t.Ticker, t.Timestamp.UTC().Unix(), t.Price, t.Volume,
		t.Open, t.High, t.Low, t.Close, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price tick: %w", err)
	}
	return nil
}

// GetPriceRange retrieves ticks for a ticker within [from, to], ascending by
// timestamp. No data yields an empty slice, not an error.
func (db *DB) GetPriceRange(ticker string, from, to time.Time) ([]*models.PriceTick, error) {
	query := `
		SELECT ticker, timestamp, price, volume, open, high, low, close, created_at
		FROM metals_prices
		WHERE ticker = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`
	rows, err := db.conn.Query(query, ticker, from.UTC().Unix(), to.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to get price range: %w", err)
	}
	defer rows.Close()

	var ticks []*models.PriceTick
	for rows.Next() {
		tick, err := scanPriceTick(rows)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, tick)
	}
	return ticks, rows.Err()
}

// GetLatestPrice retrieves the tick with the maximum timestamp for a ticker.
func (db *DB) GetLatestPrice(ticker string) (*models.PriceTick, error) {
	query := `
		SELECT ticker, timestamp, price, volume, open, high, low, close, created_at
		FROM metals_prices
		WHERE ticker = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`
	row := db.conn.QueryRow(query, ticker)
	tick, err := scanPriceTickRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no price data for %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return tick, nil
}

// RecomputeDailySummary aggregates all ticks for a ticker on the given date
// into one daily_summaries row, replacing any prior row for that key. Safe to
// call repeatedly; a day with no ticks removes any stale summary row.
func (db *DB) RecomputeDailySummary(ticker string, date time.Time) error {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	dateStr := dayStart.Format(dateLayout)

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Prices are stored as decimal text, so extrema are computed here rather
	// than with SQL MIN/MAX, which would compare lexicographically.
	rows, err := tx.Query(`
		SELECT open, high, low, close, volume
		FROM metals_prices
		WHERE ticker = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`, ticker, dayStart.Unix(), dayEnd.Unix())
	if err != nil {
		return fmt.Errorf("failed to read daily ticks: %w", err)
	}

	var (
		openPrice, closePrice decimal.Decimal
		highPrice, lowPrice   decimal.Decimal
		volume                int64
		tickCount             int
	)
	for rows.Next() {
		var o, h, l, c decimal.Decimal
		var v int64
		if err := rows.Scan(&o, &h, &l, &c, &v); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan daily tick: %w", err)
		}
		if tickCount == 0 {
			openPrice, highPrice, lowPrice = o, h, l
		}
		if h.GreaterThan(highPrice) {
			highPrice = h
		}
		if l.LessThan(lowPrice) {
			lowPrice = l
		}
		closePrice = c
		volume += v
		tickCount++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read daily ticks: %w", err)
	}

	if tickCount == 0 {
		if _, err := tx.Exec(`DELETE FROM daily_summaries WHERE ticker = ? AND date = ?`, ticker, dateStr); err != nil {
			return fmt.Errorf("failed to clear empty daily summary: %w", err)
		}
		return tx.Commit()
	}

	upsert := `
		INSERT INTO daily_summaries (ticker, date, open, high, low, close, volume, tick_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			tick_count = EXCLUDED.tick_count
	`
	_, err = tx.Exec(upsert, ticker, dateStr, openPrice, highPrice, lowPrice, closePrice, volume, tickCount, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}

	return tx.Commit()
}

// GetDailySummary retrieves the summary for a ticker and date.
func (db *DB) GetDailySummary(ticker string, date time.Time) (*models.DailySummary, error) {
	query := `
		SELECT ticker, date, open, high, low, close, volume, tick_count, created_at
		FROM daily_summaries
		WHERE ticker = ? AND date = ?
	`
	var (
		s         models.DailySummary
		dateStr   string
		createdAt int64
	)
	err := db.conn.QueryRow(query, ticker, date.UTC().Format(dateLayout)).Scan(
		&s.Ticker, &dateStr, &s.Open, &s.High, &s.Low, &s.Close, &s.Volume, &s.TickCount, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no daily summary for %s on %s: %w", ticker, date.Format(dateLayout), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily summary: %w", err)
	}

	s.Date, _ = time.ParseInLocation(dateLayout, dateStr, time.UTC)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &s, nil
}

// GetPreviousClose returns the most recent closing price for a ticker before
// the given date, preferring daily summaries and falling back to raw ticks.
func (db *DB) GetPreviousClose(ticker string, date time.Time) (decimal.Decimal, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var closePrice decimal.Decimal
	err := db.conn.QueryRow(`
		SELECT close FROM daily_summaries
		WHERE ticker = ? AND date < ?
		ORDER BY date DESC
		LIMIT 1
	`, ticker, dayStart.Format(dateLayout)).Scan(&closePrice)
	if err == nil {
		return closePrice, nil
	}
	if err != sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("failed to get previous close: %w", err)
	}

	err = db.conn.QueryRow(`
		SELECT close FROM metals_prices
		WHERE ticker = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, ticker, dayStart.Unix()).Scan(&closePrice)
	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("no previous close for %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get previous close: %w", err)
	}
	return closePrice, nil
}

// GetPriceStats returns aggregate statistics for a ticker over the trailing
// number of days.
func (db *DB) GetPriceStats(ticker string, days int) (*models.PriceStats, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	query := `
		SELECT COUNT(*),
		       COALESCE(AVG(CAST(price AS REAL)), 0),
		       COALESCE(MIN(CAST(price AS REAL)), 0),
		       COALESCE(MAX(CAST(price AS REAL)), 0),
		       COALESCE(SUM(volume), 0)
		FROM metals_prices
		WHERE ticker = ? AND timestamp >= ?
	`
	var (
		stats                models.PriceStats
		avg, lowest, highest float64
	)
	err := db.conn.QueryRow(query, ticker, since.Unix()).Scan(
		&stats.DataPoints, &avg, &lowest, &highest, &stats.TotalVolume,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get price stats: %w", err)
	}

	stats.Ticker = ticker
	stats.AvgPrice = decimal.NewFromFloat(avg)
	stats.MinPrice = decimal.NewFromFloat(lowest)
	stats.MaxPrice = decimal.NewFromFloat(highest)
	return &stats, nil
}

// HealthStats returns row counts per table and the latest tick timestamp.
func (db *DB) HealthStats() (map[string]int64, *time.Time, error) {
	counts := make(map[string]int64)
	for _, table := range []string{"metals_prices", "daily_summaries", "alerts", "users", "user_sessions"} {
		var n int64
		if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}

	var latest sql.NullInt64
	if err := db.conn.QueryRow("SELECT MAX(timestamp) FROM metals_prices").Scan(&latest); err != nil {
		return nil, nil, fmt.Errorf("failed to get latest timestamp: %w", err)
	}
	if !latest.Valid {
		return counts, nil, nil
	}
	ts := time.Unix(latest.Int64, 0).UTC()
	return counts, &ts, nil
}

func scanPriceTick(rows *sql.Rows) (*models.PriceTick, error) {
	var (
		t         models.PriceTick
		ts        int64
		createdAt int64
	)
	err := rows.Scan(&t.Ticker, &ts, &t.Price, &t.Volume, &t.Open, &t.High, &t.Low, &t.Close, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan price tick: %w", err)
	}
	t.Timestamp = time.Unix(ts, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &t, nil
}

func scanPriceTickRow(row *sql.Row) (*models.PriceTick, error) {
	var (
		t         models.PriceTick
		ts        int64
		createdAt int64
	)
	err := row.Scan(&t.Ticker, &ts, &t.Price, &t.Volume, &t.Open, &t.High, &t.Low, &t.Close, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Timestamp = time.Unix(ts, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &t, nil
}
