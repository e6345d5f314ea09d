package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// InsertBarsIgnoreConflict bulk-upserts bars on the unique
// (symbol, interval, open_time) index. Already-present bars are silently
// skipped: bars are immutable once closed, so a conflict is never an
// error.
func (s *Store) InsertBarsIgnoreConflict(bars []Bar) (inserted int, err error) {
	if len(bars) == 0 {
		return 0, nil
	}

	err = s.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO kline_cache (symbol, interval, open_time, close_time, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(symbol, interval, open_time) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			res, err := stmt.Exec(b.Symbol, string(b.Interval), b.OpenTimeMs, b.CloseTimeMs,
				b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.Volume.String())
			if err != nil {
				return fmt.Errorf("insert bar %s %s %d: %w", b.Symbol, b.Interval, b.OpenTimeMs, err)
			}
			n, _ := res.RowsAffected()
			inserted += int(n)
		}
		return nil
	})
	return inserted, err
}

// LatestOpenTime returns the maximum open_time for (symbol, interval), or
// nil if no bar is stored.
func (s *Store) LatestOpenTime(symbol string, interval Interval) (*int64, error) {
	var openTime sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(open_time) FROM kline_cache WHERE symbol = ? AND interval = ?`,
		symbol, string(interval),
	).Scan(&openTime)
	if err != nil {
		return nil, fmt.Errorf("latest open time for %s %s: %w", symbol, interval, err)
	}
	if !openTime.Valid {
		return nil, nil
	}
	v := openTime.Int64
	return &v, nil
}

// SelectBars returns the most recent limit bars for (symbol, interval) in
// ascending open_time order.
func (s *Store) SelectBars(symbol string, interval Interval, limit int) ([]Bar, error) {
	rows, err := s.db.Query(`
		SELECT symbol, interval, open_time, close_time, open, high, low, close, volume
		FROM (
			SELECT * FROM kline_cache
			WHERE symbol = ? AND interval = ?
			ORDER BY open_time DESC
			LIMIT ?
		)
		ORDER BY open_time ASC
	`, symbol, string(interval), limit)
	if err != nil {
		return nil, fmt.Errorf("select bars for %s %s: %w", symbol, interval, err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		var b Bar
		var interval string
		var openStr, highStr, lowStr, closeStr, volumeStr string
		if err := rows.Scan(&b.Symbol, &interval, &b.OpenTimeMs, &b.CloseTimeMs, &openStr, &highStr, &lowStr, &closeStr, &volumeStr); err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.Interval = Interval(interval)
		b.Open, err = decimal.NewFromString(openStr)
		if err != nil {
			return nil, fmt.Errorf("parse open: %w", err)
		}
		b.High, err = decimal.NewFromString(highStr)
		if err != nil {
			return nil, fmt.Errorf("parse high: %w", err)
		}
		b.Low, err = decimal.NewFromString(lowStr)
		if err != nil {
			return nil, fmt.Errorf("parse low: %w", err)
		}
		b.Close, err = decimal.NewFromString(closeStr)
		if err != nil {
			return nil, fmt.Errorf("parse close: %w", err)
		}
		b.Volume, err = decimal.NewFromString(volumeStr)
		if err != nil {
			return nil, fmt.Errorf("parse volume: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
