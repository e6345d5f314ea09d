package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InsertCrawledIfAbsent inserts a CrawledDatum for (dataType, day), where
// day is truncated to a calendar day. A second call for the same
// (dataType, day) is dropped silently: this is the authoritative
// idempotence guard for spider output (S6). Returns true if the row was
// inserted, false if an existing row was kept.
func (s *Store) InsertCrawledIfAbsent(dataType string, day time.Time, value decimal.Decimal, raw string) (bool, error) {
	calendarDay := day.UTC().Truncate(24 * time.Hour)
	res, err := s.db.Exec(`
		INSERT INTO crawled_data (data_type, date, value, raw)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(data_type, date) DO NOTHING
	`, dataType, calendarDay, value.String(), raw)
	if err != nil {
		return false, fmt.Errorf("insert crawled datum %s/%s: %w", dataType, calendarDay, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for crawled datum: %w", err)
	}
	return n > 0, nil
}

// LatestCrawled returns the most recent CrawledDatum for dataType, or nil
// if none exists.
func (s *Store) LatestCrawled(dataType string) (*CrawledDatum, error) {
	var d CrawledDatum
	var value string
	err := s.db.QueryRow(`
		SELECT id, data_type, date, value, raw, created_at
		FROM crawled_data
		WHERE data_type = ?
		ORDER BY date DESC
		LIMIT 1
	`, dataType).Scan(&d.ID, &d.DataType, &d.Date, &value, &d.Raw, &d.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest crawled datum for %s: %w", dataType, err)
	}
	d.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	return &d, nil
}
