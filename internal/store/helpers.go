package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func parseDecimals(e *MarketCacheEntry, price, changePct, high, low, volume string) error {
	var err error
	if e.Price, err = decimal.NewFromString(price); err != nil {
		return fmt.Errorf("parse price: %w", err)
	}
	if e.ChangePct24h, err = decimal.NewFromString(changePct); err != nil {
		return fmt.Errorf("parse price_change_24h: %w", err)
	}
	if e.High24h, err = decimal.NewFromString(high); err != nil {
		return fmt.Errorf("parse high_24h: %w", err)
	}
	if e.Low24h, err = decimal.NewFromString(low); err != nil {
		return fmt.Errorf("parse low_24h: %w", err)
	}
	if e.Volume24h, err = decimal.NewFromString(volume); err != nil {
		return fmt.Errorf("parse volume_24h: %w", err)
	}
	return nil
}
