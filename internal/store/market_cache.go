package store

import "fmt"

// UpsertMarketCache overwrites the MarketCacheEntry for entry.Symbol.
func (s *Store) UpsertMarketCache(entry MarketCacheEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO market_cache (symbol, price, price_change_24h, high_24h, low_24h, volume_24h, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			price_change_24h = excluded.price_change_24h,
			high_24h = excluded.high_24h,
			low_24h = excluded.low_24h,
			volume_24h = excluded.volume_24h,
			updated_at = excluded.updated_at
	`, entry.Symbol, entry.Price.String(), entry.ChangePct24h.String(),
		entry.High24h.String(), entry.Low24h.String(), entry.Volume24h.String(), entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert market cache for %s: %w", entry.Symbol, err)
	}
	return nil
}

// GetMarketCache reads the cached ticker for symbol, or nil if absent.
func (s *Store) GetMarketCache(symbol string) (*MarketCacheEntry, error) {
	var e MarketCacheEntry
	var price, changePct, high, low, volume string
	err := s.db.QueryRow(`
		SELECT symbol, price, price_change_24h, high_24h, low_24h, volume_24h, updated_at
		FROM market_cache WHERE symbol = ?
	`, symbol).Scan(&e.Symbol, &price, &changePct, &high, &low, &volume, &e.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get market cache for %s: %w", symbol, err)
	}
	if err := parseDecimals(&e, price, changePct, high, low, volume); err != nil {
		return nil, err
	}
	return &e, nil
}
