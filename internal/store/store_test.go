package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleBar(symbol string, interval Interval, openTime int64) Bar {
	return Bar{
		Symbol:      symbol,
		Interval:    interval,
		OpenTimeMs:  openTime,
		CloseTimeMs: openTime + IntervalMillis(interval) - 1,
		Open:        decimal.NewFromFloat(100.0),
		High:        decimal.NewFromFloat(101.0),
		Low:         decimal.NewFromFloat(99.0),
		Close:       decimal.NewFromFloat(100.5),
		Volume:      decimal.NewFromFloat(10.0),
	}
}

func TestStore_InsertBarsIgnoreConflict(t *testing.T) {
	s := newTestStore(t)

	bars := []Bar{
		sampleBar("BTCUSDT", Interval1h, 1000),
		sampleBar("BTCUSDT", Interval1h, 1000+int64(IntervalMillis(Interval1h))),
	}

	inserted, err := s.InsertBarsIgnoreConflict(bars)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	// Invariant 8: re-inserting the same bars is a no-op.
	inserted, err = s.InsertBarsIgnoreConflict(bars)
	require.NoError(t, err)
	require.Equal(t, 0, inserted)

	latest, err := s.LatestOpenTime("BTCUSDT", Interval1h)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, bars[1].OpenTimeMs, *latest)

	read, err := s.SelectBars("BTCUSDT", Interval1h, 10)
	require.NoError(t, err)
	require.Len(t, read, 2)
	require.True(t, read[0].OpenTimeMs < read[1].OpenTimeMs, "ascending order")
}

func TestStore_LatestOpenTime_Absent(t *testing.T) {
	s := newTestStore(t)
	latest, err := s.LatestOpenTime("BTCUSDT", Interval1h)
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestStore_MarketCacheUpsert(t *testing.T) {
	s := newTestStore(t)
	entry := MarketCacheEntry{
		Symbol:       "BTCUSDT",
		Price:        decimal.NewFromFloat(65000.12),
		ChangePct24h: decimal.NewFromFloat(1.5),
		High24h:      decimal.NewFromFloat(66000),
		Low24h:       decimal.NewFromFloat(64000),
		Volume24h:    decimal.NewFromFloat(1234.5),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.UpsertMarketCache(entry))

	entry.Price = decimal.NewFromFloat(65500)
	require.NoError(t, s.UpsertMarketCache(entry))

	got, err := s.GetMarketCache("BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Price.Equal(decimal.NewFromFloat(65500)))
}

func TestStore_CrawledDataDedup(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	insertedFirst, err := s.InsertCrawledIfAbsent("btc_etf_flow", day, decimal.NewFromFloat(100), "raw-1")
	require.NoError(t, err)
	require.True(t, insertedFirst)

	insertedSecond, err := s.InsertCrawledIfAbsent("btc_etf_flow", day, decimal.NewFromFloat(200), "raw-2")
	require.NoError(t, err)
	require.False(t, insertedSecond)

	latest, err := s.LatestCrawled("btc_etf_flow")
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.True(t, latest.Value.Equal(decimal.NewFromFloat(100)), "first write wins")
}

func TestStore_AgentSignalsEventSourced(t *testing.T) {
	s := newTestStore(t)
	conviction := 80.0
	sig := AgentSignal{Symbol: "BTCUSDT", Action: ActionBuy, Conviction: &conviction}

	id1, err := s.InsertAgentSignal(sig)
	require.NoError(t, err)
	id2, err := s.InsertAgentSignal(sig)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	list, err := s.ListAgentSignals("BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
