package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/collectors"
	"github.com/aristath/sentinel/internal/store"
)

type fakeKlineEngine struct {
	calls int
	bars  map[store.Interval][]store.Bar
	err   error
}

func (f *fakeKlineEngine) GetMultiTimeframe(ctx context.Context, symbol string, intervals []store.Interval, limit int) (map[store.Interval][]store.Bar, error) {
	f.calls++
	return f.bars, f.err
}

type fakeTicker struct {
	calls int
	entry *store.MarketCacheEntry
	err   error
}

func (f *fakeTicker) FetchTicker24h(ctx context.Context, symbol string) (*store.MarketCacheEntry, error) {
	f.calls++
	return f.entry, f.err
}

type fakeCollector struct {
	points []collectors.DataPoint
	err    error
}

func (f *fakeCollector) Collect(ctx context.Context) ([]collectors.DataPoint, error) {
	return f.points, f.err
}

func bar(openMs int64) store.Bar {
	d := decimal.NewFromInt(100)
	return store.Bar{Symbol: "BTCUSDT", Interval: store.Interval1h, OpenTimeMs: openMs, CloseTimeMs: openMs + 1, Open: d, High: d, Low: d, Close: d, Volume: d}
}

func TestCache_BuildsFullSnapshotOnMiss(t *testing.T) {
	kline := &fakeKlineEngine{bars: map[store.Interval][]store.Bar{store.Interval1h: {bar(1000), bar(2000)}}}
	ticker := &fakeTicker{entry: &store.MarketCacheEntry{Symbol: "BTCUSDT", Price: decimal.NewFromInt(50000)}}
	fg := &fakeCollector{points: []collectors.DataPoint{{DataType: "fear_greed_index", Value: decimal.NewFromInt(70)}}}
	macro := &fakeCollector{points: []collectors.DataPoint{{DataType: "fed_funds_rate", Value: decimal.NewFromFloat(5.33)}}}
	onchain := &fakeCollector{points: []collectors.DataPoint{{DataType: "network_hashrate", Value: decimal.NewFromInt(1)}}}

	cache := New(kline, ticker, fg, macro, onchain, []store.Interval{store.Interval1h}, 100, time.Minute, zerolog.Nop())

	snap, err := cache.Get(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, "BTCUSDT", snap.Symbol)
	require.Equal(t, 50000.0, snap.CurrentPrice)
	require.NotNil(t, snap.FearGreed)
	require.Equal(t, 70, *snap.FearGreed)
	require.InDelta(t, 5.33, snap.MacroData["fed_funds_rate"], 1e-9)
	require.Len(t, snap.Klines[store.Interval1h], 2)
	require.Equal(t, 1.0, snap.DataQuality.Completeness)
	require.Empty(t, snap.DataQuality.Warnings)
}

func TestCache_ServesFromCacheWithinTTL(t *testing.T) {
	kline := &fakeKlineEngine{bars: map[store.Interval][]store.Bar{}}
	ticker := &fakeTicker{entry: &store.MarketCacheEntry{Symbol: "BTCUSDT", Price: decimal.NewFromInt(1)}}
	cache := New(kline, ticker, nil, nil, nil, nil, 10, time.Hour, zerolog.Nop())

	_, err := cache.Get(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	require.Equal(t, 1, kline.calls)
	require.Equal(t, 1, ticker.calls)
}

func TestCache_PartialFailureDegradesCompleteness(t *testing.T) {
	kline := &fakeKlineEngine{err: errors.New("boom")}
	ticker := &fakeTicker{entry: &store.MarketCacheEntry{Symbol: "BTCUSDT", Price: decimal.NewFromInt(1)}}
	cache := New(kline, ticker, nil, nil, nil, []store.Interval{store.Interval1h}, 10, time.Minute, zerolog.Nop())

	snap, err := cache.Get(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Less(t, snap.DataQuality.Completeness, 1.0)
	require.NotEmpty(t, snap.DataQuality.Warnings)
	require.False(t, snap.DataQuality.IsReliable())
}

func TestCache_Invalidate_ForcesRebuild(t *testing.T) {
	kline := &fakeKlineEngine{bars: map[store.Interval][]store.Bar{}}
	ticker := &fakeTicker{entry: &store.MarketCacheEntry{Symbol: "BTCUSDT", Price: decimal.NewFromInt(1)}}
	cache := New(kline, ticker, nil, nil, nil, nil, 10, time.Hour, zerolog.Nop())

	_, err := cache.Get(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	cache.Invalidate("BTCUSDT")
	_, err = cache.Get(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	require.Equal(t, 2, ticker.calls)
}
