// Package marketdata assembles the unified snapshot every strategy and
// API consumer reads from: current price, per-timeframe K-lines and
// derived indicators, and the external context (fear/greed, macro,
// on-chain) needed to judge how much to trust it.
package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/collectors"
	"github.com/aristath/sentinel/internal/indicators"
	"github.com/aristath/sentinel/internal/store"
)

// perFetchDeadline bounds any single external source so one slow source
// never stalls the whole snapshot.
const perFetchDeadline = 20 * time.Second

// DataQuality reports how much of a snapshot actually populated, so
// downstream strategy scoring can discount a signal built on partial data.
type DataQuality struct {
	Completeness float64 // 0-1
	Warnings     []string
}

// IsReliable reports whether Completeness is at least 0.8.
func (q DataQuality) IsReliable() bool {
	return q.Completeness >= 0.8
}

// Snapshot is the fully assembled market view for one symbol.
type Snapshot struct {
	Symbol        string
	CurrentPrice  float64
	Timestamp     time.Time
	Ticker24h     *store.MarketCacheEntry
	Klines        map[store.Interval][]store.Bar
	Indicators    map[store.Interval]indicators.Frame
	FearGreed     *int
	MacroData     map[string]float64
	OnchainData   map[string]float64
	DataQuality   DataQuality
}

// KlineEngine is the subset of klinesync.Engine the snapshot builder
// depends on.
type KlineEngine interface {
	GetMultiTimeframe(ctx context.Context, symbol string, intervals []store.Interval, limit int) (map[store.Interval][]store.Bar, error)
}

// TickerFetcher is the subset of the exchange client the snapshot builder
// depends on.
type TickerFetcher interface {
	FetchTicker24h(ctx context.Context, symbol string) (*store.MarketCacheEntry, error)
}

// Cache serves TTL-bounded snapshots, recomputing on miss or expiry and
// fanning the external collectors out concurrently within a per-fetch
// deadline.
type Cache struct {
	klineEngine   KlineEngine
	ticker        TickerFetcher
	fearGreed     collectors.Collector
	macro         collectors.Collector
	onchain       collectors.Collector
	intervals     []store.Interval
	barsPerTF     int
	ttl           time.Duration
	log           zerolog.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// New constructs a Cache. intervals is the set of timeframes every
// snapshot carries; ttl bounds how long a snapshot is served before being
// recomputed.
func New(klineEngine KlineEngine, ticker TickerFetcher, fearGreed, macro, onchain collectors.Collector, intervals []store.Interval, barsPerTF int, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		klineEngine: klineEngine,
		ticker:      ticker,
		fearGreed:   fearGreed,
		macro:       macro,
		onchain:     onchain,
		intervals:   intervals,
		barsPerTF:   barsPerTF,
		ttl:         ttl,
		log:         log.With().Str("component", "marketdata_cache").Logger(),
		entries:     make(map[string]cacheEntry),
	}
}

// Get returns the cached snapshot for symbol if still fresh, otherwise
// rebuilds it. BTC/ETH are not special-cased in cache lookup, and no
// "fetch majors first" ordering is applied.
func (c *Cache) Get(ctx context.Context, symbol string) (Snapshot, error) {
	c.mu.Lock()
	entry, ok := c.entries[symbol]
	c.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.snapshot, nil
	}

	snap, err := c.build(ctx, symbol)
	if err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	c.entries[symbol] = cacheEntry{snapshot: snap, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return snap, nil
}

// Invalidate drops any cached snapshot for symbol, forcing the next Get to
// rebuild.
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.entries, symbol)
	c.mu.Unlock()
}

func (c *Cache) build(ctx context.Context, symbol string) (Snapshot, error) {
	snap := Snapshot{
		Symbol:     symbol,
		Timestamp:  time.Now().UTC(),
		Klines:     make(map[store.Interval][]store.Bar),
		Indicators: make(map[store.Interval]indicators.Frame),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var warnings []string
	totalSources := 5 // ticker, klines, fear/greed, macro, onchain
	okSources := 0

	wg.Add(1)
	go func() {
		defer wg.Done()
		tctx, cancel := context.WithTimeout(ctx, perFetchDeadline)
		defer cancel()
		ticker, err := c.ticker.FetchTicker24h(tctx, symbol)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			warnings = append(warnings, "ticker_24h unavailable: "+err.Error())
			return
		}
		snap.Ticker24h = ticker
		price, _ := ticker.Price.Float64()
		snap.CurrentPrice = price
		okSources++
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		kctx, cancel := context.WithTimeout(ctx, perFetchDeadline)
		defer cancel()
		klines, err := c.klineEngine.GetMultiTimeframe(kctx, symbol, c.intervals, c.barsPerTF)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			warnings = append(warnings, "klines unavailable: "+err.Error())
			return
		}
		for iv, bars := range klines {
			snap.Klines[iv] = bars
			snap.Indicators[iv] = FramesFromBars(bars)
		}
		okSources++
	}()

	if c.fearGreed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collectInto(ctx, c.fearGreed, &mu, &warnings, &okSources, "fear_greed", func(points []collectors.DataPoint) {
				for _, p := range points {
					if p.DataType == "fear_greed_index" {
						v, _ := p.Value.Float64()
						iv := int(v)
						snap.FearGreed = &iv
					}
				}
			})
		}()
	} else {
		totalSources--
	}

	if c.macro != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap.MacroData = make(map[string]float64)
			collectInto(ctx, c.macro, &mu, &warnings, &okSources, "macro", func(points []collectors.DataPoint) {
				for _, p := range points {
					v, _ := p.Value.Float64()
					snap.MacroData[p.DataType] = v
				}
			})
		}()
	} else {
		totalSources--
	}

	if c.onchain != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap.OnchainData = make(map[string]float64)
			collectInto(ctx, c.onchain, &mu, &warnings, &okSources, "onchain", func(points []collectors.DataPoint) {
				for _, p := range points {
					v, _ := p.Value.Float64()
					snap.OnchainData[p.DataType] = v
				}
			})
		}()
	} else {
		totalSources--
	}

	wg.Wait()

	if totalSources == 0 {
		totalSources = 1
	}
	snap.DataQuality = DataQuality{
		Completeness: float64(okSources) / float64(totalSources),
		Warnings:     warnings,
	}
	return snap, nil
}

func collectInto(ctx context.Context, c collectors.Collector, mu *sync.Mutex, warnings *[]string, okSources *int, label string, apply func([]collectors.DataPoint)) {
	cctx, cancel := context.WithTimeout(ctx, perFetchDeadline)
	defer cancel()
	points, err := c.Collect(cctx)
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		*warnings = append(*warnings, label+" unavailable: "+err.Error())
		return
	}
	apply(points)
	*okSources++
}

// FramesFromBars converts a chronological bar slice into an indicator
// Frame, exported so the strategy/API layers can derive a Frame from
// bars fetched outside this cache.
func FramesFromBars(bars []store.Bar) indicators.Frame {
	candles := make([]indicators.CandleOHLC, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		open, _ := b.Open.Float64()
		high, _ := b.High.Float64()
		low, _ := b.Low.Float64()
		closeP, _ := b.Close.Float64()
		vol, _ := b.Volume.Float64()
		candles[i] = indicators.CandleOHLC{Open: open, High: high, Low: low, Close: closeP}
		volumes[i] = vol
	}
	return indicators.CalculateAll(candles, volumes, indicators.DefaultEMAPeriods)
}
