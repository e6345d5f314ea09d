// Package klinesync drives the K-line synchronization engine: backfill
// of deep history, incremental top-up of open tables, serial multi-
// timeframe reads, and a sweep over every watched (symbol, interval)
// pair on a cadence.
package klinesync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

// TimeframeMillis is the duration of one bar, in milliseconds, per interval.
var TimeframeMillis = map[store.Interval]int64{
	store.Interval1m:  60_000,
	store.Interval5m:  300_000,
	store.Interval15m: 900_000,
	store.Interval1h:  3_600_000,
	store.Interval4h:  14_400_000,
	store.Interval1d:  86_400_000,
}

// InitialLookback is how many bars to pull on a cold-start backfill, per
// interval — deep enough for the indicator package's widest window (EMA200)
// plus slack.
var InitialLookback = map[store.Interval]int{
	store.Interval1m:  1440,
	store.Interval5m:  2016,
	store.Interval15m: 2016,
	store.Interval1h:  2000,
	store.Interval4h:  2000,
	store.Interval1d:  1095,
}

const (
	binanceMaxLimit   = 1000
	batchPause        = 300 * time.Millisecond
	interPairPause    = 200 * time.Millisecond
	interSymbolPause  = 500 * time.Millisecond
)

// Fetcher is the subset of the exchange collector klinesync depends on.
// Satisfied by internal/collectors/exchange.Client.
type Fetcher interface {
	FetchKlines(ctx context.Context, symbol string, interval store.Interval, startMs, endMs int64, limit int) ([]store.Bar, error)
}

// Store is the subset of internal/store.Store klinesync depends on.
type Store interface {
	InsertBarsIgnoreConflict(bars []store.Bar) (int, error)
	LatestOpenTime(symbol string, interval store.Interval) (*int64, error)
	SelectBars(symbol string, interval store.Interval, limit int) ([]store.Bar, error)
}

// Engine coordinates backfill, incremental sync, and reads for a set of
// watched symbols across all supported intervals.
type Engine struct {
	fetcher Fetcher
	store   Store
	log     zerolog.Logger
}

// New constructs an Engine.
func New(fetcher Fetcher, st Store, log zerolog.Logger) *Engine {
	return &Engine{fetcher: fetcher, store: st, log: log.With().Str("component", "klinesync").Logger()}
}

// Backfill pulls InitialLookback[interval] bars of history for
// (symbol, interval) in up-to-1000-bar batches, pausing batchPause between
// batches, and upserts every returned bar. The last bar is not skipped, so
// the first batch, which ends at the current time, can include the
// still-open candle. Paging stops at an empty or short batch.
func (e *Engine) Backfill(ctx context.Context, symbol string, interval store.Interval) (int, error) {
	target := InitialLookback[interval]
	if target == 0 {
		return 0, fmt.Errorf("backfill: unsupported interval %q", interval)
	}
	tfMs := TimeframeMillis[interval]

	totalInserted := 0
	remaining := target
	var cursorEnd int64 // 0 means "most recent", exchange API treats omitted endTime as now

	for remaining > 0 {
		limit := remaining
		if limit > binanceMaxLimit {
			limit = binanceMaxLimit
		}

		var startMs int64
		if cursorEnd > 0 {
			startMs = cursorEnd - int64(limit)*tfMs
		}

		bars, err := e.fetcher.FetchKlines(ctx, symbol, interval, startMs, cursorEnd, limit)
		if err != nil {
			return totalInserted, fmt.Errorf("backfill %s/%s: %w", symbol, interval, err)
		}
		if len(bars) == 0 {
			break
		}

		inserted, err := e.store.InsertBarsIgnoreConflict(bars)
		if err != nil {
			return totalInserted, fmt.Errorf("backfill %s/%s: persist: %w", symbol, interval, err)
		}
		totalInserted += inserted

		cursorEnd = bars[0].OpenTimeMs - 1
		remaining -= len(bars)
		if len(bars) < limit {
			break // short batch: no older history to page back into
		}

		if remaining > 0 {
			select {
			case <-ctx.Done():
				return totalInserted, ctx.Err()
			case <-time.After(batchPause):
			}
		}
	}

	e.log.Info().Str("symbol", symbol).Str("interval", string(interval)).Int("inserted", totalInserted).Msg("backfill complete")
	return totalInserted, nil
}

// SyncIncremental tops up (symbol, interval) from the latest stored bar.
// If no bars are stored yet it delegates to Backfill. Otherwise it fetches
// from last_open_time+1 and drops the final returned bar, which may still
// be the open (unclosed) candle.
func (e *Engine) SyncIncremental(ctx context.Context, symbol string, interval store.Interval) (int, error) {
	latest, err := e.store.LatestOpenTime(symbol, interval)
	if err != nil {
		return 0, fmt.Errorf("sync incremental %s/%s: %w", symbol, interval, err)
	}
	if latest == nil {
		return e.Backfill(ctx, symbol, interval)
	}

	bars, err := e.fetcher.FetchKlines(ctx, symbol, interval, *latest+1, 0, binanceMaxLimit)
	if err != nil {
		return 0, fmt.Errorf("sync incremental %s/%s: %w", symbol, interval, err)
	}
	if len(bars) == 0 {
		return 0, nil
	}
	if len(bars) > 1 {
		bars = bars[:len(bars)-1] // skip_last: final bar may still be open
	} else {
		bars = nil // a single returned bar is the still-open candle; nothing closed yet
	}
	if len(bars) == 0 {
		return 0, nil
	}

	inserted, err := e.store.InsertBarsIgnoreConflict(bars)
	if err != nil {
		return 0, fmt.Errorf("sync incremental %s/%s: persist: %w", symbol, interval, err)
	}
	return inserted, nil
}

// GetKlines syncs (symbol, interval) incrementally, then returns up to
// limit bars in ascending chronological order.
func (e *Engine) GetKlines(ctx context.Context, symbol string, interval store.Interval, limit int) ([]store.Bar, error) {
	if _, err := e.SyncIncremental(ctx, symbol, interval); err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Str("interval", string(interval)).Msg("incremental sync failed, serving stale data")
	}
	return e.store.SelectBars(symbol, interval, limit)
}

// GetMultiTimeframe syncs and reads every requested interval for symbol,
// strictly one at a time. The embedded SQLite connection does not support
// concurrent writer sessions, so parallelizing across intervals here would
// risk SQLITE_BUSY; the sequential loop is the deliberate, correct form.
func (e *Engine) GetMultiTimeframe(ctx context.Context, symbol string, intervals []store.Interval, limit int) (map[store.Interval][]store.Bar, error) {
	out := make(map[store.Interval][]store.Bar, len(intervals))
	for _, iv := range intervals {
		bars, err := e.GetKlines(ctx, symbol, iv, limit)
		if err != nil {
			return nil, fmt.Errorf("multi timeframe %s/%s: %w", symbol, iv, err)
		}
		out[iv] = bars
	}
	return out, nil
}

// SyncAllWatched sweeps every (symbol, interval) pair, pausing
// interPairPause between pairs within a symbol and interSymbolPause
// between symbols (skipped after the final symbol).
func (e *Engine) SyncAllWatched(ctx context.Context, symbols []string, intervals []store.Interval) error {
	for si, symbol := range symbols {
		for pi, iv := range intervals {
			if _, err := e.SyncIncremental(ctx, symbol, iv); err != nil {
				e.log.Error().Err(err).Str("symbol", symbol).Str("interval", string(iv)).Msg("sync_all_watched: pair failed, continuing")
			}

			if pi < len(intervals)-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(interPairPause):
				}
			}
		}

		if si < len(symbols)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interSymbolPause):
			}
		}
	}
	return nil
}
