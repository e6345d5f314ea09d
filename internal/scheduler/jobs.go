package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

// klineSyncIntervals mirrors spec's "watch × {15m,1h,4h,1d}" incremental
// sweep. 1m and 5m are not in the scheduled sweep; they are brought current
// only on demand, since klinesync's GetKlines (and GetMultiTimeframe through
// it) runs an incremental sync before every read.
var klineSyncIntervals = []store.Interval{
	store.Interval15m,
	store.Interval1h,
	store.Interval4h,
	store.Interval1d,
}

// TickerFetcher is the subset of the exchange client market_cache_refresh
// depends on.
type TickerFetcher interface {
	FetchTicker24h(ctx context.Context, symbol string) (*store.MarketCacheEntry, error)
}

// MarketCacheUpserter is the subset of the store market_cache_refresh
// depends on.
type MarketCacheUpserter interface {
	UpsertMarketCache(entry store.MarketCacheEntry) error
}

// MarketCacheRefreshJob fetches a fresh 24h ticker for every watched
// symbol and upserts it into the market cache table, once a minute.
type MarketCacheRefreshJob struct {
	Symbols []string
	Ticker  TickerFetcher
	Store   MarketCacheUpserter
	Log     zerolog.Logger
	Timeout time.Duration
}

func (j *MarketCacheRefreshJob) Name() string { return "market_cache_refresh" }

func (j *MarketCacheRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout())
	defer cancel()

	var firstErr error
	for _, symbol := range j.Symbols {
		entry, err := j.Ticker.FetchTicker24h(ctx, symbol)
		if err != nil {
			j.Log.Warn().Err(err).Str("symbol", symbol).Msg("market_cache_refresh: ticker fetch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := j.Store.UpsertMarketCache(*entry); err != nil {
			j.Log.Warn().Err(err).Str("symbol", symbol).Msg("market_cache_refresh: upsert failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (j *MarketCacheRefreshJob) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return 45 * time.Second
}

// KlineSyncer is the subset of klinesync.Engine klines_incremental_sync
// depends on.
type KlineSyncer interface {
	SyncAllWatched(ctx context.Context, symbols []string, intervals []store.Interval) error
}

// KlinesIncrementalSyncJob runs the multi-timeframe incremental sync for
// every watched symbol every 15 minutes, keeping the local K-line history
// current without a full backfill.
type KlinesIncrementalSyncJob struct {
	Symbols []string
	Engine  KlineSyncer
	Log     zerolog.Logger
	Timeout time.Duration
}

func (j *KlinesIncrementalSyncJob) Name() string { return "klines_incremental_sync" }

func (j *KlinesIncrementalSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout())
	defer cancel()
	return j.Engine.SyncAllWatched(ctx, j.Symbols, klineSyncIntervals)
}

func (j *KlinesIncrementalSyncJob) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return 10 * time.Minute
}

// CrawlerChecker is the subset of crawler.Supervisor crawler_check
// depends on.
type CrawlerChecker interface {
	CheckAndRun(ctx context.Context) error
}

// CrawlerCheckJob sweeps every registered spider source every 5 minutes,
// spawning a supervised crawl for any source whose interval has elapsed.
type CrawlerCheckJob struct {
	Supervisor CrawlerChecker
	Log        zerolog.Logger
	Timeout    time.Duration
}

func (j *CrawlerCheckJob) Name() string { return "crawler_check" }

func (j *CrawlerCheckJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout())
	defer cancel()
	return j.Supervisor.CheckAndRun(ctx)
}

func (j *CrawlerCheckJob) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return 6 * time.Minute
}

// PortfolioSnapshotter is implemented by whatever external collaborator
// owns portfolio valuation; this service only provides the hourly tick
// that invokes it. A nil Collaborator makes the job a documented no-op —
// portfolio accounting is a Non-goal of this service, but the scheduled
// slot spec.md names is still wired so a collaborator can be plugged in
// without touching the scheduler.
type PortfolioSnapshotter interface {
	SnapshotPortfolio(ctx context.Context) error
}

// PortfolioSnapshotJob invokes the portfolio collaborator's snapshot hook
// once an hour.
type PortfolioSnapshotJob struct {
	Collaborator PortfolioSnapshotter
	Log          zerolog.Logger
	Timeout      time.Duration
}

func (j *PortfolioSnapshotJob) Name() string { return "portfolio_snapshot" }

func (j *PortfolioSnapshotJob) Run() error {
	if j.Collaborator == nil {
		j.Log.Debug().Msg("portfolio_snapshot: no collaborator wired, skipping")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout())
	defer cancel()
	if err := j.Collaborator.SnapshotPortfolio(ctx); err != nil {
		return fmt.Errorf("portfolio_snapshot: %w", err)
	}
	return nil
}

func (j *PortfolioSnapshotJob) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return time.Minute
}

// RiskEventFlusher is implemented by whatever external collaborator owns
// the in-memory risk-event buffer; this service only provides the
// 5-minute tick that drains it.
type RiskEventFlusher interface {
	FlushRiskEvents(ctx context.Context) error
}

// FlushRiskEventsJob invokes the risk-management collaborator's drain
// hook every 5 minutes. A nil Collaborator makes this a documented
// no-op, same rationale as PortfolioSnapshotJob.
type FlushRiskEventsJob struct {
	Collaborator RiskEventFlusher
	Log          zerolog.Logger
	Timeout      time.Duration
}

func (j *FlushRiskEventsJob) Name() string { return "flush_risk_events" }

func (j *FlushRiskEventsJob) Run() error {
	if j.Collaborator == nil {
		j.Log.Debug().Msg("flush_risk_events: no collaborator wired, skipping")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout())
	defer cancel()
	if err := j.Collaborator.FlushRiskEvents(ctx); err != nil {
		return fmt.Errorf("flush_risk_events: %w", err)
	}
	return nil
}

func (j *FlushRiskEventsJob) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return 30 * time.Second
}
