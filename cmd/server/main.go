// Package main is the entry point for the market data aggregation and
// analysis service. It wires the rate-limited collection pipeline (exchange
// K-lines, macro, sentiment, on-chain, crawler), the multi-timeframe TA
// strategy, and the HTTP API onto a single process, and runs the scheduler
// that keeps the store warm between requests.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/api"
	"github.com/aristath/sentinel/internal/collectors"
	"github.com/aristath/sentinel/internal/collectors/crawler"
	"github.com/aristath/sentinel/internal/collectors/exchange"
	"github.com/aristath/sentinel/internal/collectors/macro"
	"github.com/aristath/sentinel/internal/collectors/onchain"
	"github.com/aristath/sentinel/internal/collectors/sentiment"
	"github.com/aristath/sentinel/internal/config"
	"github.com/aristath/sentinel/internal/klinesync"
	"github.com/aristath/sentinel/internal/marketdata"
	"github.com/aristath/sentinel/internal/ratelimit"
	"github.com/aristath/sentinel/internal/scheduler"
	"github.com/aristath/sentinel/internal/store"
	"github.com/aristath/sentinel/pkg/logger"
)

// syncIntervals is the set of timeframes the K-line sync engine keeps
// current for every watched symbol and the set a snapshot's indicators
// are computed over.
var syncIntervals = []store.Interval{
	store.Interval15m,
	store.Interval1h,
	store.Interval4h,
	store.Interval1d,
}

const barsPerTimeframe = 500

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	log.Info().Msg("starting market data service")

	st, err := store.Open(filepath.Join(cfg.DataDir, "market.db"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	// One shared HTTP client pool, one rate limiter, one semaphore: per
	// spec, never closed per call, closed only on process shutdown.
	httpClient := &http.Client{Timeout: 30 * time.Second}
	limiter := ratelimit.New(cfg.RateLimitMaxRPS, cfg.RateLimitBurst)
	klineSem := ratelimit.NewSemaphore(3)

	exchangeClient := exchange.New(cfg.ExchangeBaseURL, cfg.KlinesBaseURL(), httpClient, limiter, klineSem, log)
	klineEngine := klinesync.New(exchangeClient, st, log)

	// macroCollector stays a nil collectors.Collector (not a typed nil
	// pointer boxed in the interface) when no API key is configured, so
	// marketdata.Cache's nil check actually skips it.
	var macroCollector collectors.Collector
	if cfg.MacroAPIKey != "" {
		macroCollector = macro.New(cfg.MacroAPIKey, httpClient, log)
	} else {
		log.Warn().Msg("MACRO_API_KEY not set, macro collector disabled")
	}
	sentimentCollector := sentiment.New(httpClient, log)
	onchainCollector := onchain.New(httpClient, log)

	cache := marketdata.New(klineEngine, exchangeClient, sentimentCollector, macroCollector, onchainCollector, syncIntervals, barsPerTimeframe, 60*time.Second, log)

	browserPool := crawler.NewBrowserPool("Mozilla/5.0 (compatible; sentinel-crawler/1.0)")
	supervisor := crawler.NewSupervisor(browserPool, st, log)
	// Crawl sources (ETF holdings, miner/stablecoin metrics) are registered
	// from operator-supplied config, not hardcoded here; none ship by
	// default until that config surface exists.

	loc, err := time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.SchedulerTimezone).Msg("invalid scheduler timezone")
	}
	sched := scheduler.New(loc, log)

	if err := sched.AddJob("*/1 * * * *", &scheduler.MarketCacheRefreshJob{
		Symbols: cfg.WatchedSymbols,
		Ticker:  exchangeClient,
		Store:   st,
		Log:     log,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register market_cache_refresh")
	}
	if err := sched.AddJob("*/15 * * * *", &scheduler.KlinesIncrementalSyncJob{
		Symbols: cfg.WatchedSymbols,
		Engine:  klineEngine,
		Log:     log,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register klines_incremental_sync")
	}
	if err := sched.AddJob("*/5 * * * *", &scheduler.CrawlerCheckJob{
		Supervisor: supervisor,
		Log:        log,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register crawler_check")
	}
	// portfolio_snapshot and flush_risk_events are registered with nil
	// collaborators: those subsystems are owned by a collaborator service
	// this module does not implement, so both jobs run as documented no-ops
	// until that collaborator is wired in.
	if err := sched.AddJob("0 * * * *", &scheduler.PortfolioSnapshotJob{Log: log}); err != nil {
		log.Fatal().Err(err).Msg("failed to register portfolio_snapshot")
	}
	if err := sched.AddJob("*/5 * * * *", &scheduler.FlushRiskEventsJob{Log: log}); err != nil {
		log.Fatal().Err(err).Msg("failed to register flush_risk_events")
	}

	sched.Start()
	log.Info().Msg("scheduler started")

	handlers := &api.Handlers{
		Snapshot:  cache,
		Klines:    klineEngine,
		Bars:      st,
		Signals:   st,
		WatchList: cfg.WatchedSymbols,
		Log:       log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if !cfg.DevMode {
		r.Use(middleware.Compress(5))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	handlers.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	// Shutdown order per the concurrency model: stop the scheduler (no new
	// jobs fire), then the browser pool, then the shared HTTP pool — each
	// later resource may still be in use by an in-flight job from an
	// earlier stage.
	sched.Stop()
	log.Info().Msg("scheduler stopped")

	browserPool.Close()
	log.Info().Msg("browser pool closed")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}

	httpClient.CloseIdleConnections()
	log.Info().Msg("server stopped")
}

// requestLogger logs each request at info level, grounded on the
// access-logging middleware pattern used elsewhere in this codebase.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
