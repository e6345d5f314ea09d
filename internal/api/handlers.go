// Package api implements the HTTP surface spec.md's Core API Contracts
// (C9) describe: Snapshot, KlinesRead, TaAnalyze, SignalWrite, SignalList.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/indicators"
	"github.com/aristath/sentinel/internal/marketdata"
	"github.com/aristath/sentinel/internal/store"
	"github.com/aristath/sentinel/internal/strategy"
)

// allowedIntervals is the validated timeframe-token vocabulary for
// TaAnalyze and KlinesRead.
var allowedIntervals = map[string]store.Interval{
	"1m":  store.Interval1m,
	"5m":  store.Interval5m,
	"15m": store.Interval15m,
	"1h":  store.Interval1h,
	"4h":  store.Interval4h,
	"1d":  store.Interval1d,
}

const minBarsForAnalysis = 30

// SnapshotProvider is the subset of marketdata.Cache Handlers depends on.
type SnapshotProvider interface {
	Get(ctx context.Context, symbol string) (marketdata.Snapshot, error)
}

// KlineEngine is the subset of klinesync.Engine Handlers depends on.
type KlineEngine interface {
	GetKlines(ctx context.Context, symbol string, interval store.Interval, limit int) ([]store.Bar, error)
	GetMultiTimeframe(ctx context.Context, symbol string, intervals []store.Interval, limit int) (map[store.Interval][]store.Bar, error)
}

// BarReader is the subset of store.Store Handlers depends on for
// skip_sync reads.
type BarReader interface {
	SelectBars(symbol string, interval store.Interval, limit int) ([]store.Bar, error)
}

// SignalStore is the subset of store.Store Handlers depends on for the
// agent-signal DAOs.
type SignalStore interface {
	InsertAgentSignal(sig store.AgentSignal) (int64, error)
	ListAgentSignals(symbol string, limit int) ([]store.AgentSignal, error)
}

// Handlers wires the Core API Contracts to their concrete dependencies.
type Handlers struct {
	Snapshot   SnapshotProvider
	Klines     KlineEngine
	Bars       BarReader
	Signals    SignalStore
	WatchList  []string
	Log        zerolog.Logger
}

// RegisterRoutes mounts every Core API Contract under r.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/data", func(r chi.Router) {
		r.Get("/snapshot", h.handleSnapshot)
		r.Get("/klines/{symbol}", h.handleKlinesRead)
		r.Post("/signals", h.handleSignalWrite)
		r.Get("/signals", h.handleSignalList)
	})
	r.Route("/api/v1/ta", func(r chi.Router) {
		r.Post("/analyze", h.handleTaAnalyze)
	})
}

func (h *Handlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := snapshotResponse{
		GeneratedAt:   time.Now().UTC(),
		DataFreshness: make(map[string]string),
	}

	var haveMacro bool
	for _, symbol := range h.WatchList {
		snap, err := h.Snapshot.Get(ctx, symbol)
		if err != nil {
			h.Log.Warn().Err(err).Str("symbol", symbol).Msg("snapshot: fetch failed")
			continue
		}
		resp.Markets = append(resp.Markets, marketFromSnapshot(snap))
		resp.DataFreshness[symbol] = snap.Timestamp.Format(time.RFC3339)
		if !haveMacro {
			resp.Macro = macroFromSnapshot(snap)
			haveMacro = true
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleKlinesRead(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol must not be empty")
		return
	}

	tfToken := r.URL.Query().Get("timeframe")
	if tfToken == "" {
		tfToken = "1h"
	}
	interval, ok := allowedIntervals[tfToken]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown timeframe: "+tfToken)
		return
	}

	limit := 500
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	skipSync := r.URL.Query().Get("skip_sync") == "true"

	var bars []store.Bar
	var err error
	if skipSync {
		bars, err = h.Bars.SelectBars(symbol, interval, limit)
	} else {
		bars, err = h.Klines.GetKlines(r.Context(), symbol, interval, limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dtos := make([]barDTO, len(bars))
	for i, b := range bars {
		dtos[i] = barFromStore(b)
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "timeframe": tfToken, "bars": dtos})
}

func (h *Handlers) handleSignalWrite(w http.ResponseWriter, r *http.Request) {
	var req signalWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol must not be empty")
		return
	}
	action := store.SignalAction(req.Action)
	if action != store.ActionBuy && action != store.ActionSell && action != store.ActionHold {
		writeError(w, http.StatusBadRequest, "action must be one of BUY, SELL, HOLD")
		return
	}

	sig := store.AgentSignal{
		AgentID:      req.AgentID,
		StrategyName: req.StrategyName,
		Symbol:       req.Symbol,
		Action:       action,
		Conviction:   req.Conviction,
		Reason:       req.Reason,
		RawAnalysis:  req.RawAnalysis,
	}
	if req.PriceAtSignal != nil {
		d := decimalFromFloat(*req.PriceAtSignal)
		sig.PriceAtSignal = &d
	}
	if req.StopLoss != nil {
		d := decimalFromFloat(*req.StopLoss)
		sig.StopLoss = &d
	}
	if req.TakeProfit != nil {
		d := decimalFromFloat(*req.TakeProfit)
		sig.TakeProfit = &d
	}

	id, err := h.Signals.InsertAgentSignal(sig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handlers) handleSignalList(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	signals, err := h.Signals.ListAgentSignals(symbol, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dtos := make([]signalDTO, len(signals))
	for i, s := range signals {
		dtos[i] = signalFromStore(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": dtos})
}

func (h *Handlers) handleTaAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol must not be empty")
		return
	}

	tokens := req.Timeframes
	if len(tokens) == 0 {
		tokens = []string{"4h", "1h", "15m"}
	}
	intervals := make([]store.Interval, 0, len(tokens))
	for _, tok := range tokens {
		iv, ok := allowedIntervals[tok]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown timeframe: "+tok)
			return
		}
		intervals = append(intervals, iv)
	}

	limit := req.KlinesLimit
	if limit <= 0 {
		limit = 200
	}

	barsByTF, err := h.Klines.GetMultiTimeframe(r.Context(), req.Symbol, intervals, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	frames := make(map[store.Interval]indicators.Frame, len(barsByTF))
	var currentPrice float64
	for iv, bars := range barsByTF {
		if len(bars) < minBarsForAnalysis {
			writeJSON(w, http.StatusOK, analyzeResponse{
				Symbol: req.Symbol,
				Action: string(store.ActionHold),
				Grade:  "none",
			})
			return
		}
		frames[iv] = marketdata.FramesFromBars(bars)
		currentPrice = frames[iv].CurrentPrice
	}

	var stratOpts []strategy.Option
	if req.BuyThreshold > 0 {
		stratOpts = append(stratOpts, strategy.WithBuyThreshold(req.BuyThreshold))
	}
	if req.SellThreshold > 0 {
		stratOpts = append(stratOpts, strategy.WithSellThreshold(req.SellThreshold))
	}
	if req.AtrStopMult > 0 {
		stratOpts = append(stratOpts, strategy.WithAtrStopMult(req.AtrStopMult))
	}
	if req.AtrTargetMult > 0 {
		stratOpts = append(stratOpts, strategy.WithAtrTargetMult(req.AtrTargetMult))
	}

	analysis, err := strategy.Analyze(req.Symbol, currentPrice, frames, stratOpts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponseFromAnalysis(analysis))
}
