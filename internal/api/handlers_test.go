package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/marketdata"
	"github.com/aristath/sentinel/internal/store"
)

type fakeSnapshotProvider struct {
	snap marketdata.Snapshot
	err  error
}

func (f *fakeSnapshotProvider) Get(ctx context.Context, symbol string) (marketdata.Snapshot, error) {
	return f.snap, f.err
}

type fakeKlineEngine struct {
	bars    []store.Bar
	multiTF map[store.Interval][]store.Bar
	err     error
}

func (f *fakeKlineEngine) GetKlines(ctx context.Context, symbol string, interval store.Interval, limit int) ([]store.Bar, error) {
	return f.bars, f.err
}

func (f *fakeKlineEngine) GetMultiTimeframe(ctx context.Context, symbol string, intervals []store.Interval, limit int) (map[store.Interval][]store.Bar, error) {
	return f.multiTF, f.err
}

type fakeBarReader struct {
	bars []store.Bar
}

func (f *fakeBarReader) SelectBars(symbol string, interval store.Interval, limit int) ([]store.Bar, error) {
	return f.bars, nil
}

type fakeSignalStore struct {
	inserted []store.AgentSignal
	listed   []store.AgentSignal
}

func (f *fakeSignalStore) InsertAgentSignal(sig store.AgentSignal) (int64, error) {
	f.inserted = append(f.inserted, sig)
	return int64(len(f.inserted)), nil
}

func (f *fakeSignalStore) ListAgentSignals(symbol string, limit int) ([]store.AgentSignal, error) {
	return f.listed, nil
}

func newTestRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func bar(openMs int64) store.Bar {
	d := decimal.NewFromInt(100)
	return store.Bar{Symbol: "BTCUSDT", Interval: store.Interval1h, OpenTimeMs: openMs, CloseTimeMs: openMs + 1, Open: d, High: d, Low: d, Close: d, Volume: d}
}

func manyBars(n int) []store.Bar {
	bars := make([]store.Bar, n)
	for i := range bars {
		bars[i] = bar(int64(i) * 1000)
	}
	return bars
}

func TestHandleSnapshot_ReturnsMarketsForWatchList(t *testing.T) {
	snap := marketdata.Snapshot{
		Symbol:       "BTCUSDT",
		CurrentPrice: 50000,
		Timestamp:    time.Now(),
		Ticker24h:    &store.MarketCacheEntry{Symbol: "BTCUSDT", Price: decimal.NewFromInt(50000)},
		MacroData:    map[string]float64{"fed_funds_rate": 5.33},
		FearGreed:    ptr(70),
	}
	h := &Handlers{Snapshot: &fakeSnapshotProvider{snap: snap}, WatchList: []string{"BTCUSDT"}, Log: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/data/snapshot", nil)
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Markets, 1)
	require.Equal(t, "BTCUSDT", resp.Markets[0].Symbol)
	require.NotNil(t, resp.Macro.FedRate)
	require.InDelta(t, 5.33, *resp.Macro.FedRate, 1e-9)
}

func TestHandleKlinesRead_DefaultsToOneHourWithSync(t *testing.T) {
	h := &Handlers{Klines: &fakeKlineEngine{bars: []store.Bar{bar(1000), bar(2000)}}, Log: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/data/klines/BTCUSDT", nil)
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "1h", body["timeframe"])
	require.Len(t, body["bars"], 2)
}

func TestHandleKlinesRead_SkipSyncReadsDirectlyFromStore(t *testing.T) {
	h := &Handlers{Klines: &fakeKlineEngine{bars: []store.Bar{bar(1)}}, Bars: &fakeBarReader{bars: []store.Bar{bar(1), bar(2), bar(3)}}, Log: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/data/klines/BTCUSDT?skip_sync=true", nil)
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body["bars"], 3)
}

func TestHandleKlinesRead_RejectsUnknownTimeframe(t *testing.T) {
	h := &Handlers{Klines: &fakeKlineEngine{}, Log: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/data/klines/BTCUSDT?timeframe=3h", nil)
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSignalWrite_ValidatesSymbolAndAction(t *testing.T) {
	signals := &fakeSignalStore{}
	h := &Handlers{Signals: signals, Log: zerolog.Nop()}
	router := newTestRouter(h)

	body, _ := json.Marshal(map[string]any{"symbol": "", "action": "BUY"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/data/signals", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body, _ = json.Marshal(map[string]any{"symbol": "BTCUSDT", "action": "NOPE"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/data/signals", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSignalWrite_PersistsValidSignal(t *testing.T) {
	signals := &fakeSignalStore{}
	h := &Handlers{Signals: signals, Log: zerolog.Nop()}

	body, _ := json.Marshal(map[string]any{"symbol": "BTCUSDT", "action": "BUY", "conviction": 0.8})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/data/signals", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, signals.inserted, 1)
	require.Equal(t, store.ActionBuy, signals.inserted[0].Action)
}

func TestHandleSignalList_ReturnsSignals(t *testing.T) {
	signals := &fakeSignalStore{listed: []store.AgentSignal{{ID: 1, Symbol: "BTCUSDT", Action: store.ActionHold}}}
	h := &Handlers{Signals: signals, Log: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/data/signals?symbol=BTCUSDT", nil)
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string][]signalDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body["signals"], 1)
}

func TestHandleTaAnalyze_RejectsUnknownTimeframe(t *testing.T) {
	h := &Handlers{Klines: &fakeKlineEngine{}, Log: zerolog.Nop()}

	body, _ := json.Marshal(map[string]any{"symbol": "BTCUSDT", "timeframes": []string{"3h"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ta/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTaAnalyze_HoldsOnInsufficientBars(t *testing.T) {
	h := &Handlers{Klines: &fakeKlineEngine{multiTF: map[store.Interval][]store.Bar{store.Interval1h: manyBars(5)}}, Log: zerolog.Nop()}

	body, _ := json.Marshal(map[string]any{"symbol": "BTCUSDT", "timeframes": []string{"1h"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ta/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "HOLD", resp.Action)
}

func TestHandleTaAnalyze_ScoresWithSufficientBars(t *testing.T) {
	h := &Handlers{Klines: &fakeKlineEngine{multiTF: map[store.Interval][]store.Bar{store.Interval1h: manyBars(50)}}, Log: zerolog.Nop()}

	body, _ := json.Marshal(map[string]any{"symbol": "BTCUSDT", "timeframes": []string{"1h"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ta/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "BTCUSDT", resp.Symbol)
	require.Len(t, resp.Timeframes, 1)
}

var _ = indicators.Frame{} // keep import used if CalculateAll helper unused directly in tests
