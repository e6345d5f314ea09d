package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/apierr"
	"github.com/aristath/sentinel/internal/ratelimit"
	"github.com/aristath/sentinel/internal/store"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	limiter := ratelimit.New(1000, 1000) // effectively unthrottled for fast tests
	sem := ratelimit.NewSemaphore(3)
	return New(srv.URL, srv.URL, srv.Client(), limiter, sem, zerolog.Nop())
}

func sampleKlineJSON() string {
	return `[[1000,"100.0","110.0","90.0","105.0","12.5",1999,"0","0","0","0","0"]]`
}

func TestFetchKlines_ParsesWireShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleKlineJSON()))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	bars, err := c.FetchKlines(context.Background(), "BTCUSDT", store.Interval1h, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.Equal(t, int64(1000), bars[0].OpenTimeMs)
	require.Equal(t, int64(1999), bars[0].CloseTimeMs)
	require.True(t, bars[0].Close.Equal(decimal.NewFromFloat(105.0)))
}

func TestFetchKlines_RetriesOn429ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(sampleKlineJSON()))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	bars, err := c.FetchKlines(context.Background(), "BTCUSDT", store.Interval1h, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchKlines_HardBlockOn418ReturnsNoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.FetchKlines(context.Background(), "BTCUSDT", store.Interval1h, 0, 0, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, apierr.ErrHardBlocked)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchKlines_ExhaustsRetriesOnPersistent429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.FetchKlines(ctx, "BTCUSDT", store.Interval1h, 0, 0, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, apierr.ErrTransient)
}

func TestFetchTicker24h_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"50000.00","priceChangePercent":"2.50","highPrice":"51000.00","lowPrice":"49000.00","volume":"1234.56"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	entry, err := c.FetchTicker24h(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, "BTCUSDT", entry.Symbol)
	require.True(t, entry.Price.Equal(decimal.NewFromFloat(50000.0)))
}

func TestFetchSpotPrice_ReturnsLastPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ETHUSDT","lastPrice":"3000.00","priceChangePercent":"1.0","highPrice":"3100","lowPrice":"2900","volume":"500"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	price, err := c.FetchSpotPrice(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromFloat(3000.0)))
}
