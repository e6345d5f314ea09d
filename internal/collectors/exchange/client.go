// Package exchange implements the ExchangeClient collector: spot price,
// 24h ticker, and K-line history against the exchange's public REST API
// and its dedicated K-line data mirror.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/apierr"
	"github.com/aristath/sentinel/internal/ratelimit"
	"github.com/aristath/sentinel/internal/store"
)

// MaxKlinesPerRequest is the exchange's hard cap on bars per request.
const MaxKlinesPerRequest = 1000

const (
	initialRetryWait = 2 * time.Second
	maxRetries       = 3
)

// Client fetches klines, 24h tickers, and spot prices. All calls pass
// through the shared rate limiter before touching the network, and K-line
// fetches also hold the shared semaphore; none retain state across calls
// beyond the shared HTTP client.
type Client struct {
	baseURL       string // used for ticker/spot-price
	klinesBaseURL string // dedicated K-line mirror
	httpClient    *http.Client
	limiter       *ratelimit.Limiter
	sem           *ratelimit.Semaphore
	log           zerolog.Logger
}

// New constructs a Client. httpClient should be the single process-wide
// pool (30s total / 10s connect timeout, one user-agent).
func New(baseURL, klinesBaseURL string, httpClient *http.Client, limiter *ratelimit.Limiter, sem *ratelimit.Semaphore, log zerolog.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		klinesBaseURL: klinesBaseURL,
		httpClient:    httpClient,
		limiter:       limiter,
		sem:           sem,
		log:           log.With().Str("component", "exchange_client").Logger(),
	}
}

// rawKline mirrors the exchange's klines array-of-arrays wire shape:
// [openTime, open, high, low, close, volume, closeTime, ...].
type rawKline [12]json.RawMessage

// FetchKlines fetches up to limit bars for (symbol, interval) starting at
// startMs (inclusive) through endMs (inclusive, optional). Honors the
// rate limiter and semaphore, retries 429s (Retry-After or doubling
// backoff) and transient timeouts up to maxRetries. A hard 418 block is
// not retried: it returns no bars and an error wrapping apierr.ErrHardBlocked.
func (c *Client) FetchKlines(ctx context.Context, symbol string, interval store.Interval, startMs, endMs int64, limit int) ([]store.Bar, error) {
	if limit <= 0 || limit > MaxKlinesPerRequest {
		limit = MaxKlinesPerRequest
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(interval))
	q.Set("limit", strconv.Itoa(limit))
	if startMs > 0 {
		q.Set("startTime", strconv.FormatInt(startMs, 10))
	}
	if endMs > 0 {
		q.Set("endTime", strconv.FormatInt(endMs, 10))
	}
	reqURL := c.klinesBaseURL + "/api/v3/klines?" + q.Encode()

	retryWait := initialRetryWait
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter acquire: %w", err)
		}

		bars, retry, err := c.attemptFetchKlines(ctx, reqURL, symbol, interval, retryWait)
		if err != nil {
			return nil, err
		}
		if !retry {
			return bars, nil
		}
		retryWait *= 2
	}

	c.log.Error().Str("symbol", symbol).Str("interval", string(interval)).Msg("exhausted kline fetch retries")
	return nil, fmt.Errorf("%w: exhausted retries for %s/%s", apierr.ErrTransient, symbol, interval)
}

// attemptFetchKlines issues one HTTP request under the semaphore. The
// returned retry bool tells the caller whether to sleep and try again
// (429 honoring Retry-After, or a timeout); a 418 returns no bars, no
// retry, and an error wrapping apierr.ErrHardBlocked.
func (c *Client) attemptFetchKlines(ctx context.Context, reqURL, symbol string, interval store.Interval, retryWait time.Duration) ([]store.Bar, bool, error) {
	if err := c.sem.Acquire(ctx); err != nil {
		return nil, false, fmt.Errorf("semaphore acquire: %w", err)
	}
	defer c.sem.Release()

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Str("interval", string(interval)).Msg("kline fetch timeout/network error")
		time.Sleep(retryWait)
		return nil, true, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var raw []rawKline
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, false, fmt.Errorf("decode klines response: %w", err)
		}
		bars, err := rawToBars(symbol, interval, raw)
		if err != nil {
			return nil, false, err
		}
		return bars, false, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryWait
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		c.log.Warn().Str("symbol", symbol).Str("interval", string(interval)).Dur("wait", wait).Msg("429 rate limited")
		time.Sleep(wait)
		return nil, true, nil

	case resp.StatusCode == http.StatusTeapot: // 418: hard IP ban
		c.log.Error().Str("symbol", symbol).Str("interval", string(interval)).Msg("418 hard blocked")
		return nil, false, fmt.Errorf("%w: %s/%s", apierr.ErrHardBlocked, symbol, interval)

	default:
		c.log.Error().Int("status", resp.StatusCode).Str("symbol", symbol).Str("interval", string(interval)).Msg("unexpected exchange response")
		return nil, false, fmt.Errorf("%w: status %d", apierr.ErrTransient, resp.StatusCode)
	}
}

func rawToBars(symbol string, interval store.Interval, raw []rawKline) ([]store.Bar, error) {
	bars := make([]store.Bar, 0, len(raw))
	for _, r := range raw {
		var openTime, closeTime int64
		var openStr, highStr, lowStr, closeStr, volStr string
		if err := json.Unmarshal(r[0], &openTime); err != nil {
			return nil, fmt.Errorf("parse open_time: %w", err)
		}
		if err := json.Unmarshal(r[6], &closeTime); err != nil {
			return nil, fmt.Errorf("parse close_time: %w", err)
		}
		if err := json.Unmarshal(r[1], &openStr); err != nil {
			return nil, fmt.Errorf("parse open: %w", err)
		}
		if err := json.Unmarshal(r[2], &highStr); err != nil {
			return nil, fmt.Errorf("parse high: %w", err)
		}
		if err := json.Unmarshal(r[3], &lowStr); err != nil {
			return nil, fmt.Errorf("parse low: %w", err)
		}
		if err := json.Unmarshal(r[4], &closeStr); err != nil {
			return nil, fmt.Errorf("parse close: %w", err)
		}
		if err := json.Unmarshal(r[5], &volStr); err != nil {
			return nil, fmt.Errorf("parse volume: %w", err)
		}

		open, err := decimal.NewFromString(openStr)
		if err != nil {
			return nil, fmt.Errorf("decimal open: %w", err)
		}
		high, err := decimal.NewFromString(highStr)
		if err != nil {
			return nil, fmt.Errorf("decimal high: %w", err)
		}
		low, err := decimal.NewFromString(lowStr)
		if err != nil {
			return nil, fmt.Errorf("decimal low: %w", err)
		}
		closeP, err := decimal.NewFromString(closeStr)
		if err != nil {
			return nil, fmt.Errorf("decimal close: %w", err)
		}
		vol, err := decimal.NewFromString(volStr)
		if err != nil {
			return nil, fmt.Errorf("decimal volume: %w", err)
		}

		bars = append(bars, store.Bar{
			Symbol:      symbol,
			Interval:    interval,
			OpenTimeMs:  openTime,
			CloseTimeMs: closeTime,
			Open:        open.Round(8),
			High:        high.Round(8),
			Low:         low.Round(8),
			Close:       closeP.Round(8),
			Volume:      vol.Round(8),
		})
	}
	return bars, nil
}

// tickerResponse mirrors the exchange's 24hr ticker wire shape.
type tickerResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
}

// FetchTicker24h fetches the latest 24h ticker snapshot for symbol.
func (c *Client) FetchTicker24h(ctx context.Context, symbol string) (*store.MarketCacheEntry, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter acquire: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reqURL := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build ticker request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ticker status %d", apierr.ErrTransient, resp.StatusCode)
	}

	var tr tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode ticker response: %w", err)
	}

	price, err := decimal.NewFromString(tr.LastPrice)
	if err != nil {
		return nil, fmt.Errorf("parse lastPrice: %w", err)
	}
	changePct, err := decimal.NewFromString(tr.PriceChangePercent)
	if err != nil {
		return nil, fmt.Errorf("parse priceChangePercent: %w", err)
	}
	high, err := decimal.NewFromString(tr.HighPrice)
	if err != nil {
		return nil, fmt.Errorf("parse highPrice: %w", err)
	}
	low, err := decimal.NewFromString(tr.LowPrice)
	if err != nil {
		return nil, fmt.Errorf("parse lowPrice: %w", err)
	}
	vol, err := decimal.NewFromString(tr.Volume)
	if err != nil {
		return nil, fmt.Errorf("parse volume: %w", err)
	}

	return &store.MarketCacheEntry{
		Symbol:       symbol,
		Price:        price,
		ChangePct24h: changePct,
		High24h:      high,
		Low24h:       low,
		Volume24h:    vol,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// FetchSpotPrice fetches the current spot price for symbol.
func (c *Client) FetchSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	entry, err := c.FetchTicker24h(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return entry.Price, nil
}
