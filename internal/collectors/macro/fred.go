// Package macro collects macroeconomic indicators from the St. Louis Fed's
// FRED API: federal funds rate, 10-year treasury yield, trade-weighted
// dollar index, and the M2 money supply level. No year-over-year M2
// growth rate is computed.
package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/collectors"
)

const defaultFredBaseURL = "https://api.stlouisfed.org/fred/series/observations"

// seriesMapping names every FRED series this collector reports, keyed by
// the DataType it is persisted under.
var seriesMapping = map[string]string{
	"fed_funds_rate": "DFF",
	"treasury_10y":   "DGS10",
	"dxy":            "DTWEXBGS",
	"m2_supply":      "M2SL",
}

// FredCollector fetches the latest observation of each configured FRED
// series. It is a no-op (empty result, no error) when apiKey is blank,
// since FRED requires a key and the system should degrade gracefully
// without one.
type FredCollector struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// New constructs a FredCollector against the production endpoint. apiKey
// may be empty.
func New(apiKey string, httpClient *http.Client, log zerolog.Logger) *FredCollector {
	return &FredCollector{
		baseURL:    defaultFredBaseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log.With().Str("component", "fred_collector").Logger(),
	}
}

// NewWithBaseURL constructs a FredCollector against an arbitrary endpoint,
// for tests.
func NewWithBaseURL(baseURL, apiKey string, httpClient *http.Client, log zerolog.Logger) *FredCollector {
	c := New(apiKey, httpClient, log)
	c.baseURL = baseURL
	return c
}

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type fredResponse struct {
	Observations []fredObservation `json:"observations"`
}

// Collect fetches the most recent observation of every series in
// seriesMapping. A single series failing to parse does not abort the
// others.
func (c *FredCollector) Collect(ctx context.Context) ([]collectors.DataPoint, error) {
	if c.apiKey == "" {
		c.log.Warn().Msg("FRED API key not configured, skipping macro collection")
		return nil, nil
	}

	var points []collectors.DataPoint
	for dataType, seriesID := range seriesMapping {
		val, raw, err := c.fetchLatest(ctx, seriesID)
		if err != nil {
			c.log.Error().Err(err).Str("series", seriesID).Msg("fred series fetch failed")
			continue
		}
		points = append(points, collectors.DataPoint{DataType: dataType, Value: val, Raw: raw})
	}
	return points, nil
}

func (c *FredCollector) fetchLatest(ctx context.Context, seriesID string) (decimal.Decimal, string, error) {
	freq := "d"
	if seriesID == "M2SL" {
		freq = "m"
	}

	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("limit", "1")
	q.Set("sort_order", "desc")
	q.Set("frequency", freq)

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("build fred request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("fred request %s: %w", seriesID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, "", fmt.Errorf("fred %s: status %d", seriesID, resp.StatusCode)
	}

	var body fredResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, "", fmt.Errorf("decode fred response for %s: %w", seriesID, err)
	}
	if len(body.Observations) == 0 || body.Observations[0].Value == "." {
		return decimal.Zero, "", fmt.Errorf("no usable observation for %s", seriesID)
	}

	val, err := decimal.NewFromString(body.Observations[0].Value)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("parse fred value for %s: %w", seriesID, err)
	}

	raw, _ := json.Marshal(body.Observations[0])
	return val, string(raw), nil
}
