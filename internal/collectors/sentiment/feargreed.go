// Package sentiment collects the Crypto Fear & Greed Index from
// Alternative.me.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/collectors"
)

const defaultFearGreedURL = "https://api.alternative.me/fng/"

// FearGreedCollector fetches the current Fear & Greed Index value
// (0-100) and its text classification (e.g. "Greed", "Fear").
type FearGreedCollector struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New constructs a FearGreedCollector against the production endpoint.
func New(httpClient *http.Client, log zerolog.Logger) *FearGreedCollector {
	return &FearGreedCollector{
		baseURL:    defaultFearGreedURL,
		httpClient: httpClient,
		log:        log.With().Str("component", "fear_greed_collector").Logger(),
	}
}

// NewWithBaseURL constructs a FearGreedCollector against an arbitrary
// endpoint, for tests.
func NewWithBaseURL(baseURL string, httpClient *http.Client, log zerolog.Logger) *FearGreedCollector {
	c := New(httpClient, log)
	c.baseURL = baseURL
	return c
}

type fngItem struct {
	Value              string `json:"value"`
	ValueClassification string `json:"value_classification"`
	Timestamp          string `json:"timestamp"`
}

type fngResponse struct {
	Data []fngItem `json:"data"`
}

// Collect fetches the current index value as a single "fear_greed_index"
// data point, with the classification text carried in Raw.
func (c *FearGreedCollector) Collect(ctx context.Context) ([]collectors.DataPoint, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build fear/greed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fear/greed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fear/greed: status %d", resp.StatusCode)
	}

	var body fngResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode fear/greed response: %w", err)
	}
	if len(body.Data) == 0 {
		return nil, nil
	}

	val, err := decimal.NewFromString(body.Data[0].Value)
	if err != nil {
		return nil, fmt.Errorf("parse fear/greed value: %w", err)
	}

	raw, _ := json.Marshal(body.Data[0])
	return []collectors.DataPoint{
		{DataType: "fear_greed_index", Value: val, Raw: string(raw)},
	}, nil
}
