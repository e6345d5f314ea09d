// Package onchain collects blockchain and stablecoin-market indicators:
// total stablecoin supply (DefiLlama) and Bitcoin network hashrate plus
// halving countdown (mempool.space).
package onchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/collectors"
)

const (
	defaultStablecoinURL  = "https://stablecoins.llama.fi/stablecoincharts/all"
	defaultHashrateURL    = "https://mempool.space/api/v1/mining/hashrate/1m"
	defaultBlockHeightURL = "https://mempool.space/api/blocks/tip/height"

	halvingIntervalBlocks = 210_000
)

// Collector fetches stablecoin supply and Bitcoin network metrics. The
// three endpoint fields default to the production sources and are
// overridable for tests.
type Collector struct {
	stablecoinURL  string
	hashrateURL    string
	blockHeightURL string
	httpClient     *http.Client
	log            zerolog.Logger
}

// New constructs an on-chain Collector against the production endpoints.
func New(httpClient *http.Client, log zerolog.Logger) *Collector {
	return &Collector{
		stablecoinURL:  defaultStablecoinURL,
		hashrateURL:    defaultHashrateURL,
		blockHeightURL: defaultBlockHeightURL,
		httpClient:     httpClient,
		log:            log.With().Str("component", "onchain_collector").Logger(),
	}
}

// Collect fetches stablecoin_supply, hashrate, and halving_blocks_left.
// Each source failing independently logs and is omitted rather than
// aborting the others.
func (c *Collector) Collect(ctx context.Context) ([]collectors.DataPoint, error) {
	var points []collectors.DataPoint

	if dp, err := c.fetchStablecoinSupply(ctx); err != nil {
		c.log.Error().Err(err).Msg("stablecoin supply fetch failed")
	} else {
		points = append(points, dp)
	}

	if dp, err := c.fetchHashrate(ctx); err != nil {
		c.log.Error().Err(err).Msg("hashrate fetch failed")
	} else {
		points = append(points, dp)
	}

	if dp, err := c.fetchHalvingCountdown(ctx); err != nil {
		c.log.Error().Err(err).Msg("halving countdown fetch failed")
	} else {
		points = append(points, dp)
	}

	return points, nil
}

type stablecoinResponse struct {
	TotalCirculating struct {
		PeggedUSD float64 `json:"peggedUSD"`
	} `json:"totalCirculating"`
}

func (c *Collector) fetchStablecoinSupply(ctx context.Context) (collectors.DataPoint, error) {
	body, err := c.getJSON(ctx, c.stablecoinURL)
	if err != nil {
		return collectors.DataPoint{}, err
	}
	// The endpoint returns an array of daily snapshots; the latest is last.
	var series []stablecoinResponse
	if err := json.Unmarshal(body, &series); err != nil {
		return collectors.DataPoint{}, fmt.Errorf("decode stablecoin response: %w", err)
	}
	if len(series) == 0 {
		return collectors.DataPoint{}, fmt.Errorf("empty stablecoin series")
	}
	latest := series[len(series)-1]
	return collectors.DataPoint{
		DataType: "stablecoin_supply",
		Value:    decimal.NewFromFloat(latest.TotalCirculating.PeggedUSD),
		Raw:      string(body[:min(len(body), 2048)]),
	}, nil
}

type hashrateResponse struct {
	CurrentHashrate float64 `json:"currentHashrate"`
}

func (c *Collector) fetchHashrate(ctx context.Context) (collectors.DataPoint, error) {
	body, err := c.getJSON(ctx, c.hashrateURL)
	if err != nil {
		return collectors.DataPoint{}, err
	}
	var hr hashrateResponse
	if err := json.Unmarshal(body, &hr); err != nil {
		return collectors.DataPoint{}, fmt.Errorf("decode hashrate response: %w", err)
	}
	return collectors.DataPoint{
		DataType: "network_hashrate",
		Value:    decimal.NewFromFloat(hr.CurrentHashrate),
		Raw:      string(body),
	}, nil
}

func (c *Collector) fetchHalvingCountdown(ctx context.Context) (collectors.DataPoint, error) {
	body, err := c.getJSON(ctx, c.blockHeightURL)
	if err != nil {
		return collectors.DataPoint{}, err
	}
	var height int64
	if err := json.Unmarshal(body, &height); err != nil {
		return collectors.DataPoint{}, fmt.Errorf("decode block height response: %w", err)
	}
	nextHalving := ((height / halvingIntervalBlocks) + 1) * halvingIntervalBlocks
	blocksLeft := nextHalving - height
	return collectors.DataPoint{
		DataType: "halving_blocks_left",
		Value:    decimal.NewFromInt(blocksLeft),
		Raw:      fmt.Sprintf(`{"current_height":%d,"next_halving_height":%d}`, height, nextHalving),
	}, nil
}

func (c *Collector) getJSON(ctx context.Context, reqURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", reqURL, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", reqURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body for %s: %w", reqURL, err)
	}
	return body, nil
}
