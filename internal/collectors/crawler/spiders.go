package crawler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Record is one datum a spider extracted from a page, ready for
// same-day-dedup insertion into the crawled-data store.
type Record struct {
	DataType string
	Value    float64
}

// Spider crawls a single fetched page and returns zero or more records.
type Spider interface {
	Crawl(ctx context.Context, page *Page) ([]Record, error)
}

// holdingsPattern matches a "<amount>K BTC" / "<amount>M ETH"-shaped
// token, the format entity explorer pages render portfolio holdings in.
var holdingsPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)([KM])\s+(BTC|ETH)`)

var unitMultiplier = map[string]float64{"K": 1_000, "M": 1_000_000}

// minPlausible filters obvious price-not-holdings mismatches the same
// way the reference spider does (a holdings figure below this is almost
// certainly a price token the regex accidentally matched).
var minPlausible = map[string]float64{"BTC": 500, "ETH": 5000}

// EtfHoldingsSpider extracts a fund's disclosed BTC/ETH holdings count
// from an entity-explorer page's rendered text, tagging results
// "<entity>_holdings_<asset>" (e.g. ibit_holdings_btc).
type EtfHoldingsSpider struct {
	Entity string
}

func (s *EtfHoldingsSpider) Crawl(ctx context.Context, page *Page) ([]Record, error) {
	text := string(page.Body)
	seenAsset := make(map[string]bool)
	var records []Record

	for _, m := range holdingsPattern.FindAllStringSubmatch(text, -1) {
		asset := m[3]
		if seenAsset[asset] {
			continue
		}
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		amount *= unitMultiplier[m[2]]
		if amount < minPlausible[asset] {
			continue
		}
		seenAsset[asset] = true
		records = append(records, Record{
			DataType: fmt.Sprintf("%s_holdings_%s", s.Entity, strings.ToLower(asset)),
			Value:    amount,
		})
	}
	return records, nil
}

// GenericMetricSpider extracts a single labeled numeric value from a
// page's text using an operator-supplied regex with exactly one capture
// group, satisfying spec's page-handle-in/records-out contract for
// one-off on-page metrics that don't warrant a dedicated spider type.
type GenericMetricSpider struct {
	DataType string
	Pattern  *regexp.Regexp
	Scale    float64 // multiplied onto the parsed capture; 1.0 if unset
}

func (s *GenericMetricSpider) Crawl(ctx context.Context, page *Page) ([]Record, error) {
	match := s.Pattern.FindStringSubmatch(string(page.Body))
	if match == nil || len(match) < 2 {
		return nil, nil
	}
	raw := strings.ReplaceAll(match[1], ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("generic metric %s: parse %q: %w", s.DataType, match[1], err)
	}
	scale := s.Scale
	if scale == 0 {
		scale = 1.0
	}
	return []Record{{DataType: s.DataType, Value: value * scale}}, nil
}
