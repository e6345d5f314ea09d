// Package store provides typed DAOs over the embedded SQL database:
// kline_cache, market_cache, crawled_data, and agent_signals.
package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Interval enumerates supported bar intervals.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// IntervalMillis returns the duration of one bar for the interval, in
// milliseconds.
func IntervalMillis(iv Interval) int64 {
	switch iv {
	case Interval1m:
		return 60_000
	case Interval5m:
		return 5 * 60_000
	case Interval15m:
		return 15 * 60_000
	case Interval1h:
		return 60 * 60_000
	case Interval4h:
		return 4 * 60 * 60_000
	case Interval1d:
		return 24 * 60 * 60_000
	default:
		return 0
	}
}

// Bar is one immutable OHLCV sample. Bars are never mutated or deleted by
// the core once closed.
type Bar struct {
	Symbol      string
	Interval    Interval
	OpenTimeMs  int64
	CloseTimeMs int64
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
}

// MarketCacheEntry is the latest 24h ticker snapshot for a symbol,
// overwritten on every refresh.
type MarketCacheEntry struct {
	Symbol        string
	Price         decimal.Decimal
	ChangePct24h  decimal.Decimal
	High24h       decimal.Decimal
	Low24h        decimal.Decimal
	Volume24h     decimal.Decimal
	UpdatedAt     time.Time
}

// CrawledDatum is a typed external observation scraped by a headless
// spider. At most one row exists per (DataType, Date).
type CrawledDatum struct {
	ID        int64
	DataType  string
	Date      time.Time // calendar day the value refers to, truncated to midnight UTC
	Value     decimal.Decimal
	Raw       string
	CreatedAt time.Time
}

// SignalAction enumerates the external-agent action vocabulary.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// AgentSignal is a write-only audit record submitted by an external
// decision agent. Writes are event-sourced: submitting the same signal
// twice yields two distinct rows.
type AgentSignal struct {
	ID             int64
	AgentID        *string
	StrategyName   *string
	Symbol         string
	Action         SignalAction
	Conviction     *float64
	PriceAtSignal  *decimal.Decimal
	Reason         *string
	RawAnalysis    *string // opaque JSON
	StopLoss       *decimal.Decimal
	TakeProfit     *decimal.Decimal
	CreatedAt      time.Time
}
