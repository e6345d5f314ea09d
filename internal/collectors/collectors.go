// Package collectors defines the shared shape every external data
// collector (macro, sentiment, on-chain, crawler) reports through, so the
// scheduler and marketdata cache can treat them uniformly.
package collectors

import (
	"context"

	"github.com/shopspring/decimal"
)

// DataPoint is one named observation a collector produced this run. Date
// defaults to "today" (UTC) at the persistence layer unless the source
// supplies its own as-of date.
type DataPoint struct {
	DataType string
	Value    decimal.Decimal
	Raw      string // opaque JSON snippet kept for audit/debugging
}

// Collector fetches one or more named data points from an external
// source. Implementations never panic on a source error; they log and
// return a partial (possibly empty) result so one failing source never
// blocks the others in a fan-out sweep.
type Collector interface {
	Collect(ctx context.Context) ([]DataPoint, error)
}
