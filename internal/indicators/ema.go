// Package indicators provides pure, stateless functions computing
// technical-analysis values over a price sequence (most-recent last). No
// function tolerates NaN/Inf on output: inputs shorter than the required
// window return a defined neutral fallback instead.
package indicators

import "github.com/markcheno/go-talib"

// EMASeries computes the full exponential-moving-average history for
// prices, one value per input price. Multiplier is 2/(period+1), seeded
// with the first value. When len(prices) < period the series falls back
// to a running SMA for every prefix, matching the kernel's insufficient-
// data contract.
func EMASeries(prices []float64, period int) []float64 {
	if len(prices) == 0 {
		return nil
	}
	if len(prices) < period {
		out := make([]float64, len(prices))
		sum := 0.0
		for i, p := range prices {
			sum += p
			out[i] = sum / float64(i+1)
		}
		return out
	}

	multiplier := 2.0 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = (prices[i]-out[i-1])*multiplier + out[i-1]
	}
	return out
}

// EMA returns the most recent value of EMASeries(prices, period), or 0 if
// prices is empty.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0.0
	}
	series := EMASeries(prices, period)
	if len(series) == 0 {
		return 0.0
	}
	return series[len(series)-1]
}

// SMA computes the simple mean of the last period values in prices via
// go-talib, returning nil if prices is shorter than period. CalcVolume
// uses this for its current-vs-average comparison.
func SMA(prices []float64, period int) *float64 {
	if len(prices) < period {
		return nil
	}
	sma := talib.Sma(prices, period)
	if len(sma) == 0 || isNaN(sma[len(sma)-1]) {
		return nil
	}
	v := sma[len(sma)-1]
	return &v
}

func isNaN(f float64) bool {
	return f != f
}
