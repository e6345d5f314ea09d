package indicators

// RSI computes Wilder's relative strength index over prices. The initial
// average gain/loss is the simple mean of the first `period` deltas;
// subsequent values use Wilder's smoothing
// avg = (avg*(period-1) + current) / period. Returns 50 when
// len(prices) < period+1 (insufficient data), and 100 when avg_loss is 0.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0
	}

	deltas := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		deltas[i-1] = prices[i] - prices[i-1]
	}

	gains := make([]float64, len(deltas))
	losses := make([]float64, len(deltas))
	for i, d := range deltas {
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(deltas); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// RSISeries computes RSI over every growing prefix of prices long enough
// to produce a defined value, used by StochRSI's rolling window. The
// returned slice has one entry per index i where i >= period, aligned so
// that result[j] is RSI(prices[:period+1+j], period).
func RSISeries(prices []float64, period int) []float64 {
	if len(prices) < period+1 {
		return nil
	}
	out := make([]float64, 0, len(prices)-period)
	for i := period + 1; i <= len(prices); i++ {
		out = append(out, RSI(prices[:i], period))
	}
	return out
}
