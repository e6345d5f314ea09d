package indicators

// Frame is the full derived IndicatorFrame computed over a Bar window:
// never persisted, recomputed per request.
type Frame struct {
	CurrentPrice   float64
	EMA            map[int]float64 // keyed by period, e.g. 9/21/50/200
	RSI            float64
	StochRSI       StochRSI
	MACD           MACD
	Bollinger      Bollinger
	ATR            float64
	Volume         Volume
	TrendStructure TrendStructure
	CandlePatterns []CandlePattern
}

// DefaultEMAPeriods mirrors the EMA ladder used throughout the strategy
// layer.
var DefaultEMAPeriods = []int{9, 21, 50, 200}

// CalculateAll computes the full IndicatorFrame over candles, which must be
// chronologically ordered with the most recent bar last. Returns a
// zero-value Frame for an empty input.
func CalculateAll(candles []CandleOHLC, volumes []float64, emaPeriods []int) Frame {
	if len(candles) == 0 {
		return Frame{}
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	emas := make(map[int]float64, len(emaPeriods))
	for _, period := range emaPeriods {
		emas[period] = EMA(closes, period)
	}

	return Frame{
		CurrentPrice:   closes[len(closes)-1],
		EMA:            emas,
		RSI:            RSI(closes, 14),
		StochRSI:       CalcStochRSI(closes, 14, 14),
		MACD:           CalcMACD(closes, 12, 26, 9),
		Bollinger:      CalcBollinger(closes, 20, 2.0),
		ATR:            ATR(highs, lows, closes, 14),
		Volume:         CalcVolume(volumes, 20),
		TrendStructure: AnalyzeTrendStructure(closes, 20),
		CandlePatterns: IdentifyCandlePatterns(candles),
	}
}
