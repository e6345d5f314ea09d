// Package strategy scores a symbol's indicator frame per timeframe, fuses
// the per-timeframe scores into one multi-timeframe signal, grades the
// result, and sizes a position against it.
package strategy

import (
	"math"

	"github.com/aristath/sentinel/internal/indicators"
	"github.com/aristath/sentinel/internal/store"
)

// componentWeights are the relative contributions of each indicator
// family to a single timeframe's score.
var componentWeights = map[string]float64{
	"ema_alignment":    0.20,
	"rsi":              0.15,
	"stoch_rsi":        0.10,
	"macd":             0.20,
	"bollinger":        0.10,
	"volume":           0.10,
	"trend_structure":  0.15,
}

// ComponentScore is one weighted contribution to a timeframe score, kept
// around for explainability in API responses.
type ComponentScore struct {
	Name   string
	Score  float64 // -1..1
	Weight float64
}

// TimeframeScore is the scored result for a single timeframe's Frame.
type TimeframeScore struct {
	Interval   store.Interval
	Score      float64 // -1 (max bearish) .. 1 (max bullish)
	Components []ComponentScore
}

// ScoreTimeframe combines every component of frame into one weighted
// [-1, 1] score for a single timeframe.
func ScoreTimeframe(iv store.Interval, frame indicators.Frame) TimeframeScore {
	components := []ComponentScore{
		{"ema_alignment", scoreEMAAlignment(frame), componentWeights["ema_alignment"]},
		{"rsi", scoreRSI(frame.RSI), componentWeights["rsi"]},
		{"stoch_rsi", scoreStochRSI(frame.StochRSI), componentWeights["stoch_rsi"]},
		{"macd", scoreMACD(frame.MACD), componentWeights["macd"]},
		{"bollinger", scoreBollinger(frame.Bollinger), componentWeights["bollinger"]},
		{"volume", scoreVolume(frame.Volume), componentWeights["volume"]},
		{"trend_structure", scoreTrendStructure(frame.TrendStructure), componentWeights["trend_structure"]},
	}

	var total float64
	for _, c := range components {
		total += c.Score * c.Weight
	}

	return TimeframeScore{Interval: iv, Score: clamp(total, -1, 1), Components: components}
}

func scoreEMAAlignment(frame indicators.Frame) float64 {
	e9, e21, e50, e200 := frame.EMA[9], frame.EMA[21], frame.EMA[50], frame.EMA[200]
	if e9 == 0 || e21 == 0 || e50 == 0 || e200 == 0 {
		return 0
	}

	aligned := 0
	if e9 > e21 {
		aligned++
	} else {
		aligned--
	}
	if e21 > e50 {
		aligned++
	} else {
		aligned--
	}
	if e50 > e200 {
		aligned++
	} else {
		aligned--
	}
	return float64(aligned) / 3.0
}

func scoreRSI(rsi float64) float64 {
	switch {
	case rsi >= 70:
		return -1 + (100-rsi)/30*0.3 // overbought, fading bullishness
	case rsi <= 30:
		return 1 - rsi/30*0.3 // oversold, fading bearishness
	default:
		return (rsi - 50) / 20 // linear zone around neutral
	}
}

func scoreStochRSI(s indicators.StochRSI) float64 {
	switch {
	case s.K >= 80:
		return -0.5
	case s.K <= 20:
		return 0.5
	default:
		return (s.K - 50) / 100
	}
}

func scoreMACD(m indicators.MACD) float64 {
	var base float64
	switch m.Trend {
	case indicators.TrendBullish:
		base = 0.6
	case indicators.TrendBearish:
		base = -0.6
	default:
		base = 0
	}
	switch m.Cross {
	case indicators.CrossGolden:
		base += 0.4
	case indicators.CrossDeath:
		base -= 0.4
	}
	return clamp(base, -1, 1)
}

func scoreBollinger(b indicators.Bollinger) float64 {
	if b.Squeeze {
		return 0 // breakout direction unknown until it resolves
	}
	return clamp((b.PercentB-0.5)*2, -1, 1)
}

func scoreVolume(v indicators.Volume) float64 {
	switch v.Trend {
	case indicators.VolumeSurge:
		return 0.3 // confirms whatever direction other components set
	case indicators.VolumeDry:
		return -0.1
	default:
		return 0
	}
}

func scoreTrendStructure(t indicators.TrendStructure) float64 {
	sign := 0.0
	switch t.Structure {
	case indicators.StructureUptrend:
		sign = 1
	case indicators.StructureDowntrend:
		sign = -1
	}
	return sign * (t.Strength / 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
