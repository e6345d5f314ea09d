package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/indicators"
	"github.com/aristath/sentinel/internal/store"
)

func TestScoreEMAAlignment(t *testing.T) {
	bullish := indicators.Frame{EMA: map[int]float64{9: 110, 21: 105, 50: 100, 200: 90}}
	require.Equal(t, 1.0, scoreEMAAlignment(bullish))

	bearish := indicators.Frame{EMA: map[int]float64{9: 90, 21: 100, 50: 105, 200: 110}}
	require.Equal(t, -1.0, scoreEMAAlignment(bearish))

	missing := indicators.Frame{EMA: map[int]float64{9: 110, 21: 105}}
	require.Equal(t, 0.0, scoreEMAAlignment(missing))
}

func TestScoreRSI(t *testing.T) {
	require.InDelta(t, -0.7, scoreRSI(70), 1e-9)
	require.InDelta(t, 0.7, scoreRSI(30), 1e-9)
	require.InDelta(t, 0.0, scoreRSI(50), 1e-9)
	require.Less(t, scoreRSI(90), scoreRSI(70))
}

func TestScoreStochRSI(t *testing.T) {
	require.Equal(t, -0.5, scoreStochRSI(indicators.StochRSI{K: 85}))
	require.Equal(t, 0.5, scoreStochRSI(indicators.StochRSI{K: 10}))
	require.Equal(t, 0.0, scoreStochRSI(indicators.StochRSI{K: 50}))
}

func TestScoreMACD(t *testing.T) {
	require.Equal(t, 1.0, scoreMACD(indicators.MACD{Trend: indicators.TrendBullish, Cross: indicators.CrossGolden}))
	require.Equal(t, -1.0, scoreMACD(indicators.MACD{Trend: indicators.TrendBearish, Cross: indicators.CrossDeath}))
	require.InDelta(t, 0.2, scoreMACD(indicators.MACD{Trend: indicators.TrendBullish, Cross: indicators.CrossDeath}), 1e-9)
	require.Equal(t, 0.0, scoreMACD(indicators.MACD{Trend: indicators.TrendNeutral, Cross: indicators.CrossNone}))
}

func TestScoreBollinger(t *testing.T) {
	require.Equal(t, 0.0, scoreBollinger(indicators.Bollinger{Squeeze: true, PercentB: 0.9}))
	require.InDelta(t, 1.0, scoreBollinger(indicators.Bollinger{PercentB: 1.0}), 1e-9)
	require.InDelta(t, -1.0, scoreBollinger(indicators.Bollinger{PercentB: 0.0}), 1e-9)
	require.InDelta(t, 0.0, scoreBollinger(indicators.Bollinger{PercentB: 0.5}), 1e-9)
}

func TestScoreVolume(t *testing.T) {
	require.Equal(t, 0.3, scoreVolume(indicators.Volume{Trend: indicators.VolumeSurge}))
	require.Equal(t, -0.1, scoreVolume(indicators.Volume{Trend: indicators.VolumeDry}))
	require.Equal(t, 0.0, scoreVolume(indicators.Volume{Trend: indicators.VolumeNormal}))
}

func TestScoreTrendStructure(t *testing.T) {
	require.InDelta(t, 0.8, scoreTrendStructure(indicators.TrendStructure{Structure: indicators.StructureUptrend, Strength: 80}), 1e-9)
	require.InDelta(t, -0.5, scoreTrendStructure(indicators.TrendStructure{Structure: indicators.StructureDowntrend, Strength: 50}), 1e-9)
}

func TestScoreTimeframe_CombinesComponentsAndClamps(t *testing.T) {
	frame := indicators.Frame{
		EMA:            map[int]float64{9: 110, 21: 105, 50: 100, 200: 90},
		RSI:            20,
		StochRSI:       indicators.StochRSI{K: 10},
		MACD:           indicators.MACD{Trend: indicators.TrendBullish, Cross: indicators.CrossGolden},
		Bollinger:      indicators.Bollinger{PercentB: 1.0},
		Volume:         indicators.Volume{Trend: indicators.VolumeSurge},
		TrendStructure: indicators.TrendStructure{Structure: indicators.StructureUptrend, Strength: 100},
	}

	got := ScoreTimeframe(store.Interval1h, frame)
	require.Equal(t, store.Interval1h, got.Interval)
	require.LessOrEqual(t, got.Score, 1.0)
	require.Greater(t, got.Score, 0.5)
	require.Len(t, got.Components, 7)
}
