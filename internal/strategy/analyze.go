package strategy

import (
	"fmt"

	"github.com/aristath/sentinel/internal/indicators"
	"github.com/aristath/sentinel/internal/store"
)

const (
	atrStopMult   = 2.0
	atrTargetMult = 3.0
)

// Analysis is the complete strategy verdict for one symbol: the fused
// signal plus an actionable stop-loss/take-profit anchored to the
// fastest scored timeframe's ATR.
type Analysis struct {
	Fused      FusedSignal
	Action     store.SignalAction
	Entry      float64
	StopLoss   *float64
	TakeProfit *float64
	RiskReward float64
}

// Options lets a caller override the action thresholds and ATR multipliers
// Analyze otherwise defaults. Threshold fields are on the same 0-100 scale
// the API layer exposes (50 = neutral); a zero value means "use the
// grade-based default" rather than literally gating at 0.
type Options struct {
	BuyThreshold  float64
	SellThreshold float64
	AtrStopMult   float64
	AtrTargetMult float64
}

// Option mutates an Options during Analyze's functional-option application.
type Option func(*Options)

// WithBuyThreshold overrides the 0-100 score a fused signal must reach to
// trigger a Buy action, bypassing the default grade-based gate.
func WithBuyThreshold(v float64) Option { return func(o *Options) { o.BuyThreshold = v } }

// WithSellThreshold overrides the 0-100 score a fused signal must fall to
// or below to trigger a Sell action, bypassing the default grade-based gate.
func WithSellThreshold(v float64) Option { return func(o *Options) { o.SellThreshold = v } }

// WithAtrStopMult overrides the ATR multiplier used to place the stop-loss.
func WithAtrStopMult(v float64) Option { return func(o *Options) { o.AtrStopMult = v } }

// WithAtrTargetMult overrides the ATR multiplier used to place the take-profit.
func WithAtrTargetMult(v float64) Option { return func(o *Options) { o.AtrTargetMult = v } }

// Analyze scores every (interval, frame) pair, fuses them, and derives an
// action and ATR-based stop/target anchored on currentPrice. frames must
// contain at least one entry or an error is returned.
func Analyze(symbol string, currentPrice float64, frames map[store.Interval]indicators.Frame, opts ...Option) (Analysis, error) {
	if len(frames) == 0 {
		return Analysis{}, fmt.Errorf("analyze %s: no timeframe frames supplied", symbol)
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	scores := make([]TimeframeScore, 0, len(frames))
	for iv, frame := range frames {
		scores = append(scores, ScoreTimeframe(iv, frame))
	}
	fused := Fuse(symbol, scores)

	action := actionFor(fused, o)

	fastest := fastestInterval(frames)
	atr := frames[fastest].ATR

	direction := indicators.DirectionBuy
	if action == store.ActionSell {
		direction = indicators.DirectionSell
	}

	stopMult := atrStopMult
	if o.AtrStopMult > 0 {
		stopMult = o.AtrStopMult
	}
	targetMult := atrTargetMult
	if o.AtrTargetMult > 0 {
		targetMult = o.AtrTargetMult
	}

	var stopLoss, takeProfit *float64
	var riskReward float64
	if action != store.ActionHold {
		st := indicators.CalcStopLossTakeProfit(currentPrice, atr, direction, stopMult, targetMult)
		stopLoss, takeProfit, riskReward = st.StopLoss, st.TakeProfit, st.RiskReward
	}

	return Analysis{
		Fused:      fused,
		Action:     action,
		Entry:      currentPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		RiskReward: riskReward,
	}, nil
}

// actionFor derives Buy/Sell/Hold from the fused signal. When the caller
// supplies an explicit threshold it gates on the rescaled 0-100 score
// directly; otherwise it falls back to the default grade-based gate.
func actionFor(fused FusedSignal, o Options) store.SignalAction {
	if o.BuyThreshold > 0 || o.SellThreshold > 0 {
		rescaled := (fused.FusedScore + 1) * 50
		switch {
		case o.BuyThreshold > 0 && rescaled >= o.BuyThreshold:
			return store.ActionBuy
		case o.SellThreshold > 0 && rescaled <= o.SellThreshold:
			return store.ActionSell
		default:
			return store.ActionHold
		}
	}

	switch {
	case fused.Grade != GradeNone && fused.FusedScore > 0:
		return store.ActionBuy
	case fused.Grade != GradeNone && fused.FusedScore < 0:
		return store.ActionSell
	default:
		return store.ActionHold
	}
}

// fastestInterval picks the shortest timeframe present, since its ATR is
// the most responsive anchor for a stop placed close to current price.
func fastestInterval(frames map[store.Interval]indicators.Frame) store.Interval {
	order := []store.Interval{store.Interval1m, store.Interval5m, store.Interval15m, store.Interval1h, store.Interval4h, store.Interval1d}
	for _, iv := range order {
		if _, ok := frames[iv]; ok {
			return iv
		}
	}
	for iv := range frames {
		return iv
	}
	return ""
}
