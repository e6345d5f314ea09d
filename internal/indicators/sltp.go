package indicators

// Direction is the trade side an SL/TP calculation is anchored to.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// StopTarget holds an ATR-derived stop-loss/take-profit pair.
type StopTarget struct {
	StopLoss    *float64
	TakeProfit  *float64
	RiskReward  float64
}

// CalcStopLossTakeProfit derives stop and target prices atrStopMult/
// atrTargetMult ATRs from entryPrice, on the side indicated by direction.
// Returns a zero-valued result with nil prices when entryPrice or atr is
// non-positive.
func CalcStopLossTakeProfit(entryPrice, atr float64, direction Direction, atrStopMult, atrTargetMult float64) StopTarget {
	if entryPrice <= 0 || atr <= 0 {
		return StopTarget{}
	}

	var stopLoss, takeProfit float64
	if direction == DirectionBuy {
		stopLoss = entryPrice - atrStopMult*atr
		takeProfit = entryPrice + atrTargetMult*atr
	} else {
		stopLoss = entryPrice + atrStopMult*atr
		takeProfit = entryPrice - atrTargetMult*atr
	}

	risk := abs(entryPrice - stopLoss)
	reward := abs(entryPrice - takeProfit)
	rr := 0.0
	if risk > 0 {
		rr = reward / risk
	}

	return StopTarget{StopLoss: &stopLoss, TakeProfit: &takeProfit, RiskReward: rr}
}
