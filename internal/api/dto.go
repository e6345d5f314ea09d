package api

import (
	"time"

	"github.com/aristath/sentinel/internal/marketdata"
	"github.com/aristath/sentinel/internal/store"
	"github.com/aristath/sentinel/internal/strategy"
)

// snapshotResponse is the wire shape for GET /api/v1/data/snapshot.
type snapshotResponse struct {
	GeneratedAt   time.Time          `json:"generated_at"`
	Markets       []marketDTO        `json:"markets"`
	Macro         macroDTO           `json:"macro"`
	DataFreshness map[string]string  `json:"data_freshness"`
}

type marketDTO struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	ChangePct24h float64 `json:"change_pct_24h"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	Volume24h    float64 `json:"volume_24h"`
}

type fearGreedDTO struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}

type etfFlowDTO struct {
	ValueUSD float64   `json:"value_usd"`
	Date     time.Time `json:"date"`
}

// macroDTO carries every field spec.md's snapshot contract names. Fields
// no wired collector produces (m2_growth_yoy, etf_flows, ahr999, wma200,
// mvrv_ratio, miners_profitable/total, mstr_mnav) are left at their zero
// value and omitted: an unconfigured source is never a hard failure.
type macroDTO struct {
	FedRate          *float64               `json:"fed_rate,omitempty"`
	Treasury10y      *float64               `json:"treasury_10y,omitempty"`
	DXY              *float64               `json:"dxy,omitempty"`
	M2GrowthYoY      *float64               `json:"m2_growth_yoy,omitempty"`
	FearGreed        *fearGreedDTO          `json:"fear_greed,omitempty"`
	StablecoinSupply *float64               `json:"stablecoin_supply_b,omitempty"`
	EtfFlows         map[string]etfFlowDTO  `json:"etf_flows,omitempty"`
	Hashrate         *float64               `json:"hashrate,omitempty"`
	HalvingDays      *float64               `json:"halving_days,omitempty"`
	AHR999           *float64               `json:"ahr999,omitempty"`
	WMA200           *float64               `json:"wma200,omitempty"`
	MVRVRatio        *float64               `json:"mvrv_ratio,omitempty"`
	MinersProfitable *float64               `json:"miners_profitable,omitempty"`
	MinersTotal      *float64               `json:"miners_total,omitempty"`
	MstrMNAV         *float64               `json:"mstr_mnav,omitempty"`
}

func marketFromSnapshot(s marketdata.Snapshot) marketDTO {
	dto := marketDTO{Symbol: s.Symbol, Price: s.CurrentPrice}
	if s.Ticker24h != nil {
		dto.ChangePct24h, _ = s.Ticker24h.ChangePct24h.Float64()
		dto.High24h, _ = s.Ticker24h.High24h.Float64()
		dto.Low24h, _ = s.Ticker24h.Low24h.Float64()
		dto.Volume24h, _ = s.Ticker24h.Volume24h.Float64()
	}
	return dto
}

func macroFromSnapshot(s marketdata.Snapshot) macroDTO {
	m := macroDTO{}
	if v, ok := s.MacroData["fed_funds_rate"]; ok {
		m.FedRate = ptr(v)
	}
	if v, ok := s.MacroData["treasury_10y"]; ok {
		m.Treasury10y = ptr(v)
	}
	if v, ok := s.MacroData["dxy"]; ok {
		m.DXY = ptr(v)
	}
	if v, ok := s.MacroData["m2_growth_yoy"]; ok {
		m.M2GrowthYoY = ptr(v)
	}
	if s.FearGreed != nil {
		m.FearGreed = &fearGreedDTO{Value: *s.FearGreed}
	}
	if v, ok := s.OnchainData["stablecoin_supply"]; ok {
		m.StablecoinSupply = ptr(v / 1e9) // USD -> billions of USD
	}
	if v, ok := s.OnchainData["network_hashrate"]; ok {
		m.Hashrate = ptr(v)
	}
	if v, ok := s.OnchainData["halving_blocks_left"]; ok {
		m.HalvingDays = ptr(v / 144) // 144 ten-minute blocks per day
	}
	return m
}

func ptr[T any](v T) *T { return &v }

// barDTO is the wire shape for a single K-line bar.
type barDTO struct {
	OpenTimeMs  int64   `json:"open_time_ms"`
	CloseTimeMs int64   `json:"close_time_ms"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
}

func barFromStore(b store.Bar) barDTO {
	open, _ := b.Open.Float64()
	high, _ := b.High.Float64()
	low, _ := b.Low.Float64()
	closeP, _ := b.Close.Float64()
	vol, _ := b.Volume.Float64()
	return barDTO{
		OpenTimeMs:  b.OpenTimeMs,
		CloseTimeMs: b.CloseTimeMs,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closeP,
		Volume:      vol,
	}
}

// signalWriteRequest is the body of POST /api/v1/data/signals.
type signalWriteRequest struct {
	AgentID       *string  `json:"agent_id,omitempty"`
	StrategyName  *string  `json:"strategy_name,omitempty"`
	Symbol        string   `json:"symbol"`
	Action        string   `json:"action"`
	Conviction    *float64 `json:"conviction,omitempty"`
	PriceAtSignal *float64 `json:"price_at_signal,omitempty"`
	Reason        *string  `json:"reason,omitempty"`
	RawAnalysis   *string  `json:"raw_analysis,omitempty"`
	StopLoss      *float64 `json:"stop_loss,omitempty"`
	TakeProfit    *float64 `json:"take_profit,omitempty"`
}

// signalDTO is the wire shape for a persisted AgentSignal.
type signalDTO struct {
	ID            int64    `json:"id"`
	AgentID       *string  `json:"agent_id,omitempty"`
	StrategyName  *string  `json:"strategy_name,omitempty"`
	Symbol        string   `json:"symbol"`
	Action        string   `json:"action"`
	Conviction    *float64 `json:"conviction,omitempty"`
	PriceAtSignal *float64 `json:"price_at_signal,omitempty"`
	Reason        *string  `json:"reason,omitempty"`
	StopLoss      *float64 `json:"stop_loss,omitempty"`
	TakeProfit    *float64 `json:"take_profit,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func signalFromStore(s store.AgentSignal) signalDTO {
	dto := signalDTO{
		ID:           s.ID,
		AgentID:      s.AgentID,
		StrategyName: s.StrategyName,
		Symbol:       s.Symbol,
		Action:       string(s.Action),
		Conviction:   s.Conviction,
		Reason:       s.Reason,
		CreatedAt:    s.CreatedAt,
	}
	if s.PriceAtSignal != nil {
		v, _ := s.PriceAtSignal.Float64()
		dto.PriceAtSignal = &v
	}
	if s.StopLoss != nil {
		v, _ := s.StopLoss.Float64()
		dto.StopLoss = &v
	}
	if s.TakeProfit != nil {
		v, _ := s.TakeProfit.Float64()
		dto.TakeProfit = &v
	}
	return dto
}

// analyzeRequest is the body of POST /api/v1/ta/analyze. BuyThreshold,
// SellThreshold, AtrStopMult and AtrTargetMult are optional overrides
// forwarded to strategy.Analyze's functional options; a zero value leaves
// the default grade-based action gate and default ATR multipliers in place.
type analyzeRequest struct {
	Symbol         string   `json:"symbol"`
	Timeframes     []string `json:"timeframes,omitempty"`
	KlinesLimit    int      `json:"klines_limit,omitempty"`
	BuyThreshold   float64  `json:"buy_threshold,omitempty"`
	SellThreshold  float64  `json:"sell_threshold,omitempty"`
	AtrStopMult    float64  `json:"atr_stop_mult,omitempty"`
	AtrTargetMult  float64  `json:"atr_target_mult,omitempty"`
}

// analyzeResponse is the wire shape for a completed TA analysis.
type analyzeResponse struct {
	Symbol      string               `json:"symbol"`
	Score       float64              `json:"score"` // 0-100, rescaled from the internal [-1,1] fused score
	Action      string               `json:"action"`
	Grade       string               `json:"grade"`
	PositionMul float64              `json:"position_size_multiplier"`
	Entry       float64              `json:"entry"`
	StopLoss    *float64             `json:"stop_loss,omitempty"`
	TakeProfit  *float64             `json:"take_profit,omitempty"`
	RiskReward  float64              `json:"risk_reward,omitempty"`
	Timeframes  []timeframeScoreDTO  `json:"timeframes"`
}

type timeframeScoreDTO struct {
	Interval string  `json:"interval"`
	Score    float64 `json:"score"` // 0-100
}

func analyzeResponseFromAnalysis(a strategy.Analysis) analyzeResponse {
	resp := analyzeResponse{
		Symbol:      a.Fused.Symbol,
		Score:       rescale100(a.Fused.FusedScore),
		Action:      string(a.Action),
		Grade:       string(a.Fused.Grade),
		PositionMul: a.Fused.PositionSizeMul,
		Entry:       a.Entry,
		StopLoss:    a.StopLoss,
		TakeProfit:  a.TakeProfit,
		RiskReward:  a.RiskReward,
	}
	for _, ts := range a.Fused.PerTimeframe {
		resp.Timeframes = append(resp.Timeframes, timeframeScoreDTO{
			Interval: string(ts.Interval),
			Score:    rescale100(ts.Score),
		})
	}
	return resp
}

// rescale100 maps the internal [-1,1] score space onto the 0-100 scale
// spec.md's TA Strategy contract documents (50 = neutral).
func rescale100(score float64) float64 {
	return (score + 1) * 50
}
