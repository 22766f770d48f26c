package strategy

import "backtester/internal/models"

// Reason: почему правило вернуло именно этот сигнал.
type Reason string

const (
	ReasonSetup       Reason = "setup"
	ReasonUndefined   Reason = "undefined"
	ReasonADXLow      Reason = "adx_low"
	ReasonATRLow      Reason = "atr_low"
	ReasonNoSetup     Reason = "no_setup"
	ReasonHTFMismatch Reason = "htf_mismatch"
)

// Generator: чистое правило сигнала по одному кадру индикаторов. Состояния нет.
type Generator struct {
	profile models.StrategyProfile
}

func NewGenerator(profile models.StrategyProfile) *Generator {
	return &Generator{profile: profile}
}

func (g *Generator) Evaluate(f models.IndicatorFrame) (models.Signal, Reason) {
	if !f.Defined() {
		return models.SignalHold, ReasonUndefined
	}

	// фильтры силы тренда и волатильности режут всё остальное
	if f.ADX < g.profile.ADX.MinStrength {
		return models.SignalHold, ReasonADXLow
	}
	if f.ATR < g.profile.ATR.MinVolatilityFactor {
		return models.SignalHold, ReasonATRLow
	}

	if f.MACDHist > 0 && f.RSI <= g.profile.RSI.BuyThreshold && f.EMAFast > f.EMASlow {
		return models.SignalBuy, ReasonSetup
	}
	if f.MACDHist < 0 && f.RSI >= g.profile.RSI.SellThreshold && f.EMAFast < f.EMASlow {
		return models.SignalSell, ReasonSetup
	}
	return models.SignalHold, ReasonNoSetup
}

func (g *Generator) Signal(f models.IndicatorFrame) models.Signal {
	s, _ := g.Evaluate(f)
	return s
}

// Series: сигнал на каждый бар, индексы совпадают с frames.
func (g *Generator) Series(frames []models.IndicatorFrame) []models.Signal {
	out := make([]models.Signal, len(frames))
	for i, f := range frames {
		out[i] = g.Signal(f)
	}
	return out
}
