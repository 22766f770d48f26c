package indicators

import "backtester/internal/models"

// Engine считает все индикаторы профиля по всей серии разом.
type Engine struct {
	profile models.StrategyProfile
}

func NewEngine(profile models.StrategyProfile) *Engine {
	return &Engine{profile: profile}
}

// Compute возвращает кадры той же длины, что и bars, выровненные по индексу.
func (e *Engine) Compute(bars []models.Bar) []models.IndicatorFrame {
	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range bars {
		closes[i], highs[i], lows[i] = b.Close, b.High, b.Low
	}

	p := e.profile
	rsi := RSI(closes, p.RSI.Period)
	emaFast := EMA(closes, p.MovingAverages.EMAFast)
	emaSlow := EMA(closes, p.MovingAverages.EMASlow)
	hist := MACDHist(closes, p.MACD.FastPeriod, p.MACD.SlowPeriod, p.MACD.SignalPeriod)
	atr := ATR(highs, lows, closes, p.ATR.Period)
	adx := ADXProxy(highs, lows, atr, p.ADX.Period)
	upper, mid, lower := Bollinger(closes, p.Bollinger.Period, p.Bollinger.StdDev)

	frames := make([]models.IndicatorFrame, n)
	for i := range frames {
		frames[i] = models.IndicatorFrame{
			RSI:      rsi[i],
			EMAFast:  emaFast[i],
			EMASlow:  emaSlow[i],
			MACDHist: hist[i],
			ADX:      adx[i],
			ATR:      atr[i],
			BBUpper:  upper[i],
			BBMid:    mid[i],
			BBLower:  lower[i],
		}
	}
	return frames
}

// WarmupLength: первый индекс, на котором определены все входы сигнала.
func (e *Engine) WarmupLength() int {
	p := e.profile
	return max(p.RSI.Period, p.ATR.Period-1, p.ADX.Period)
}
