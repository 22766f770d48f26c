package models

import "math"

// IndicatorFrame: значения индикаторов на одном баре. NaN = не определено (прогрев).
type IndicatorFrame struct {
	RSI      float64 `json:"rsi"`
	EMAFast  float64 `json:"ema_fast"`
	EMASlow  float64 `json:"ema_slow"`
	MACDHist float64 `json:"macd_hist"`
	ADX      float64 `json:"adx"`
	ATR      float64 `json:"atr"`
	BBUpper  float64 `json:"bb_upper"`
	BBMid    float64 `json:"bb_mid"`
	BBLower  float64 `json:"bb_lower"`
}

// Defined: определены ли все входы сигнального правила.
func (f IndicatorFrame) Defined() bool {
	for _, v := range []float64{f.RSI, f.EMAFast, f.EMASlow, f.MACDHist, f.ADX, f.ATR} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// JSON не умеет NaN, поэтому наружу отдаём nil вместо неопределённых значений.
func (f IndicatorFrame) Export() map[string]*float64 {
	val := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	return map[string]*float64{
		"rsi":       val(f.RSI),
		"ema_fast":  val(f.EMAFast),
		"ema_slow":  val(f.EMASlow),
		"macd_hist": val(f.MACDHist),
		"adx":       val(f.ADX),
		"atr":       val(f.ATR),
		"bb_upper":  val(f.BBUpper),
		"bb_mid":    val(f.BBMid),
		"bb_lower":  val(f.BBLower),
	}
}
