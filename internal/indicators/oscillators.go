package indicators

import "math"

// RSI на простых скользящих средних прироста/падения (не Уайлдер).
// avg_loss == 0 -> 100. Первые period значений не определены.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	gain := nanSlice(n)
	loss := nanSlice(n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		gain[i] = math.Max(d, 0)
		loss[i] = math.Max(-d, 0)
	}
	avgGain := SMA(gain, period)
	avgLoss := SMA(loss, period)

	out := nanSlice(n)
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		if l == 0 {
			out[i] = 100
			continue
		}
		rs := g / l
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// TrueRange; для первого бара только high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		tr := highs[i] - lows[i]
		if i > 0 {
			pc := closes[i-1]
			tr = math.Max(tr, math.Max(math.Abs(highs[i]-pc), math.Abs(lows[i]-pc)))
		}
		out[i] = tr
	}
	return out
}

// ATR: простое скользящее среднее TR. Осознанно не сглаживание Уайлдера.
func ATR(highs, lows, closes []float64, period int) []float64 {
	return SMA(TrueRange(highs, lows, closes), period)
}

// ADXProxy: отношение направленного движения, а не канонический ADX:
// DI± = mean(dm±)/ATR, ADX = 100*|DI+ - DI-|/(DI+ + DI-).
func ADXProxy(highs, lows, atr []float64, period int) []float64 {
	n := len(highs)
	dmPlus := nanSlice(n)
	dmMinus := nanSlice(n)
	for i := 1; i < n; i++ {
		dmPlus[i] = math.Max(highs[i]-highs[i-1], 0)
		dmMinus[i] = math.Max(lows[i-1]-lows[i], 0)
	}
	meanPlus := SMA(dmPlus, period)
	meanMinus := SMA(dmMinus, period)

	out := nanSlice(n)
	for i := range out {
		if math.IsNaN(meanPlus[i]) || math.IsNaN(meanMinus[i]) || math.IsNaN(atr[i]) {
			continue
		}
		diPlus := meanPlus[i] / (atr[i] + eps)
		diMinus := meanMinus[i] / (atr[i] + eps)
		out[i] = 100 * math.Abs(diPlus-diMinus) / (diPlus + diMinus + eps)
	}
	return out
}

// Bollinger возвращает upper, mid, lower.
func Bollinger(closes []float64, period int, k float64) (upper, mid, lower []float64) {
	mid = SMA(closes, period)
	std := RollingStd(closes, period)
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))
	for i := range closes {
		upper[i] = mid[i] + k*std[i]
		lower[i] = mid[i] - k*std[i]
	}
	return upper, mid, lower
}
