package indicators

import "math"

// emaState: инкрементальная EMA со span=period и alpha=2/(period+1).
// Первое значение берётся как есть, без bias-коррекции.
type emaState struct {
	period int
	alpha  float64
	value  float64
	count  int
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

func (e *emaState) Update(price float64) {
	if e.count == 0 {
		e.value = price
		e.count = 1
		return
	}
	e.value = e.alpha*price + (1-e.alpha)*e.value
	e.count++
}

// Ready: накоплено хотя бы period значений.
func (e *emaState) Ready() bool    { return e.count >= e.period }
func (e *emaState) Value() float64 { return e.value }

// EMA по всей серии. Ведущие NaN пропускаются, до первого значения выход NaN.
func EMA(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	st := newEMA(span)
	for i, v := range x {
		if math.IsNaN(v) {
			if st.count == 0 {
				out[i] = math.NaN()
			} else {
				out[i] = st.Value()
			}
			continue
		}
		st.Update(v)
		out[i] = st.Value()
	}
	return out
}

// MACDHist = (EMA(fast) - EMA(slow)) - EMA(signal) от линии MACD.
func MACDHist(closes []float64, fast, slow, signal int) []float64 {
	ef := EMA(closes, fast)
	es := EMA(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = ef[i] - es[i]
	}
	sig := EMA(line, signal)
	hist := make([]float64, len(closes))
	for i := range line {
		hist[i] = line[i] - sig[i]
	}
	return hist
}
