package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// eps защищает знаменатели в ADX.
const eps = 1e-10

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// rolling применяет fn к каждому полному окну длины p. Неполное окно или NaN внутри -> NaN.
func rolling(x []float64, p int, fn func(w []float64) float64) []float64 {
	out := nanSlice(len(x))
	if p <= 0 {
		return out
	}
	for i := p - 1; i < len(x); i++ {
		w := x[i-p+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = fn(w)
	}
	return out
}

// SMA: простое скользящее среднее.
func SMA(x []float64, p int) []float64 {
	return rolling(x, p, func(w []float64) float64 { return stat.Mean(w, nil) })
}

// RollingStd: выборочное (n-1) стандартное отклонение окна.
func RollingStd(x []float64, p int) []float64 {
	if p < 2 {
		return nanSlice(len(x))
	}
	return rolling(x, p, func(w []float64) float64 { return stat.StdDev(w, nil) })
}
