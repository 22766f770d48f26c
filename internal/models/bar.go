package models

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrEmptySeries     = errors.New("empty bar series")
	ErrUnorderedSeries = errors.New("bar timestamps must be strictly increasing")
)

// Bar: одна OHLC свеча.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ValidateSeries проверяет инвариант серии: не пустая, время строго растёт.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return ErrUnorderedSeries
		}
	}
	return nil
}

// NormalizeSeries сортирует по времени и выкидывает дубли (побеждает последняя запись).
func NormalizeSeries(bars []Bar) []Bar {
	out := make([]Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	res := out[:0]
	for _, b := range out {
		if n := len(res); n > 0 && res[n-1].Time.Equal(b.Time) {
			res[n-1] = b
			continue
		}
		res = append(res, b)
	}
	return res
}

func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
