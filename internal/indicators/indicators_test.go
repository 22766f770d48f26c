package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/models"
)

func testProfile() models.StrategyProfile {
	return models.StrategyProfile{
		Name:            "test",
		RSI:             models.RSIParams{Period: 14, BuyThreshold: 40, SellThreshold: 60},
		MACD:            models.MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		MovingAverages:  models.MovingAverageParams{EMAFast: 9, EMASlow: 21},
		ADX:             models.ADXParams{Period: 14, MinStrength: 20},
		ATR:             models.ATRParams{Period: 14, MinVolatilityFactor: 0.1},
		Bollinger:       models.BollingerParams{Period: 20, StdDev: 2},
		ATRSLMultiplier: 2,
		ATRTPMultiplier: 4,
		RiskPercentage:  1,
	}
}

func mkBars(closes ...float64) []models.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return bars
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	got := EMA([]float64{1, 2, 3}, 3)
	assert.InDeltaSlice(t, []float64{1, 1.5, 2.25}, got, 1e-12)
}

func TestEMA_LeadingNaN(t *testing.T) {
	got := EMA([]float64{math.NaN(), 4, 4}, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 4.0, got[1])
	assert.Equal(t, 4.0, got[2])
}

func TestSMA_WarmupAndNaNWindow(t *testing.T) {
	got := SMA([]float64{1, 2, 3, math.NaN(), 5, 6}, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 1.5, got[1])
	assert.Equal(t, 2.5, got[2])
	assert.True(t, math.IsNaN(got[3]))
	assert.True(t, math.IsNaN(got[4]))
	assert.Equal(t, 5.5, got[5])
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{"only gains", []float64{1, 2, 3, 4}, 100},
		{"only losses", []float64{4, 3, 2, 1}, 0},
		{"flat", []float64{5, 5, 5, 5}, 100},
		{"balanced", []float64{1, 2, 1, 2}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RSI(tt.closes, 2)
			assert.True(t, math.IsNaN(got[0]))
			assert.True(t, math.IsNaN(got[1]))
			assert.InDelta(t, tt.want, got[3], 1e-9)
		})
	}
}

func TestRSI_Bounded(t *testing.T) {
	closes := []float64{10, 11, 10.5, 12, 11, 13, 12.5, 12, 14, 13.2, 15, 14.1}
	for i, v := range RSI(closes, 3) {
		if math.IsNaN(v) {
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0, "i=%d", i)
		assert.LessOrEqual(t, v, 100.0, "i=%d", i)
	}
}

func TestATR_FirstTrueRangeIsHighLow(t *testing.T) {
	highs := []float64{11, 12, 13}
	lows := []float64{9, 10, 11}
	closes := []float64{10, 11, 12}

	tr := TrueRange(highs, lows, closes)
	assert.Equal(t, []float64{2, 2, 2}, tr)

	atr := ATR(highs, lows, closes, 2)
	assert.True(t, math.IsNaN(atr[0]))
	assert.Equal(t, 2.0, atr[1])
	assert.Equal(t, 2.0, atr[2])
}

func TestTrueRange_Gap(t *testing.T) {
	tr := TrueRange([]float64{10, 20}, []float64{9, 19}, []float64{9.5, 19.5})
	assert.Equal(t, 10.5, tr[1])
}

func TestADXProxy_StrictTrend(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := mkBars(closes...)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i], lows[i] = b.High, b.Low
	}
	atr := ATR(highs, lows, closes, 3)
	adx := ADXProxy(highs, lows, atr, 3)

	assert.True(t, math.IsNaN(adx[2]))
	assert.InDelta(t, 100, adx[3], 1e-6)
	assert.InDelta(t, 100, adx[19], 1e-6)
}

func TestADXProxy_FlatMarketIsZero(t *testing.T) {
	bars := mkBars(5, 5, 5, 5, 5, 5)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := models.Closes(bars)
	for i, b := range bars {
		highs[i], lows[i] = b.High, b.Low
	}
	adx := ADXProxy(highs, lows, ATR(highs, lows, closes, 2), 2)
	assert.Equal(t, 0.0, adx[5])
}

func TestBollinger_SampleDeviation(t *testing.T) {
	upper, mid, lower := Bollinger([]float64{1, 2, 3}, 3, 2)
	assert.True(t, math.IsNaN(mid[1]))
	assert.InDelta(t, 2.0, mid[2], 1e-12)
	assert.InDelta(t, 4.0, upper[2], 1e-12)
	assert.InDelta(t, 0.0, lower[2], 1e-12)
}

func TestEngine_ComputeAlignedAndWarmup(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/4)
	}
	bars := mkBars(closes...)
	eng := NewEngine(testProfile())

	frames := eng.Compute(bars)
	require.Len(t, frames, len(bars))

	warm := eng.WarmupLength()
	assert.Equal(t, 14, warm)
	for i := 0; i < warm; i++ {
		assert.False(t, frames[i].Defined(), "i=%d", i)
	}
	for i := warm; i < len(frames); i++ {
		assert.True(t, frames[i].Defined(), "i=%d", i)
	}

	// EMA без окна определена с первого бара
	assert.Equal(t, closes[0], frames[0].EMAFast)
	assert.Equal(t, 0.0, frames[0].MACDHist)
	assert.True(t, math.IsNaN(frames[18].BBMid))
	assert.False(t, math.IsNaN(frames[19].BBMid))
}

func TestEngine_WarmupFollowsLongestWindow(t *testing.T) {
	p := testProfile()
	p.ATR.Period = 30
	assert.Equal(t, 29, NewEngine(p).WarmupLength())

	p.ADX.Period = 40
	assert.Equal(t, 40, NewEngine(p).WarmupLength())
}

func TestEngine_Deterministic(t *testing.T) {
	bars := mkBars(1, 3, 2, 5, 4, 6, 8, 7, 9, 12, 10, 11, 13, 15, 14, 16, 18, 17)
	eng := NewEngine(testProfile())
	a := eng.Compute(bars)
	b := eng.Compute(bars)
	for i := range a {
		assert.Equal(t, a[i].Export(), b[i].Export())
	}
}
