package metrics

import (
	"math"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/models"
)

func trades(pnls ...float64) []models.Trade {
	out := make([]models.Trade, len(pnls))
	for i, p := range pnls {
		out[i] = models.Trade{PnL: p}
	}
	return out
}

func TestCalculate_NoTrades(t *testing.T) {
	m := Calculate(nil, []float64{1000, 1000, 1000}, 1000)
	assert.Equal(t, models.Metrics{FinalBalance: 1000}, m)

	m = Calculate(nil, nil, 500)
	assert.Equal(t, 500.0, m.FinalBalance)
	assert.Zero(t, m.WinRate)
}

func TestCalculate_Counts(t *testing.T) {
	equity := []float64{1000, 1100, 1100, 1050, 1050, 1080}
	tr := trades(100, -50, 0, 30)
	m := Calculate(tr, equity, 1000)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.Equal(t, 50.0, m.WinRate)
	assert.InDelta(t, 80, m.TotalPnL, 1e-9)
	assert.InDelta(t, 20, m.AvgTradePnL, 1e-9)
	wins := lo.SumBy(tr, func(x models.Trade) float64 { return max(x.PnL, 0) })
	losses := lo.SumBy(tr, func(x models.Trade) float64 { return min(x.PnL, 0) })
	assert.InDelta(t, m.TotalPnL, wins+losses, 1e-9)
	assert.Equal(t, 100.0, m.MaxWin)
	assert.Equal(t, -50.0, m.MaxLoss)
	assert.Equal(t, 1080.0, m.FinalBalance)
	assert.InDelta(t, 8, m.ReturnPct, 1e-9)
	assert.InDelta(t, -50.0/1100*100, m.MaxDrawdown, 1e-9)
}

func TestCalculate_OnlyLosses(t *testing.T) {
	m := Calculate(trades(-10, -30), []float64{100, 90, 60}, 100)
	assert.Zero(t, m.MaxWin)
	assert.Equal(t, -30.0, m.MaxLoss)
	assert.Zero(t, m.WinRate)
	assert.InDelta(t, -40, m.ReturnPct, 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"monotonic", []float64{1, 2, 3, 3, 4}, 0},
		{"running peak not global", []float64{100, 80, 200, 190}, -20},
		{"recovery", []float64{100, 50, 100}, -50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.equity)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.LessOrEqual(t, got, 0.0)
		})
	}
}

func TestSharpe(t *testing.T) {
	assert.Zero(t, Sharpe(nil))
	assert.Zero(t, Sharpe([]float64{100}))
	assert.Zero(t, Sharpe([]float64{100, 100, 100}))

	eq := []float64{100, 110, 99}
	r := Returns(eq)
	require.Len(t, r, 2)
	mean := (r[0] + r[1]) / 2
	std := math.Sqrt(((r[0]-mean)*(r[0]-mean) + (r[1]-mean)*(r[1]-mean)) / 2)
	assert.InDelta(t, mean/(std+1e-10)*math.Sqrt(252), Sharpe(eq), 1e-9)
}

func TestRound(t *testing.T) {
	m := Round(models.Metrics{
		TotalTrades:  3,
		WinRate:      66.666666,
		TotalPnL:     12.345,
		MaxLoss:      -1.005,
		FinalBalance: 10012.344999,
	}, 2)
	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 66.67, m.WinRate)
	assert.Equal(t, 12.35, m.TotalPnL)
	assert.Equal(t, -1.01, m.MaxLoss)
	assert.Equal(t, 10012.34, m.FinalBalance)
}
