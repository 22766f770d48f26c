package metrics

import (
	"math"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"backtester/internal/models"
)

const (
	// торговых дней в году для годового Sharpe
	periodsPerYear = 252
	sharpeEps      = 1e-10
)

// Calculate сводит сделки и кривую баланса в метрики. Сделки с pnl == 0 входят только в total.
func Calculate(trades []models.Trade, equity []float64, initialBalance float64) models.Metrics {
	final := initialBalance
	if len(equity) > 0 {
		final = equity[len(equity)-1]
	}
	if len(trades) == 0 {
		return models.Metrics{FinalBalance: initialBalance}
	}

	pnl := func(t models.Trade) float64 { return t.PnL }
	winning := lo.Filter(trades, func(t models.Trade, _ int) bool { return t.PnL > 0 })
	losing := lo.Filter(trades, func(t models.Trade, _ int) bool { return t.PnL < 0 })
	total := lo.SumBy(trades, pnl)

	m := models.Metrics{
		TotalTrades:   len(trades),
		WinningTrades: len(winning),
		LosingTrades:  len(losing),
		WinRate:       float64(len(winning)) / float64(len(trades)) * 100,
		TotalPnL:      total,
		AvgTradePnL:   total / float64(len(trades)),
		SharpeRatio:   Sharpe(equity),
		MaxDrawdown:   MaxDrawdown(equity),
		FinalBalance:  final,
	}
	if len(winning) > 0 {
		m.MaxWin = lo.MaxBy(winning, func(a, b models.Trade) bool { return a.PnL > b.PnL }).PnL
	}
	if len(losing) > 0 {
		m.MaxLoss = lo.MinBy(losing, func(a, b models.Trade) bool { return a.PnL < b.PnL }).PnL
	}
	if initialBalance != 0 {
		m.ReturnPct = (final - initialBalance) / initialBalance * 100
	}
	return m
}

// MaxDrawdown: худшая просадка от бегущего максимума, в процентах; всегда <= 0.
func MaxDrawdown(equity []float64) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, v := range equity {
		peak = math.Max(peak, v)
		if peak <= 0 {
			continue
		}
		worst = math.Min(worst, (v-peak)/peak*100)
	}
	return worst
}

// Returns: простые доходности соседних точек кривой.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, equity[i]/prev-1)
	}
	return out
}

// Sharpe: mean/popstd * sqrt(252) по подневным доходностям; 0 для кривой короче двух точек.
func Sharpe(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(Returns(equity), nil)
	return mean / (std + sharpeEps) * math.Sqrt(periodsPerYear)
}

// Round округляет денежные и процентные поля для отчёта (половина от нуля).
func Round(m models.Metrics, places int32) models.Metrics {
	r := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v
		}
		return decimal.NewFromFloat(v).Round(places).InexactFloat64()
	}
	m.WinRate = r(m.WinRate)
	m.TotalPnL = r(m.TotalPnL)
	m.AvgTradePnL = r(m.AvgTradePnL)
	m.MaxWin = r(m.MaxWin)
	m.MaxLoss = r(m.MaxLoss)
	m.SharpeRatio = r(m.SharpeRatio)
	m.MaxDrawdown = r(m.MaxDrawdown)
	m.FinalBalance = r(m.FinalBalance)
	m.ReturnPct = r(m.ReturnPct)
	return m
}
