package simulator

import (
	"math"

	"github.com/shopspring/decimal"

	"backtester/internal/models"
)

// MinLot: нижняя граница размера позиции.
const MinLot = 0.01

// Levels считает SL/TP от цены входа и ATR. Для SHORT зеркально.
func Levels(dir models.Direction, entry, atr, slMult, tpMult float64) (sl, tp float64) {
	if dir == models.DirectionShort {
		return entry + atr*slMult, entry - atr*tpMult
	}
	return entry - atr*slMult, entry + atr*tpMult
}

// LotSize считает размер по денежному риску: balance*risk% / |entry-sl|, округление до 0.01.
// Нулевая дистанция стопа даёт минимальный лот.
func LotSize(balance, riskPct, entry, sl float64) float64 {
	dist := math.Abs(entry - sl)
	if dist <= 0 || math.IsNaN(dist) {
		return MinLot
	}
	raw := balance * riskPct / 100 / dist
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return MinLot
	}
	lot := decimal.NewFromFloat(raw).Round(2).InexactFloat64()
	return math.Max(lot, MinLot)
}

// PnL закрытой позиции.
func PnL(dir models.Direction, entry, exit, lot float64) float64 {
	if dir == models.DirectionShort {
		return (entry - exit) * lot
	}
	return (exit - entry) * lot
}

// CheckExit: пробит ли уровень закрытием бара. SL проверяется первым.
func CheckExit(p *models.Position, close float64) (float64, models.ExitReason, bool) {
	if p.Direction == models.DirectionShort {
		switch {
		case close >= p.StopLoss:
			return p.StopLoss, models.ExitStopLoss, true
		case close <= p.TakeProfit:
			return p.TakeProfit, models.ExitTakeProfit, true
		}
		return 0, "", false
	}
	switch {
	case close <= p.StopLoss:
		return p.StopLoss, models.ExitStopLoss, true
	case close >= p.TakeProfit:
		return p.TakeProfit, models.ExitTakeProfit, true
	}
	return 0, "", false
}
