package simulator

import (
	"math"

	"backtester/internal/models"
)

// Управление стопом для live-режима. В бэктесте уровни не двигаются.

// TrailConfig: пороги в единицах ATR.
type TrailConfig struct {
	BreakevenTriggerATR float64 `mapstructure:"breakeven_trigger_atr"`
	BreakevenOffset     float64 `mapstructure:"breakeven_offset"`
	TrailTriggerATR     float64 `mapstructure:"trail_trigger_atr"`
	TrailMultiplier     float64 `mapstructure:"trail_multiplier"`
}

func DefaultTrailConfig() TrailConfig {
	return TrailConfig{
		BreakevenTriggerATR: 1,
		TrailTriggerATR:     1,
		TrailMultiplier:     1.5,
	}
}

// StopAdvice: совет по переносу SL; Move=false значит оставить как есть.
type StopAdvice struct {
	NewSL  float64
	Move   bool
	Reason string
}

// RecomputeStop: стоп на расстоянии atr*mult от текущей цены.
func RecomputeStop(price, atr, mult float64, dir models.Direction) float64 {
	if dir == models.DirectionShort {
		return price + atr*mult
	}
	return price - atr*mult
}

// AdvanceStop: сначала безубыток, потом трейлинг. Стоп только подтягивается, никогда не отодвигается.
func AdvanceStop(pos models.Position, price, atr float64, cfg TrailConfig) StopAdvice {
	if atr <= 0 || math.IsNaN(atr) || math.IsNaN(price) {
		return StopAdvice{}
	}

	short := pos.Direction == models.DirectionShort
	profit := price - pos.EntryPrice
	if short {
		profit = -profit
	}
	tighter := func(a, b float64) bool {
		if short {
			return a < b
		}
		return a > b
	}

	best := StopAdvice{NewSL: pos.StopLoss}

	if cfg.BreakevenTriggerATR > 0 && profit >= cfg.BreakevenTriggerATR*atr {
		cand := pos.EntryPrice + cfg.BreakevenOffset
		if short {
			cand = pos.EntryPrice - cfg.BreakevenOffset
		}
		if tighter(cand, best.NewSL) {
			best = StopAdvice{NewSL: cand, Move: true, Reason: "breakeven"}
		}
	}

	if cfg.TrailMultiplier > 0 && profit >= cfg.TrailTriggerATR*atr {
		cand := RecomputeStop(price, atr, cfg.TrailMultiplier, pos.Direction)
		if tighter(cand, best.NewSL) {
			best = StopAdvice{NewSL: cand, Move: true, Reason: "trail"}
		}
	}

	if !best.Move {
		return StopAdvice{}
	}
	return best
}
