package models

import "time"

type ExitReason string

const (
	ExitStopLoss   ExitReason = "SL"
	ExitTakeProfit ExitReason = "TP"
)

// Position: открытая позиция. SL/TP фиксируются при входе и больше не меняются.
type Position struct {
	Direction  Direction `json:"type"`
	EntryIndex int       `json:"entry_idx"`
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"sl"`
	TakeProfit float64   `json:"tp"`
	Lot        float64   `json:"lot"`
}

// Trade: закрытая позиция.
type Trade struct {
	Position
	ExitIndex  int        `json:"exit_idx"`
	ExitTime   time.Time  `json:"exit_time"`
	ExitPrice  float64    `json:"exit_price"`
	ExitReason ExitReason `json:"reason"`
	PnL        float64    `json:"pnl"`
}
