package models

import "time"

type Metrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgTradePnL   float64 `json:"avg_trade_pnl"`
	MaxWin        float64 `json:"max_win"`
	MaxLoss       float64 `json:"max_loss"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	FinalBalance  float64 `json:"final_balance"`
	ReturnPct     float64 `json:"return_pct"`
}

// Result: итог одного прогона (symbol, profile).
type Result struct {
	Symbol           string    `json:"symbol"`
	Profile          string    `json:"profile"`
	Source           string    `json:"source"`
	GeneratedAt      time.Time `json:"backtest_date"`
	Metrics          Metrics   `json:"metrics"`
	Trades           []Trade   `json:"trades"`
	TotalTradesCount int       `json:"total_trades_count"`

	// позиция, оставшаяся открытой на последнем баре; в метрики не входит
	OpenPosition *Position `json:"open_position,omitempty"`
	Equity       []float64 `json:"-"`
}
