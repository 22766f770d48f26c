package models

import "time"

// Decision: то, что live-цикл отдаёт наружу коллаборатору, который ставит ордера.
// Для HOLD уровни и лот нулевые.
type Decision struct {
	Symbol     string              `json:"symbol"`
	Profile    string              `json:"profile"`
	Timeframe  string              `json:"timeframe"`
	Time       time.Time           `json:"time"`
	Signal     Signal              `json:"signal"`
	Reason     string              `json:"reason"`
	Price      float64             `json:"price"`
	StopLoss   float64             `json:"stop_loss"`
	TakeProfit float64             `json:"take_profit"`
	Lot        float64             `json:"lot"`
	Indicators map[string]*float64 `json:"indicators"`

	// бумажная позиция по символу и совет по её стопу, если ведётся учёт
	OpenPosition  *Position `json:"open_position,omitempty"`
	SuggestedStop float64   `json:"suggested_stop,omitempty"`
}

func (d Decision) Actionable() bool { return d.Signal == SignalBuy || d.Signal == SignalSell }
