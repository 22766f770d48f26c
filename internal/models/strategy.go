package models

type Signal string

const (
	SignalHold Signal = "HOLD"
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Direction возвращает сторону позиции для сигнала; ok=false для HOLD.
func (s Signal) Direction() (Direction, bool) {
	switch s {
	case SignalBuy:
		return DirectionLong, true
	case SignalSell:
		return DirectionShort, true
	default:
		return "", false
	}
}
