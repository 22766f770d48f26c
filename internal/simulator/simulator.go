package simulator

import (
	"fmt"
	"math"

	"backtester/internal/models"
)

type pendingEntry struct {
	dir models.Direction
	atr float64
}

// Simulator: последовательный проход по барам с одной позицией максимум.
// Не потокобезопасен: один экземпляр на один прогон.
type Simulator struct {
	cfg     Config
	balance float64
	pos     *models.Position
	pending *pendingEntry
	trades  []models.Trade
	equity  []float64
}

func New(cfg Config) *Simulator {
	if !cfg.Entry.Valid() {
		cfg.Entry = EntryOnClose
	}
	return &Simulator{
		cfg:     cfg,
		balance: cfg.InitialBalance,
	}
}

func (s *Simulator) State() State {
	switch {
	case s.pos == nil:
		return StateFlat
	case s.pos.Direction == models.DirectionShort:
		return StateOpenShort
	default:
		return StateOpenLong
	}
}

func (s *Simulator) Balance() float64 { return s.balance }

// Position: копия открытой позиции или nil.
func (s *Simulator) Position() *models.Position {
	if s.pos == nil {
		return nil
	}
	p := *s.pos
	return &p
}

func (s *Simulator) Trades() []models.Trade { return s.trades }
func (s *Simulator) Equity() []float64      { return s.equity }

// Step обрабатывает бар i: отложенный вход, выход, затем вход. Возвращает закрытую сделку, если была.
func (s *Simulator) Step(i int, bar models.Bar, sig models.Signal, atr float64) *models.Trade {
	// отложенный вход с прошлого бара исполняется по open
	if s.pending != nil {
		if s.pos == nil {
			s.open(i, bar, s.pending.dir, bar.Open, s.pending.atr)
		}
		s.pending = nil
	}

	var closed *models.Trade
	if s.pos != nil {
		if price, reason, ok := CheckExit(s.pos, bar.Close); ok {
			closed = s.close(i, bar, price, reason)
		}
	}

	// вход только из FLAT; после закрытия на этом же баре: можно
	if s.pos == nil {
		if dir, ok := sig.Direction(); ok && !math.IsNaN(atr) {
			if s.cfg.Entry == EntryNextOpen {
				s.pending = &pendingEntry{dir: dir, atr: atr}
			} else {
				s.open(i, bar, dir, bar.Close, atr)
			}
		}
	}

	s.equity = append(s.equity, s.balance)
	return closed
}

func (s *Simulator) open(i int, bar models.Bar, dir models.Direction, price, atr float64) {
	sl, tp := Levels(dir, price, atr, s.cfg.SLMultiplier, s.cfg.TPMultiplier)
	s.pos = &models.Position{
		Direction:  dir,
		EntryIndex: i,
		EntryTime:  bar.Time,
		EntryPrice: price,
		StopLoss:   sl,
		TakeProfit: tp,
		Lot:        LotSize(s.balance, s.cfg.RiskPercentage, price, sl),
	}
}

func (s *Simulator) close(i int, bar models.Bar, price float64, reason models.ExitReason) *models.Trade {
	p := *s.pos
	t := models.Trade{
		Position:   p,
		ExitIndex:  i,
		ExitTime:   bar.Time,
		ExitPrice:  price,
		ExitReason: reason,
		PnL:        PnL(p.Direction, p.EntryPrice, price, p.Lot),
	}
	s.balance += t.PnL
	s.trades = append(s.trades, t)
	s.pos = nil
	return &t
}

// Outcome: итог прогона симулятора.
type Outcome struct {
	Trades       []models.Trade
	Equity       []float64
	OpenPosition *models.Position
	FinalBalance float64
}

// Run прогоняет всю серию. Позиция, открытая на последнем баре, остаётся нереализованной.
func Run(cfg Config, bars []models.Bar, signals []models.Signal, frames []models.IndicatorFrame) (Outcome, error) {
	if len(signals) != len(bars) || len(frames) != len(bars) {
		return Outcome{}, fmt.Errorf("series length mismatch: bars=%d signals=%d frames=%d",
			len(bars), len(signals), len(frames))
	}
	sim := New(cfg)
	for i, b := range bars {
		sim.Step(i, b, signals[i], frames[i].ATR)
	}
	return Outcome{
		Trades:       sim.Trades(),
		Equity:       sim.Equity(),
		OpenPosition: sim.Position(),
		FinalBalance: sim.Balance(),
	}, nil
}
