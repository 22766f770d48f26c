package simulator

import "backtester/internal/models"

type State int

const (
	StateFlat State = iota
	StateOpenLong
	StateOpenShort
)

func (s State) String() string {
	switch s {
	case StateOpenLong:
		return "OPEN_LONG"
	case StateOpenShort:
		return "OPEN_SHORT"
	default:
		return "FLAT"
	}
}

// EntryMode: по какой цене исполняется вход по сигналу бара i.
type EntryMode string

const (
	// EntryOnClose: по close того же бара, на котором посчитан сигнал.
	EntryOnClose EntryMode = "close"
	// EntryNextOpen: по open бара i+1 с ATR бара i; без подглядывания в close сигнального бара.
	EntryNextOpen EntryMode = "next_open"
)

func (m EntryMode) Valid() bool { return m == EntryOnClose || m == EntryNextOpen }

type Config struct {
	InitialBalance float64
	SLMultiplier   float64
	TPMultiplier   float64
	RiskPercentage float64
	Entry          EntryMode
}

func ConfigFromProfile(p models.StrategyProfile, initialBalance float64, mode EntryMode) Config {
	if !mode.Valid() {
		mode = EntryOnClose
	}
	return Config{
		InitialBalance: initialBalance,
		SLMultiplier:   p.ATRSLMultiplier,
		TPMultiplier:   p.ATRTPMultiplier,
		RiskPercentage: p.RiskPercentage,
		Entry:          mode,
	}
}
