package strategy

import (
	"math"
	"time"

	"backtester/internal/indicators"
	"backtester/internal/models"
)

// HTFView: состояние старшего ТФ, видимое на конкретном баре базового.
type HTFView struct {
	Time    time.Time
	EMAFast float64
	EMASlow float64
	Bars    int // сколько баров старшего ТФ уже закрыто к этому моменту
}

// Confirmer накладывает вето по тренду старшего ТФ: BUY против даунтренда и SELL против аптренда гасятся в HOLD.
type Confirmer struct {
	emaFast int
	emaSlow int
	delay   time.Duration
}

// delay: сколько ждать после открытия бара старшего ТФ, прежде чем им пользоваться
// (обычно длительность самого ТФ, чтобы не подсматривать в незакрытую свечу).
func NewConfirmer(profile models.StrategyProfile, delay time.Duration) *Confirmer {
	return &Confirmer{
		emaFast: profile.MovingAverages.EMAFast,
		emaSlow: profile.MovingAverages.EMASlow,
		delay:   delay,
	}
}

// Frames считает EMA старшего ТФ тем же правилом, что и на базовом.
func (c *Confirmer) Frames(htfBars []models.Bar) []models.IndicatorFrame {
	closes := models.Closes(htfBars)
	fast := indicators.EMA(closes, c.emaFast)
	slow := indicators.EMA(closes, c.emaSlow)
	out := make([]models.IndicatorFrame, len(htfBars))
	for i := range out {
		out[i] = models.IndicatorFrame{EMAFast: fast[i], EMASlow: slow[i]}
	}
	return out
}

// Align: для каждого базового бара последний кадр старшего ТФ с time+delay <= base.time; nil если такого нет.
func (c *Confirmer) Align(base, htfBars []models.Bar, htfFrames []models.IndicatorFrame) []*HTFView {
	out := make([]*HTFView, len(base))
	j := -1
	for i, b := range base {
		for j+1 < len(htfBars) && !htfBars[j+1].Time.Add(c.delay).After(b.Time) {
			j++
		}
		if j < 0 {
			continue
		}
		out[i] = &HTFView{
			Time:    htfBars[j].Time,
			EMAFast: htfFrames[j].EMAFast,
			EMASlow: htfFrames[j].EMASlow,
			Bars:    j + 1,
		}
	}
	return out
}

// Confirm: если данных нет или их мало, сигнал проходит как есть.
func (c *Confirmer) Confirm(sig models.Signal, htf *HTFView) (models.Signal, Reason) {
	if htf == nil || htf.Bars < c.emaSlow || math.IsNaN(htf.EMAFast) || math.IsNaN(htf.EMASlow) {
		return sig, ""
	}
	switch sig {
	case models.SignalBuy:
		if htf.EMAFast <= htf.EMASlow {
			return models.SignalHold, ReasonHTFMismatch
		}
	case models.SignalSell:
		if htf.EMAFast >= htf.EMASlow {
			return models.SignalHold, ReasonHTFMismatch
		}
	}
	return sig, ""
}

// ConfirmSeries применяет вето ко всей серии; возвращает новый слайс и число погашенных сигналов.
func (c *Confirmer) ConfirmSeries(signals []models.Signal, base, htfBars []models.Bar) ([]models.Signal, int) {
	views := c.Align(base, htfBars, c.Frames(htfBars))
	out := make([]models.Signal, len(signals))
	vetoed := 0
	for i, s := range signals {
		got, reason := c.Confirm(s, views[i])
		if reason == ReasonHTFMismatch {
			vetoed++
		}
		out[i] = got
	}
	return out, vetoed
}
