package service

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"

	"backtester/internal/backtest"
	"backtester/internal/indicators"
	"backtester/internal/models"
	healthsvc "backtester/internal/modules/health/service"
	"backtester/internal/simulator"
	"backtester/internal/strategy"
	"backtester/pkg/logger"
)

type Options struct {
	Symbols       []string
	Timeframe     string
	HTFTimeframe  string // пусто: без вето старшего ТФ
	HTFDelay      time.Duration
	CheckInterval time.Duration
	FetchTimeout  time.Duration
	Balance       float64
	Paper         bool
	Trail         simulator.TrailConfig
}

// Poller делает периодический опрос: на каждом цикле по каждому символу считает сигнал последнего закрытого бара.
// Каждый цикл независим; упавший символ пропускается до следующего цикла.
type Poller struct {
	src     backtest.Source
	sinks   []Sink
	health  *healthsvc.State
	profile models.StrategyProfile
	opts    Options

	engine    *indicators.Engine
	gen       *strategy.Generator
	confirmer *strategy.Confirmer

	// бумажные позиции по символам, только при opts.Paper
	mu   sync.Mutex
	book map[string]*models.Position

	now func() time.Time
}

func NewPoller(src backtest.Source, profile models.StrategyProfile, opts Options, health *healthsvc.State, sinks ...Sink) *Poller {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	return &Poller{
		src:       src,
		sinks:     sinks,
		health:    health,
		profile:   profile,
		opts:      opts,
		engine:    indicators.NewEngine(profile),
		gen:       strategy.NewGenerator(profile),
		confirmer: strategy.NewConfirmer(profile, opts.HTFDelay),
		book:      make(map[string]*models.Position),
		now:       time.Now,
	}
}

// Run: первый цикл сразу, дальше по тикеру до отмены ctx.
func (p *Poller) Run(ctx context.Context) {
	logger.Info("[LIVE] start: symbols=%v tf=%s every %s", p.opts.Symbols, p.opts.Timeframe, p.opts.CheckInterval)
	p.Cycle(ctx)

	ticker := time.NewTicker(p.opts.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("[LIVE] stopped")
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Once: ровно один цикл.
func (p *Poller) Once(ctx context.Context) []models.Decision {
	return p.Cycle(ctx)
}

// Cycle обходит символы последовательно и возвращает принятые решения.
func (p *Poller) Cycle(ctx context.Context) []models.Decision {
	var (
		out    []models.Decision
		failed int
	)
	for _, sym := range p.opts.Symbols {
		if ctx.Err() != nil {
			break
		}
		d, err := p.decide(ctx, sym)
		if err != nil {
			failed++
			logger.Warn("[LIVE] %s skipped: %v", sym, err)
			continue
		}
		out = append(out, d)
		p.publish(ctx, d)
	}

	if p.health != nil {
		p.health.MarkCycle(p.now(), failed)
	}
	actionable := lo.CountBy(out, func(d models.Decision) bool { return d.Actionable() })
	logger.Info("[LIVE] cycle done: decisions=%d actionable=%d failed=%d", len(out), actionable, failed)
	return out
}

func (p *Poller) fetch(ctx context.Context, symbol, tf string) ([]models.Bar, error) {
	fctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()
	bars, err := p.src.Bars(fctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateSeries(bars); err != nil {
		return nil, &models.DataError{Symbol: symbol, Timeframe: tf, Err: err}
	}
	return bars, nil
}

func (p *Poller) decide(ctx context.Context, symbol string) (models.Decision, error) {
	bars, err := p.fetch(ctx, symbol, p.opts.Timeframe)
	if err != nil {
		return models.Decision{}, err
	}

	frames := p.engine.Compute(bars)
	i := len(bars) - 1
	last, frame := bars[i], frames[i]

	sig, reason := p.gen.Evaluate(frame)
	if sig != models.SignalHold && p.opts.HTFTimeframe != "" {
		htf, err := p.fetch(ctx, symbol, p.opts.HTFTimeframe)
		if err != nil {
			// без старшего ТФ вето не применяем
			logger.Warn("[LIVE] %s htf %s unavailable, no veto: %v", symbol, p.opts.HTFTimeframe, err)
		} else {
			views := p.confirmer.Align(bars[i:], htf, p.confirmer.Frames(htf))
			if got, r := p.confirmer.Confirm(sig, views[0]); r != "" {
				sig, reason = got, r
			}
		}
	}

	d := models.Decision{
		Symbol:     symbol,
		Profile:    p.profile.Name,
		Timeframe:  p.opts.Timeframe,
		Time:       last.Time,
		Signal:     sig,
		Reason:     string(reason),
		Price:      last.Close,
		Indicators: frame.Export(),
	}
	if dir, ok := sig.Direction(); ok {
		d.StopLoss, d.TakeProfit = simulator.Levels(dir, last.Close, frame.ATR,
			p.profile.ATRSLMultiplier, p.profile.ATRTPMultiplier)
		d.Lot = simulator.LotSize(p.opts.Balance, p.profile.RiskPercentage, last.Close, d.StopLoss)
	}

	if p.opts.Paper {
		p.paper(&d, i, frame.ATR)
	}
	return d, nil
}

// paper ведёт бумажную позицию по тем же правилам выхода, что и симулятор, и советует перенос стопа.
func (p *Poller) paper(d *models.Decision, idx int, atr float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pos, ok := p.book[d.Symbol]; ok {
		if price, why, hit := simulator.CheckExit(pos, d.Price); hit {
			pnl := simulator.PnL(pos.Direction, pos.EntryPrice, price, pos.Lot)
			logger.Info("[LIVE] %s paper %s closed by %s at %.4f pnl=%.2f", d.Symbol, pos.Direction, why, price, pnl)
			delete(p.book, d.Symbol)
		} else {
			if adv := simulator.AdvanceStop(*pos, d.Price, atr, p.opts.Trail); adv.Move {
				logger.Info("[LIVE] %s paper stop %.4f -> %.4f (%s)", d.Symbol, pos.StopLoss, adv.NewSL, adv.Reason)
				pos.StopLoss = adv.NewSL
				d.SuggestedStop = adv.NewSL
			}
			cp := *pos
			d.OpenPosition = &cp
			return
		}
	}

	dir, ok := d.Signal.Direction()
	if !ok {
		return
	}
	pos := &models.Position{
		Direction:  dir,
		EntryIndex: idx,
		EntryTime:  d.Time,
		EntryPrice: d.Price,
		StopLoss:   d.StopLoss,
		TakeProfit: d.TakeProfit,
		Lot:        d.Lot,
	}
	p.book[d.Symbol] = pos
	cp := *pos
	d.OpenPosition = &cp
}

func (p *Poller) publish(ctx context.Context, d models.Decision) {
	for _, s := range p.sinks {
		if err := s.Publish(ctx, d); err != nil {
			logger.Warn("[LIVE] sink %s: %v", s.Name(), err)
		}
	}
}
