package backtest

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"backtester/internal/indicators"
	"backtester/internal/metrics"
	"backtester/internal/models"
	"backtester/internal/simulator"
	"backtester/internal/strategy"
	"backtester/pkg/logger"
	"backtester/pkg/tracing"
)

// Job описывает один прогон: инструмент, профиль и уже загруженные бары.
type Job struct {
	Symbol    string
	Timeframe string
	Source    string
	Profile   models.StrategyProfile
	Bars      []models.Bar

	// бары старшего ТФ; пусто: без подтверждения
	HTFBars []models.Bar
}

type Options struct {
	InitialBalance    float64
	EntryMode         simulator.EntryMode
	HTFDelay          time.Duration
	MaxReportedTrades int // 0: без ограничения

	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// Run: индикаторы, сигналы, симуляция и метрики по одной серии. Детерминирован при одинаковом входе.
func Run(ctx context.Context, job Job, opts Options) (*models.Result, error) {
	span, ctx := tracing.StartSpan(ctx, "backtest.Run", opentracing.Tags{
		"symbol":  job.Symbol,
		"profile": job.Profile.Name,
		"bars":    len(job.Bars),
	})
	defer span.Finish()

	// профиль проверяется до первого бара
	if err := job.Profile.Validate(); err != nil {
		return nil, err
	}
	if err := models.ValidateSeries(job.Bars); err != nil {
		return nil, &models.DataError{Symbol: job.Symbol, Timeframe: job.Timeframe, Err: err}
	}

	frames := stage(ctx, "indicators", func() []models.IndicatorFrame {
		return indicators.NewEngine(job.Profile).Compute(job.Bars)
	})
	signals := stage(ctx, "signals", func() []models.Signal {
		return strategy.NewGenerator(job.Profile).Series(frames)
	})

	if len(job.HTFBars) > 0 {
		if err := models.ValidateSeries(job.HTFBars); err != nil {
			// битый старший ТФ: прогон идёт без вето
			logger.Warn("[BT] %s/%s htf invalid, no confirmation: %v", job.Symbol, job.Profile.Name, err)
		} else {
			signals = confirm(ctx, job, opts, signals)
		}
	}

	simCfg := simulator.ConfigFromProfile(job.Profile, opts.InitialBalance, opts.EntryMode)
	out, err := stage2(ctx, "simulate", func() (simulator.Outcome, error) {
		return simulator.Run(simCfg, job.Bars, signals, frames)
	})
	if err != nil {
		return nil, err
	}

	m := stage(ctx, "metrics", func() models.Metrics {
		return metrics.Calculate(out.Trades, out.Equity, opts.InitialBalance)
	})

	trades := out.Trades
	if opts.MaxReportedTrades > 0 && len(trades) > opts.MaxReportedTrades {
		trades = trades[:opts.MaxReportedTrades]
	}
	if trades == nil {
		trades = []models.Trade{}
	}

	span.SetTag("trades", len(out.Trades))
	return &models.Result{
		Symbol:           job.Symbol,
		Profile:          job.Profile.Name,
		Source:           job.Source,
		GeneratedAt:      opts.now(),
		Metrics:          m,
		Trades:           trades,
		TotalTradesCount: len(out.Trades),
		OpenPosition:     out.OpenPosition,
		Equity:           out.Equity,
	}, nil
}

func confirm(ctx context.Context, job Job, opts Options, signals []models.Signal) []models.Signal {
	out, vetoed := stage2(ctx, "confirm", func() ([]models.Signal, int) {
		return strategy.NewConfirmer(job.Profile, opts.HTFDelay).ConfirmSeries(signals, job.Bars, job.HTFBars)
	})
	logger.Debug("[BT] %s/%s htf vetoed %d signals", job.Symbol, job.Profile.Name, vetoed)
	return out
}

func stage[T any](ctx context.Context, name string, fn func() T) T {
	span, _ := opentracing.StartSpanFromContext(ctx, "backtest."+name)
	defer span.Finish()
	return fn()
}

func stage2[A, B any](ctx context.Context, name string, fn func() (A, B)) (A, B) {
	span, _ := opentracing.StartSpanFromContext(ctx, "backtest."+name)
	defer span.Finish()
	return fn()
}
