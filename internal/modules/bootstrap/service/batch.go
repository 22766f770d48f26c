package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"backtester/internal/backtest"
	"backtester/internal/models"
	"backtester/internal/modules/config"
	report "backtester/internal/modules/report/service"
	"backtester/internal/simulator"
	"backtester/pkg/logger"
)

// Batch: все (symbol, profile) из backtest-секции конфига за один запуск.
type Batch struct {
	cfg      *config.Config
	runner   *backtest.Runner
	reporter *report.Reporter
}

func NewRunner(cfg *config.Config, src backtest.Source) *backtest.Runner {
	b := cfg.Backtest
	return backtest.NewRunner(src, b.Source, backtest.Options{
		InitialBalance:    b.InitialBalance,
		EntryMode:         simulator.EntryMode(b.EntryMode),
		HTFDelay:          b.HTFDelay,
		MaxReportedTrades: b.MaxReportedTrades,
		Now:               func() time.Time { return time.Now().UTC() },
	}, b.Parallelism)
}

func NewBatch(cfg *config.Config, runner *backtest.Runner, reporter *report.Reporter) *Batch {
	return &Batch{cfg: cfg, runner: runner, reporter: reporter}
}

// Tasks: при пустом списке профилей берутся все профили из файла.
func (b *Batch) Tasks() ([]backtest.Task, error) {
	names := b.cfg.Backtest.Profiles
	if len(names) == 0 {
		names = config.ProfileNames(b.cfg.Profiles)
	}
	profiles := make([]models.StrategyProfile, 0, len(names))
	for _, n := range names {
		p, err := b.cfg.Profile(n)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return backtest.Tasks(b.cfg.Backtest.Symbols, profiles, b.cfg.Backtest.Timeframe, b.cfg.Backtest.HTFTimeframe), nil
}

// Run возвращает число успешных и упавших прогонов.
func (b *Batch) Run(ctx context.Context) (ok, failed int, err error) {
	tasks, err := b.Tasks()
	if err != nil {
		return 0, 0, err
	}
	logger.Info("[BOOT] backtest: %d tasks, parallelism=%d", len(tasks), b.cfg.Backtest.Parallelism)

	outcomes := b.runner.RunAll(ctx, tasks)
	b.reporter.Publish(ctx, outcomes)

	failed = lo.CountBy(outcomes, func(o backtest.Outcome) bool { return o.Err != nil })
	return len(outcomes) - failed, failed, nil
}
