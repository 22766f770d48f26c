package backtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"backtester/internal/models"
	"backtester/pkg/logger"
)

// Source: откуда брать бары. Реализации в modules/datasource.
type Source interface {
	Bars(ctx context.Context, symbol, timeframe string) ([]models.Bar, error)
}

type Task struct {
	Symbol       string
	Timeframe    string
	HTFTimeframe string
	Profile      models.StrategyProfile
}

type Outcome struct {
	Task   Task
	Result *models.Result
	Err    error // *models.RunError
}

// Runner гоняет независимые (symbol, profile) параллельно. Падение одного прогона не трогает остальные.
type Runner struct {
	src  Source
	opts Options
	name string

	// ограничитель параллелизма
	sem chan struct{}
}

func NewRunner(src Source, srcName string, opts Options, parallelism int) *Runner {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Runner{
		src:  src,
		opts: opts,
		name: srcName,
		sem:  make(chan struct{}, parallelism),
	}
}

// RunAll возвращает исходы в порядке задач, а не в порядке завершения.
func (r *Runner) RunAll(ctx context.Context, tasks []Task) []Outcome {
	out := make([]Outcome, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case r.sem <- struct{}{}:
			case <-ctx.Done():
				out[i] = Outcome{Task: task, Err: r.wrap(task, ctx.Err())}
				return
			}
			defer func() { <-r.sem }()

			res, err := r.runOne(ctx, task)
			if err != nil {
				logger.Error("[BT] %s/%s failed: %v", task.Symbol, task.Profile.Name, err)
				out[i] = Outcome{Task: task, Err: r.wrap(task, err)}
				return
			}
			logger.Info("[BT] %s/%s done: trades=%d pnl=%.2f",
				task.Symbol, task.Profile.Name, res.Metrics.TotalTrades, res.Metrics.TotalPnL)
			out[i] = Outcome{Task: task, Result: res}
		}()
	}

	wg.Wait()
	return out
}

func (r *Runner) wrap(task Task, err error) error {
	return &models.RunError{Symbol: task.Symbol, Profile: task.Profile.Name, Err: err}
}

func (r *Runner) runOne(ctx context.Context, task Task) (res *models.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// профиль проверяем до загрузки данных
	if err := task.Profile.Validate(); err != nil {
		return nil, err
	}

	bars, err := r.src.Bars(ctx, task.Symbol, task.Timeframe)
	if err != nil {
		return nil, err
	}

	job := Job{
		Symbol:    task.Symbol,
		Timeframe: task.Timeframe,
		Source:    fmt.Sprintf("%s:%s_%s", r.name, task.Symbol, task.Timeframe),
		Profile:   task.Profile,
		Bars:      bars,
	}

	if task.HTFTimeframe != "" {
		htf, err := r.src.Bars(ctx, task.Symbol, task.HTFTimeframe)
		if err != nil {
			// без старшего ТФ прогон идёт без вето
			logger.Warn("[BT] %s htf %s unavailable, no confirmation: %v", task.Symbol, task.HTFTimeframe, err)
		} else {
			job.HTFBars = htf
		}
	}

	return Run(ctx, job, r.opts)
}

// Tasks: декартово произведение символов и профилей.
func Tasks(symbols []string, profiles []models.StrategyProfile, timeframe, htfTimeframe string) []Task {
	return lo.FlatMap(symbols, func(sym string, _ int) []Task {
		return lo.Map(profiles, func(p models.StrategyProfile, _ int) Task {
			return Task{Symbol: sym, Timeframe: timeframe, HTFTimeframe: htfTimeframe, Profile: p}
		})
	})
}
