package live

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"backtester/internal/modules/config"
	dssvc "backtester/internal/modules/datasource/service"
	"backtester/internal/modules/health"
	healthsvc "backtester/internal/modules/health/service"
	"backtester/internal/modules/live/service"
	"backtester/internal/notify"
	"backtester/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("live",
		fx.Provide(
			healthsvc.NewState,
			func(cfg *config.Config) *service.Hub {
				return service.NewHub(cfg.Live.WSToken)
			},
			func(h *service.Hub) health.WS { return h },
			NewTelegram,
			NewPerfLog,
			NewPoller,
		),
		fx.Invoke(RunPoller),
	)
}

// NewTelegram: nil без токена.
func NewTelegram(lc fx.Lifecycle, cfg *config.Config) (*notify.Telegram, error) {
	if cfg.Telegram.Token == "" {
		logger.Info("[LIVE] telegram token is empty, alerts disabled")
		return nil, nil
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		return nil, errors.Wrap(err, "telegram")
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return tg.Start(ctx) },
		OnStop: func(context.Context) error {
			cancel()
			tg.Stop()
			return nil
		},
	})
	return tg, nil
}

// NewPerfLog: nil, если live.perf_log пуст.
func NewPerfLog(lc fx.Lifecycle, cfg *config.Config) (*notify.PerfLog, error) {
	if cfg.Live.PerfLog == "" {
		return nil, nil
	}
	pl, err := notify.NewPerfLog(cfg.Live.PerfLog)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(pl.Close))
	return pl, nil
}

func NewPoller(
	cfg *config.Config,
	src *dssvc.BinanceSource,
	hub *service.Hub,
	tg *notify.Telegram,
	perf *notify.PerfLog,
	state *healthsvc.State,
) (*service.Poller, error) {
	profile, err := cfg.Profile(cfg.Live.Profile)
	if err != nil {
		return nil, err
	}
	if len(cfg.Live.Symbols) == 0 {
		return nil, errors.New("live.symbols is empty")
	}

	sinks := []service.Sink{notify.NewStdout(), hub}
	if tg != nil {
		sinks = append(sinks, tg)
	}
	if perf != nil {
		sinks = append(sinks, perf)
	}

	l := cfg.Live
	return service.NewPoller(src, profile, service.Options{
		Symbols:       l.Symbols,
		Timeframe:     l.Timeframe,
		HTFTimeframe:  l.HTFTimeframe,
		HTFDelay:      l.HTFDelay,
		CheckInterval: l.CheckInterval,
		FetchTimeout:  l.FetchTimeout,
		Balance:       l.Balance,
		Paper:         l.Paper,
		Trail:         l.Trail,
	}, state, sinks...), nil
}

// RunPoller крутит опрос до остановки приложения; в режиме once делает один цикл и гасит приложение.
func RunPoller(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, p *service.Poller, hub *service.Hub) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if cfg.Live.Once {
					p.Once(ctx)
					if err := sd.Shutdown(); err != nil {
						logger.Error("[LIVE] shutdown: %v", err)
					}
					return
				}
				p.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			hub.Close()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
