package bootstrap

import (
	"context"

	"go.uber.org/fx"

	"backtester/internal/modules/bootstrap/service"
	"backtester/internal/modules/config"
	"backtester/pkg/logger"
)

// Module: логгер и трейсер под именем сервиса. Подключается первым после config.
func Module(name string) fx.Option {
	return fx.Module("bootstrap",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			return service.InitObservability(lc, cfg, name)
		}),
	)
}

// BacktestModule прогоняет все задачи при старте и гасит приложение; код выхода 1, если что-то упало.
func BacktestModule() fx.Option {
	return fx.Module("backtest",
		fx.Provide(
			service.NewRunner,
			service.NewBatch,
		),
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, b *service.Batch) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						ok, failed, err := b.Run(ctx)
						code := 0
						switch {
						case err != nil:
							logger.Error("[BOOT] backtest: %v", err)
							code = 1
						case failed > 0:
							logger.Warn("[BOOT] backtest done: ok=%d failed=%d", ok, failed)
							code = 1
						default:
							logger.Info("[BOOT] backtest done: ok=%d", ok)
						}
						if err := sd.Shutdown(fx.ExitCode(code)); err != nil {
							logger.Error("[BOOT] shutdown: %v", err)
						}
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
