package service

import (
	"context"

	"go.uber.org/fx"

	"backtester/internal/modules/config"
	"backtester/pkg/logger"
	"backtester/pkg/tracing"
)

// InitObservability поднимает zap и jaeger под именем сервиса; трейсер закрывается на остановке.
func InitObservability(lc fx.Lifecycle, cfg *config.Config, name string) error {
	logger.SetServiceName(name)
	tracing.SetServiceName(name)
	if err := logger.Init(cfg.Log.Level); err != nil {
		return err
	}

	_, closeTracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			logger.Sync()
			return nil
		},
	})
	return nil
}
