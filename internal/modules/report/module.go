package report

import (
	"go.uber.org/fx"

	"backtester/internal/modules/config"
	"backtester/internal/modules/report/service"
	"backtester/pkg/db"
)

func Module() fx.Option {
	return fx.Module("report",
		fx.Provide(
			func(cfg *config.Config) *service.JSONWriter {
				return service.NewJSONWriter(cfg.Backtest.OutDir, cfg.Backtest.RoundPlaces)
			},
			func(cfg *config.Config, tx *db.PgTxManager) *service.PgStore {
				if !cfg.Backtest.StoreResults || tx == nil {
					return nil
				}
				return service.NewPgStore(tx)
			},
			service.NewReporter,
		),
	)
}
