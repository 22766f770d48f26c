package datasource

import (
	"fmt"

	"go.uber.org/fx"

	"backtester/internal/backtest"
	"backtester/internal/modules/config"
	"backtester/internal/modules/datasource/service"
	"backtester/pkg/db"
)

func Module() fx.Option {
	return fx.Module("datasource",
		fx.Provide(
			NewBacktestSource,
			func(cfg *config.Config) *service.BinanceSource {
				return service.NewBinanceSource(cfg.Binance.APIKey, cfg.Binance.SecretKey, cfg.Live.Bars)
			},
		),
	)
}

// NewBacktestSource выбирает источник исторических баров по backtest.source.
func NewBacktestSource(cfg *config.Config, tx *db.PgTxManager, bn *service.BinanceSource) (backtest.Source, error) {
	switch cfg.Backtest.Source {
	case "csv", "":
		return service.NewCSVSource(cfg.Backtest.DataDir), nil
	case "pg":
		if tx == nil {
			return nil, fmt.Errorf("backtest.source=pg requires db_dsn")
		}
		return service.NewPgSource(tx), nil
	case "binance":
		// последние live.bars закрытых свечей с биржи
		return bn, nil
	default:
		return nil, fmt.Errorf("unknown backtest.source %q", cfg.Backtest.Source)
	}
}
