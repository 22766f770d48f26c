package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"backtester/internal/modules/config"
	"backtester/pkg/db"
	"backtester/pkg/logger"
)

// Module даёт *db.PgTxManager; без db_dsn: nil, и потребители работают без базы.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					logger.Info("[DB] db_dsn is empty, postgres disabled")
					return nil, nil
				}
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					poolMaster.Close()
					return nil, fmt.Errorf("ping postgres: %w", err)
				}

				tm := db.NewPgTxManager(poolMaster)
				lc.Append(fx.StopHook(tm.Close))
				return tm, nil
			},
		),
	)
}
