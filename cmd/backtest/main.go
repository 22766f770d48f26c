package main

import (
	"context"

	"go.uber.org/fx"

	"backtester/internal/modules/bootstrap"
	"backtester/internal/modules/config"
	"backtester/internal/modules/datasource"
	"backtester/internal/modules/postgres"
	"backtester/internal/modules/report"
)

func main() {
	fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		bootstrap.Module("backtest"),
		postgres.Module(),
		datasource.Module(),
		report.Module(),
		bootstrap.BacktestModule(),
	).Run()
}
