package main

import (
	"context"

	"go.uber.org/fx"

	"backtester/internal/modules/bootstrap"
	"backtester/internal/modules/config"
	"backtester/internal/modules/datasource"
	"backtester/internal/modules/health"
	"backtester/internal/modules/live"
)

func main() {
	fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		bootstrap.Module("live"),
		datasource.Module(),
		live.Module(),
		health.Module(),
	).Run()
}
