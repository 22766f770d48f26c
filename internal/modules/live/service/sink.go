package service

import (
	"context"

	"backtester/internal/models"
)

// Sink: получатель решений live-цикла (алерты, роутинг ордеров, дашборд).
type Sink interface {
	Name() string
	Publish(ctx context.Context, d models.Decision) error
}
