package service

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"backtester/internal/models"
	"backtester/pkg/db"
)

const insertRun = `
INSERT INTO backtest_runs (symbol, profile, source, backtest_date, metrics, trades, total_trades_count, open_position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

// PgStore сохраняет результаты в backtest_runs (metrics/trades как JSONB).
type PgStore struct {
	tx db.TxManager
}

func NewPgStore(tx db.TxManager) *PgStore {
	return &PgStore{tx: tx}
}

func (s *PgStore) Save(ctx context.Context, res *models.Result) (id int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.Save %s/%s: %w", res.Symbol, res.Profile, err)
		}
	}()

	metricsJSON, err := sonic.Marshal(res.Metrics)
	if err != nil {
		return 0, err
	}
	tradesJSON, err := sonic.Marshal(res.Trades)
	if err != nil {
		return 0, err
	}
	var openJSON []byte
	if res.OpenPosition != nil {
		if openJSON, err = sonic.Marshal(res.OpenPosition); err != nil {
			return 0, err
		}
	}

	err = s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctxTx, insertRun,
			res.Symbol, res.Profile, res.Source, res.GeneratedAt,
			metricsJSON, tradesJSON, res.TotalTradesCount, openJSON,
		).Scan(&id)
	})
	return id, err
}
