package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"backtester/internal/models"
	"backtester/pkg/db"
)

const selectBars = `
SELECT ts, open, high, low, close, volume
FROM bars
WHERE symbol = $1 AND timeframe = $2
ORDER BY ts`

// PgSource читает бары из таблицы bars(symbol, timeframe, ts, open, high, low, close, volume).
type PgSource struct {
	tx db.TxManager
}

func NewPgSource(tx db.TxManager) *PgSource {
	return &PgSource{tx: tx}
}

func (s *PgSource) Bars(ctx context.Context, symbol, timeframe string) ([]models.Bar, error) {
	var bars []models.Bar
	err := s.tx.RunReadOnly(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, selectBars, symbol, timeframe)
		if err != nil {
			return errors.Wrap(err, "query bars")
		}
		bars, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Bar, error) {
			var b models.Bar
			err := row.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
			b.Time = b.Time.UTC()
			return b, err
		})
		return errors.Wrap(err, "scan bars")
	})
	if err != nil {
		return nil, &models.DataError{Symbol: symbol, Timeframe: timeframe, Err: err}
	}
	return models.NormalizeSeries(bars), nil
}
