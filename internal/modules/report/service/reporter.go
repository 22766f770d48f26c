package service

import (
	"context"

	"backtester/internal/backtest"
	"backtester/pkg/logger"
)

// Reporter раскладывает исходы прогонов: JSON-файлы, опционально Postgres, сводка в лог.
type Reporter struct {
	json  *JSONWriter
	store *PgStore // nil: без базы
}

func NewReporter(json *JSONWriter, store *PgStore) *Reporter {
	return &Reporter{json: json, store: store}
}

// Publish возвращает число успешно записанных результатов. Ошибка записи одного не мешает остальным.
func (r *Reporter) Publish(ctx context.Context, outcomes []backtest.Outcome) int {
	written := 0
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		path, err := r.json.Write(o.Result)
		if err != nil {
			logger.Error("[BT] write %s/%s: %v", o.Result.Symbol, o.Result.Profile, err)
			continue
		}
		logger.Info("[BT] result saved to %s", path)
		written++

		if r.store != nil {
			id, err := r.store.Save(ctx, o.Result)
			if err != nil {
				logger.Error("[BT] %v", err)
				continue
			}
			logger.Info("[BT] %s/%s stored as run #%d", o.Result.Symbol, o.Result.Profile, id)
		}
	}
	LogSummary(outcomes)
	return written
}
