package service

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"backtester/internal/models"
)

// BinanceSource: последние N закрытых свечей USDT-M фьючерсов.
type BinanceSource struct {
	client  *futures.Client
	limiter *rate.Limiter
	limit   int
	now     func() time.Time
}

func NewBinanceSource(apiKey, secretKey string, limit int) *BinanceSource {
	client := futures.NewClient(apiKey, secretKey)
	client.HTTPClient = &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	if limit <= 0 {
		limit = 200
	}
	return &BinanceSource{
		client: client,
		// 10 rps, burst 20
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		limit:   limit,
		now:     time.Now,
	}
}

func (s *BinanceSource) Bars(ctx context.Context, symbol, timeframe string) ([]models.Bar, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &models.DataError{Symbol: symbol, Timeframe: timeframe, Err: err}
	}

	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(s.limit + 1).
		Do(ctx)
	if err != nil {
		return nil, &models.DataError{Symbol: symbol, Timeframe: timeframe, Err: errors.Wrap(err, "klines")}
	}

	bars, err := klinesToBars(klines, s.now())
	if err != nil {
		return nil, &models.DataError{Symbol: symbol, Timeframe: timeframe, Err: err}
	}
	return bars, nil
}

// klinesToBars отбрасывает ещё не закрытую свечу.
func klinesToBars(klines []*futures.Kline, now time.Time) ([]models.Bar, error) {
	nowMs := now.UnixMilli()
	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		if k.CloseTime >= nowMs {
			continue
		}
		var b models.Bar
		b.Time = time.UnixMilli(k.OpenTime).UTC()
		for _, f := range []struct {
			dst *float64
			raw string
		}{{&b.Open, k.Open}, {&b.High, k.High}, {&b.Low, k.Low}, {&b.Close, k.Close}, {&b.Volume, k.Volume}} {
			v, err := strconv.ParseFloat(f.raw, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "kline %d", k.OpenTime)
			}
			*f.dst = v
		}
		bars = append(bars, b)
	}
	return models.NormalizeSeries(bars), nil
}
