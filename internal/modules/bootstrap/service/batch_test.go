package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/models"
	"backtester/internal/modules/config"
	report "backtester/internal/modules/report/service"
)

type memSource map[string][]models.Bar

func (m memSource) Bars(_ context.Context, symbol, tf string) ([]models.Bar, error) {
	bars, ok := m[symbol+"_"+tf]
	if !ok {
		return nil, &models.DataError{Symbol: symbol, Timeframe: tf, Err: errors.New("no file")}
	}
	return bars, nil
}

func profile(name string) models.StrategyProfile {
	return models.StrategyProfile{
		Name:            name,
		RSI:             models.RSIParams{Period: 14, BuyThreshold: 40, SellThreshold: 60},
		MACD:            models.MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		MovingAverages:  models.MovingAverageParams{EMAFast: 9, EMASlow: 21},
		ADX:             models.ADXParams{Period: 14, MinStrength: 20},
		ATR:             models.ATRParams{Period: 14},
		Bollinger:       models.BollingerParams{Period: 20, StdDev: 2},
		ATRSLMultiplier: 2,
		ATRTPMultiplier: 4,
		RiskPercentage:  1,
	}
}

func flat(n int) []models.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Time: t0.Add(time.Duration(i) * time.Hour), Open: 1, High: 1.1, Low: 0.9, Close: 1}
	}
	return bars
}

func testConfig(dir string) *config.Config {
	cfg := &config.Config{
		Profiles: map[string]models.StrategyProfile{
			"classic":    profile("classic"),
			"aggressive": profile("aggressive"),
		},
	}
	cfg.Backtest.Source = "mem"
	cfg.Backtest.OutDir = dir
	cfg.Backtest.Symbols = []string{"EURUSD", "GBPUSD"}
	cfg.Backtest.Timeframe = "H1"
	cfg.Backtest.InitialBalance = 10000
	cfg.Backtest.EntryMode = "close"
	cfg.Backtest.Parallelism = 2
	cfg.Backtest.RoundPlaces = 2
	return cfg
}

func TestBatchTasksDefaultsToAllProfiles(t *testing.T) {
	b := NewBatch(testConfig(t.TempDir()), nil, nil)
	tasks, err := b.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, "EURUSD", tasks[0].Symbol)
	assert.Equal(t, "aggressive", tasks[0].Profile.Name)
	assert.Equal(t, "classic", tasks[1].Profile.Name)
	assert.Equal(t, "H1", tasks[0].Timeframe)
}

func TestBatchTasksUnknownProfile(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Backtest.Profiles = []string{"nope"}
	_, err := NewBatch(cfg, nil, nil).Tasks()
	assert.ErrorIs(t, err, models.ErrUnknownProfile)
}

func TestBatchRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Backtest.Profiles = []string{"classic"}
	src := memSource{"EURUSD_H1": flat(60)}

	runner := NewRunner(cfg, src)
	reporter := report.NewReporter(report.NewJSONWriter(dir, 2), nil)
	ok, failed, err := NewBatch(cfg, runner, reporter).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.FileExists(t, report.NewJSONWriter(dir, 2).Path(&models.Result{Symbol: "EURUSD", Profile: "classic"}))
}
