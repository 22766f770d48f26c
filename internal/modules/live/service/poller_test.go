package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/models"
	healthsvc "backtester/internal/modules/health/service"
	"backtester/internal/notify"
	"backtester/internal/simulator"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar // symbol/tf
	errs  map[string]error
	block map[string]bool
	calls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bars:  make(map[string][]models.Bar),
		errs:  make(map[string]error),
		block: make(map[string]bool),
	}
}

func (f *fakeSource) set(symbol, tf string, bars []models.Bar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars[symbol+"/"+tf] = bars
}

func (f *fakeSource) Bars(ctx context.Context, symbol, tf string) ([]models.Bar, error) {
	f.mu.Lock()
	key := symbol + "/" + tf
	f.calls++
	bars, err, block := f.bars[key], f.errs[key], f.block[key]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return bars, nil
}

type fakeSink struct {
	mu   sync.Mutex
	got  []models.Decision
	fail bool
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Publish(_ context.Context, d models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, d)
	if s.fail {
		return errors.New("sink down")
	}
	return nil
}

func liveProfile() models.StrategyProfile {
	return models.StrategyProfile{
		Name:            "trend",
		RSI:             models.RSIParams{Period: 14, BuyThreshold: 100, SellThreshold: 0},
		MACD:            models.MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		MovingAverages:  models.MovingAverageParams{EMAFast: 9, EMASlow: 21},
		ADX:             models.ADXParams{Period: 14, MinStrength: 0},
		ATR:             models.ATRParams{Period: 14, MinVolatilityFactor: 0},
		Bollinger:       models.BollingerParams{Period: 20, StdDev: 2},
		ATRSLMultiplier: 2,
		ATRTPMultiplier: 4,
		RiskPercentage:  1,
	}
}

// mkCurve: ускоряющийся тренд, sign=+1 вверх, -1 вниз.
func mkCurve(start time.Time, step time.Duration, n int, base, sign float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := base + sign*0.01*float64(i*i)
		bars[i] = models.Bar{
			Time:  start.Add(time.Duration(i) * step),
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return bars
}

func liveOpts(symbols ...string) Options {
	return Options{
		Symbols:      symbols,
		Timeframe:    "15m",
		HTFDelay:     time.Hour,
		FetchTimeout: time.Second,
		Balance:      10000,
		Trail:        simulator.DefaultTrailConfig(),
	}
}

func newTestPoller(src *fakeSource, opts Options, sinks ...Sink) (*Poller, *healthsvc.State) {
	st := healthsvc.NewState()
	p := NewPoller(src, liveProfile(), opts, st, sinks...)
	p.now = func() time.Time { return t0 }
	return p, st
}

func TestCycle_BuyDecisionWithLevels(t *testing.T) {
	src := newFakeSource()
	src.set("BTCUSDT", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	sink := &fakeSink{}
	p, st := newTestPoller(src, liveOpts("BTCUSDT"), sink)

	out := p.Once(context.Background())
	require.Len(t, out, 1)
	d := out[0]

	assert.Equal(t, models.SignalBuy, d.Signal)
	assert.Equal(t, "setup", d.Reason)
	assert.Equal(t, "trend", d.Profile)
	assert.Equal(t, t0.Add(119*15*time.Minute), d.Time)
	assert.InDelta(t, 100+0.01*119*119, d.Price, 1e-9)
	assert.Less(t, d.StopLoss, d.Price)
	assert.Greater(t, d.TakeProfit, d.Price)
	assert.InDelta(t, 2*(d.Price-d.StopLoss), d.TakeProfit-d.Price, 1e-9)
	assert.Equal(t, simulator.LotSize(10000, 1, d.Price, d.StopLoss), d.Lot)
	require.NotNil(t, d.Indicators["atr"])
	assert.Nil(t, d.OpenPosition)

	require.Len(t, sink.got, 1)
	assert.True(t, st.Ready())
	assert.EqualValues(t, 1, st.Cycles())
	assert.Zero(t, st.LastFailed())
}

func TestCycle_SellAndHoldHaveExpectedLevels(t *testing.T) {
	src := newFakeSource()
	src.set("DOWN", "15m", mkCurve(t0, 15*time.Minute, 120, 1000, -1))
	src.set("FLAT", "15m", mkCurve(t0, 15*time.Minute, 5, 100, 0))
	p, _ := newTestPoller(src, liveOpts("DOWN", "FLAT"))

	out := p.Cycle(context.Background())
	require.Len(t, out, 2)

	assert.Equal(t, models.SignalSell, out[0].Signal)
	assert.Greater(t, out[0].StopLoss, out[0].Price)
	assert.Less(t, out[0].TakeProfit, out[0].Price)

	// 5 баров: индикаторы не прогреты
	assert.Equal(t, models.SignalHold, out[1].Signal)
	assert.Equal(t, "undefined", out[1].Reason)
	assert.Zero(t, out[1].StopLoss)
	assert.Zero(t, out[1].Lot)
}

func TestCycle_FailedSymbolIsSkipped(t *testing.T) {
	src := newFakeSource()
	src.errs["BAD/15m"] = errors.New("boom")
	src.set("EMPTY", "15m", nil)
	src.set("BTCUSDT", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	sink := &fakeSink{}
	p, st := newTestPoller(src, liveOpts("BAD", "EMPTY", "BTCUSDT"), sink)

	out := p.Cycle(context.Background())
	require.Len(t, out, 1)
	assert.Equal(t, "BTCUSDT", out[0].Symbol)
	assert.EqualValues(t, 2, st.LastFailed())

	// следующий цикл пробует снова
	delete(src.errs, "BAD/15m")
	src.set("BAD", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	out = p.Cycle(context.Background())
	assert.Len(t, out, 2)
	assert.EqualValues(t, 1, st.LastFailed())
	assert.EqualValues(t, 3, st.TotalFailed())
}

func TestCycle_FetchTimeout(t *testing.T) {
	src := newFakeSource()
	src.block["SLOW/15m"] = true
	src.set("BTCUSDT", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	opts := liveOpts("SLOW", "BTCUSDT")
	opts.FetchTimeout = 20 * time.Millisecond
	p, st := newTestPoller(src, opts)

	start := time.Now()
	out := p.Cycle(context.Background())
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, out, 1)
	assert.Equal(t, "BTCUSDT", out[0].Symbol)
	assert.EqualValues(t, 1, st.LastFailed())
}

func TestCycle_HTFVeto(t *testing.T) {
	src := newFakeSource()
	src.set("BTCUSDT", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	// часовой даунтренд, закрытый задолго до последнего бара
	src.set("BTCUSDT", "1h", mkCurve(t0.Add(-48*time.Hour), time.Hour, 40, 500, -1))
	opts := liveOpts("BTCUSDT")
	opts.HTFTimeframe = "1h"
	p, _ := newTestPoller(src, opts)

	out := p.Cycle(context.Background())
	require.Len(t, out, 1)
	assert.Equal(t, models.SignalHold, out[0].Signal)
	assert.Equal(t, "htf_mismatch", out[0].Reason)
	assert.Zero(t, out[0].Lot)
}

func TestCycle_HTFUnavailableMeansNoVeto(t *testing.T) {
	src := newFakeSource()
	src.set("BTCUSDT", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	src.errs["BTCUSDT/1h"] = errors.New("htf down")
	opts := liveOpts("BTCUSDT")
	opts.HTFTimeframe = "1h"
	p, st := newTestPoller(src, opts)

	out := p.Cycle(context.Background())
	require.Len(t, out, 1)
	assert.Equal(t, models.SignalBuy, out[0].Signal)
	assert.Zero(t, st.LastFailed())
}

func TestCycle_SinkErrorDoesNotStopCycle(t *testing.T) {
	src := newFakeSource()
	src.set("A", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	src.set("B", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	bad, good := &fakeSink{fail: true}, &fakeSink{}
	p, _ := newTestPoller(src, liveOpts("A", "B"), bad, good)

	out := p.Cycle(context.Background())
	assert.Len(t, out, 2)
	assert.Len(t, bad.got, 2)
	assert.Len(t, good.got, 2)
}

func TestCycle_PaperBookAdvancesStop(t *testing.T) {
	src := newFakeSource()
	src.set("BTCUSDT", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	opts := liveOpts("BTCUSDT")
	opts.Paper = true
	p, _ := newTestPoller(src, opts)

	first := p.Cycle(context.Background())[0]
	require.Equal(t, models.SignalBuy, first.Signal)
	require.NotNil(t, first.OpenPosition)
	assert.Equal(t, first.Price, first.OpenPosition.EntryPrice)
	assert.Equal(t, first.StopLoss, first.OpenPosition.StopLoss)
	assert.Zero(t, first.SuggestedStop)

	// ещё три бара вверх: прибыль больше ATR, но до TP далеко
	src.set("BTCUSDT", "15m", mkCurve(t0, 15*time.Minute, 123, 100, 1))
	second := p.Cycle(context.Background())[0]
	require.NotNil(t, second.OpenPosition)
	assert.Equal(t, first.Price, second.OpenPosition.EntryPrice)
	assert.Greater(t, second.SuggestedStop, first.StopLoss)
	assert.GreaterOrEqual(t, second.SuggestedStop, first.Price)
	assert.Equal(t, second.SuggestedStop, second.OpenPosition.StopLoss)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := newFakeSource()
	src.set("BTCUSDT", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	opts := liveOpts("BTCUSDT")
	opts.CheckInterval = 10 * time.Millisecond
	p, st := newTestPoller(src, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return st.Cycles() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestCycle_PerfLogGetsLinePerSymbol(t *testing.T) {
	src := newFakeSource()
	src.set("A", "15m", mkCurve(t0, 15*time.Minute, 120, 100, 1))
	src.set("B", "15m", mkCurve(t0, 15*time.Minute, 120, 1000, -1))
	path := filepath.Join(t.TempDir(), "perf.jsonl")
	perf, err := notify.NewPerfLog(path)
	require.NoError(t, err)
	p, _ := newTestPoller(src, liveOpts("A", "B"), perf)

	p.Cycle(context.Background())
	p.Cycle(context.Background())
	require.NoError(t, perf.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), `"symbol":"A"`)
	assert.Contains(t, string(lines[1]), `"symbol":"B"`)
	assert.Contains(t, string(lines[1]), `"signal":"SELL"`)
}
