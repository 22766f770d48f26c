package config

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"backtester/internal/models"
)

// Файл профилей: общие risk_percentage/atr_*_multiplier сверху и секция profiles.
// Профиль может переопределить общие значения. Лишние ключи и пропуски: ошибка.
type rawProfilesFile struct {
	RiskPercentage  *float64              `yaml:"risk_percentage"`
	ATRSLMultiplier *float64              `yaml:"atr_sl_multiplier"`
	ATRTPMultiplier *float64              `yaml:"atr_tp_multiplier"`
	Profiles        map[string]rawProfile `yaml:"profiles"`
}

type rawProfile struct {
	RSI struct {
		Period        *int     `yaml:"period"`
		BuyThreshold  *float64 `yaml:"buy_threshold"`
		SellThreshold *float64 `yaml:"sell_threshold"`
	} `yaml:"rsi"`
	MACD struct {
		FastPeriod   *int `yaml:"fast_period"`
		SlowPeriod   *int `yaml:"slow_period"`
		SignalPeriod *int `yaml:"signal_period"`
	} `yaml:"macd"`
	MovingAverages struct {
		EMAFast *int `yaml:"ema_fast"`
		EMASlow *int `yaml:"ema_slow"`
	} `yaml:"moving_averages"`
	ADX struct {
		Period      *int     `yaml:"period"`
		MinStrength *float64 `yaml:"min_strength"`
	} `yaml:"adx"`
	ATR struct {
		Period              *int     `yaml:"period"`
		MinVolatilityFactor *float64 `yaml:"min_volatility_factor"`
	} `yaml:"atr"`
	Bollinger struct {
		Period *int     `yaml:"period"`
		StdDev *float64 `yaml:"std_dev"`
	} `yaml:"bollinger"`

	RiskPercentage  *float64 `yaml:"risk_percentage"`
	ATRSLMultiplier *float64 `yaml:"atr_sl_multiplier"`
	ATRTPMultiplier *float64 `yaml:"atr_tp_multiplier"`
}

func LoadProfiles(path string) (map[string]models.StrategyProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read profiles %s", path)
	}
	return ParseProfiles(data)
}

func ParseProfiles(data []byte) (map[string]models.StrategyProfile, error) {
	var raw rawProfilesFile
	if err := yaml.UnmarshalStrict(data, &raw); err != nil {
		return nil, &models.ConfigError{Reason: errors.Wrap(err, "decode profiles").Error()}
	}
	if len(raw.Profiles) == 0 {
		return nil, &models.ConfigError{Reason: "no profiles defined"}
	}

	out := make(map[string]models.StrategyProfile, len(raw.Profiles))
	for _, name := range ProfileNames(raw.Profiles) {
		p, err := raw.Profiles[name].build(name, raw)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}

// ProfileNames: ключи в стабильном порядке.
func ProfileNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// fields собирает значения и запоминает первое отсутствующее поле.
type fields struct {
	profile string
	err     error
}

func (f *fields) missing(field string) {
	if f.err == nil {
		f.err = &models.ConfigError{Profile: f.profile, Field: field, Reason: "missing"}
	}
}

func (f *fields) int(field string, v *int) int {
	if v == nil {
		f.missing(field)
		return 0
	}
	return *v
}

func (f *fields) float(field string, v *float64, fallback ...*float64) float64 {
	if v != nil {
		return *v
	}
	for _, fb := range fallback {
		if fb != nil {
			return *fb
		}
	}
	f.missing(field)
	return 0
}

func (r rawProfile) build(name string, top rawProfilesFile) (models.StrategyProfile, error) {
	f := &fields{profile: name}
	p := models.StrategyProfile{
		Name: name,
		RSI: models.RSIParams{
			Period:        f.int("rsi.period", r.RSI.Period),
			BuyThreshold:  f.float("rsi.buy_threshold", r.RSI.BuyThreshold),
			SellThreshold: f.float("rsi.sell_threshold", r.RSI.SellThreshold),
		},
		MACD: models.MACDParams{
			FastPeriod:   f.int("macd.fast_period", r.MACD.FastPeriod),
			SlowPeriod:   f.int("macd.slow_period", r.MACD.SlowPeriod),
			SignalPeriod: f.int("macd.signal_period", r.MACD.SignalPeriod),
		},
		MovingAverages: models.MovingAverageParams{
			EMAFast: f.int("moving_averages.ema_fast", r.MovingAverages.EMAFast),
			EMASlow: f.int("moving_averages.ema_slow", r.MovingAverages.EMASlow),
		},
		ADX: models.ADXParams{
			Period:      f.int("adx.period", r.ADX.Period),
			MinStrength: f.float("adx.min_strength", r.ADX.MinStrength),
		},
		ATR: models.ATRParams{
			Period:              f.int("atr.period", r.ATR.Period),
			MinVolatilityFactor: f.float("atr.min_volatility_factor", r.ATR.MinVolatilityFactor),
		},
		Bollinger: models.BollingerParams{
			Period: f.int("bollinger.period", r.Bollinger.Period),
			StdDev: f.float("bollinger.std_dev", r.Bollinger.StdDev),
		},
		ATRSLMultiplier: f.float("atr_sl_multiplier", r.ATRSLMultiplier, top.ATRSLMultiplier),
		ATRTPMultiplier: f.float("atr_tp_multiplier", r.ATRTPMultiplier, top.ATRTPMultiplier),
		RiskPercentage:  f.float("risk_percentage", r.RiskPercentage, top.RiskPercentage),
	}
	if f.err != nil {
		return models.StrategyProfile{}, f.err
	}
	return p, nil
}
