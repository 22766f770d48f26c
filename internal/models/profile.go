package models

// StrategyProfile: провалидированный набор параметров стратегии.
// Собирается один раз при загрузке конфига и дальше только читается.
type StrategyProfile struct {
	Name string `json:"name"`

	RSI            RSIParams           `json:"rsi"`
	MACD           MACDParams          `json:"macd"`
	MovingAverages MovingAverageParams `json:"moving_averages"`
	ADX            ADXParams           `json:"adx"`
	ATR            ATRParams           `json:"atr"`
	Bollinger      BollingerParams     `json:"bollinger"`

	ATRSLMultiplier float64 `json:"atr_sl_multiplier"`
	ATRTPMultiplier float64 `json:"atr_tp_multiplier"`
	RiskPercentage  float64 `json:"risk_percentage"` // 1.0 => 1% баланса на сделку
}

type RSIParams struct {
	Period        int     `json:"period"`
	BuyThreshold  float64 `json:"buy_threshold"`
	SellThreshold float64 `json:"sell_threshold"`
}

type MACDParams struct {
	FastPeriod   int `json:"fast_period"`
	SlowPeriod   int `json:"slow_period"`
	SignalPeriod int `json:"signal_period"`
}

type MovingAverageParams struct {
	EMAFast int `json:"ema_fast"`
	EMASlow int `json:"ema_slow"`
}

type ADXParams struct {
	Period      int     `json:"period"`
	MinStrength float64 `json:"min_strength"`
}

type ATRParams struct {
	Period              int     `json:"period"`
	MinVolatilityFactor float64 `json:"min_volatility_factor"`
}

type BollingerParams struct {
	Period int     `json:"period"`
	StdDev float64 `json:"std_dev"`
}

// Validate проверяет значения; ошибка всегда *ConfigError с именем поля.
func (p StrategyProfile) Validate() error {
	bad := func(field, reason string) error {
		return &ConfigError{Profile: p.Name, Field: field, Reason: reason}
	}

	periods := []struct {
		field string
		v     int
	}{
		{"rsi.period", p.RSI.Period},
		{"macd.fast_period", p.MACD.FastPeriod},
		{"macd.slow_period", p.MACD.SlowPeriod},
		{"macd.signal_period", p.MACD.SignalPeriod},
		{"moving_averages.ema_fast", p.MovingAverages.EMAFast},
		{"moving_averages.ema_slow", p.MovingAverages.EMASlow},
		{"adx.period", p.ADX.Period},
		{"atr.period", p.ATR.Period},
		{"bollinger.period", p.Bollinger.Period},
	}
	for _, pr := range periods {
		if pr.v < 1 {
			return bad(pr.field, "must be >= 1")
		}
	}
	if p.Bollinger.Period < 2 {
		return bad("bollinger.period", "must be >= 2 for a sample deviation")
	}

	if p.MovingAverages.EMAFast >= p.MovingAverages.EMASlow {
		return bad("moving_averages.ema_fast", "must be < moving_averages.ema_slow")
	}
	if p.MACD.FastPeriod >= p.MACD.SlowPeriod {
		return bad("macd.fast_period", "must be < macd.slow_period")
	}
	if p.RSI.BuyThreshold < 0 || p.RSI.BuyThreshold > 100 {
		return bad("rsi.buy_threshold", "must be within [0,100]")
	}
	if p.RSI.SellThreshold < 0 || p.RSI.SellThreshold > 100 {
		return bad("rsi.sell_threshold", "must be within [0,100]")
	}
	if p.ADX.MinStrength < 0 {
		return bad("adx.min_strength", "must be >= 0")
	}
	if p.ATR.MinVolatilityFactor < 0 {
		return bad("atr.min_volatility_factor", "must be >= 0")
	}
	if p.Bollinger.StdDev <= 0 {
		return bad("bollinger.std_dev", "must be > 0")
	}
	if p.ATRSLMultiplier <= 0 {
		return bad("atr_sl_multiplier", "must be > 0")
	}
	if p.ATRTPMultiplier <= 0 {
		return bad("atr_tp_multiplier", "must be > 0")
	}
	if p.RiskPercentage <= 0 || p.RiskPercentage > 100 {
		return bad("risk_percentage", "must be within (0,100]")
	}
	return nil
}
