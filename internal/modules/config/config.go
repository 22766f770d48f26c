package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"backtester/internal/models"
	"backtester/internal/simulator"
	"backtester/pkg/tracing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	defaultConfigFile = "configs/values_local.yaml"
	envPrefix         = "BT"

	tokenTelegramENV = "TELEGRAM_TOKEN"
	databaseDSN      = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	DB      string         `mapstructure:"db_dsn"`
	Tracing tracing.Config `mapstructure:"tracing"`

	Service struct {
		Host      string `mapstructure:"host"`
		AdminPort int    `mapstructure:"admin_port"`
	} `mapstructure:"service"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	Binance struct {
		APIKey    string `mapstructure:"api_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"binance"`

	ProfilesFile string         `mapstructure:"profiles_file"`
	Backtest     BacktestConfig `mapstructure:"backtest"`
	Live         LiveConfig     `mapstructure:"live"`

	// заполняется из ProfilesFile
	Profiles map[string]models.StrategyProfile `mapstructure:"-"`
}

type BacktestConfig struct {
	Source         string   `mapstructure:"source"` // csv | pg
	DataDir        string   `mapstructure:"data_dir"`
	OutDir         string   `mapstructure:"out_dir"`
	Symbols        []string `mapstructure:"symbols"`
	Profiles       []string `mapstructure:"profiles"`
	Timeframe      string   `mapstructure:"timeframe"`
	InitialBalance float64  `mapstructure:"initial_balance"`
	EntryMode      string   `mapstructure:"entry_mode"`

	// пусто: без подтверждения старшим ТФ
	HTFTimeframe string        `mapstructure:"htf_timeframe"`
	HTFDelay     time.Duration `mapstructure:"htf_delay"`

	MaxReportedTrades int   `mapstructure:"max_reported_trades"`
	RoundPlaces       int32 `mapstructure:"round_places"`
	Parallelism       int   `mapstructure:"parallelism"`
	StoreResults      bool  `mapstructure:"store_results"`
}

type LiveConfig struct {
	Symbols       []string              `mapstructure:"symbols"`
	Profile       string                `mapstructure:"profile"`
	Timeframe     string                `mapstructure:"timeframe"`
	HTFTimeframe  string                `mapstructure:"htf_timeframe"`
	HTFDelay      time.Duration         `mapstructure:"htf_delay"`
	Bars          int                   `mapstructure:"bars"`
	CheckInterval time.Duration         `mapstructure:"check_interval"`
	FetchTimeout  time.Duration         `mapstructure:"fetch_timeout"`
	Balance       float64               `mapstructure:"balance"`
	Once          bool                  `mapstructure:"once"`
	WSToken       string                `mapstructure:"ws_token"`
	Paper         bool                  `mapstructure:"paper"` // вести бумажные позиции и советовать стоп
	// jsonl с решениями; пусто = выключено
	PerfLog       string                `mapstructure:"perf_log"`
	Trail         simulator.TrailConfig `mapstructure:"trail"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.admin_port", 8081)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
	v.SetDefault("profiles_file", "configs/profiles.yaml")

	v.SetDefault("backtest.source", "csv")
	v.SetDefault("backtest.data_dir", "data")
	v.SetDefault("backtest.out_dir", "results")
	v.SetDefault("backtest.timeframe", "M15")
	v.SetDefault("backtest.initial_balance", 10000.0)
	v.SetDefault("backtest.entry_mode", string(simulator.EntryOnClose))
	v.SetDefault("backtest.htf_delay", time.Hour)
	v.SetDefault("backtest.max_reported_trades", 50)
	v.SetDefault("backtest.round_places", 2)
	v.SetDefault("backtest.parallelism", 8)

	trail := simulator.DefaultTrailConfig()
	v.SetDefault("live.timeframe", "15m")
	v.SetDefault("live.htf_delay", time.Hour)
	v.SetDefault("live.bars", 200)
	v.SetDefault("live.check_interval", time.Minute)
	v.SetDefault("live.fetch_timeout", 10*time.Second)
	v.SetDefault("live.balance", 10000.0)
	v.SetDefault("live.perf_log", "")
	v.SetDefault("live.trail.breakeven_trigger_atr", trail.BreakevenTriggerATR)
	v.SetDefault("live.trail.breakeven_offset", trail.BreakevenOffset)
	v.SetDefault("live.trail.trail_trigger_atr", trail.TrailTriggerATR)
	v.SetDefault("live.trail.trail_multiplier", trail.TrailMultiplier)
}

func NewConfig() (*Config, error) {
	// .env опционален
	_ = godotenv.Load()

	path := os.Getenv(configFilePathENV)
	if path == "" {
		path = defaultConfigFile
	}
	return Load(path)
}

// Load читает конфиг приложения и файл профилей. Переменные BT_* перекрывают файл.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		cfg.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		cfg.DB = dsn
	}

	profiles, err := LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}
	cfg.Profiles = profiles

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !simulator.EntryMode(c.Backtest.EntryMode).Valid() {
		return errors.Errorf("backtest.entry_mode: unknown mode %q", c.Backtest.EntryMode)
	}
	if c.Backtest.InitialBalance <= 0 {
		return errors.New("backtest.initial_balance must be > 0")
	}
	for _, name := range c.Backtest.Profiles {
		if _, err := c.Profile(name); err != nil {
			return err
		}
	}
	if c.Live.Profile != "" {
		if _, err := c.Profile(c.Live.Profile); err != nil {
			return err
		}
	}
	return nil
}

// Profile: профиль по имени; неизвестное имя даёт ErrUnknownProfile.
func (c *Config) Profile(name string) (models.StrategyProfile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return models.StrategyProfile{}, errors.Wrapf(models.ErrUnknownProfile, "%q", name)
	}
	return p, nil
}
