package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/newthinker/swiftsig/internal/alert"
	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/export"
	"github.com/newthinker/swiftsig/internal/notifier"
	"github.com/newthinker/swiftsig/internal/storage/archive"
	"github.com/newthinker/swiftsig/internal/strategy"
)

// EnvPrefix prefixes environment overrides: SWIFTSIG_BACKTEST_LOT_SIZE=0.1.
const EnvPrefix = "SWIFTSIG"

type Config struct {
	Log        LogConfig                  `mapstructure:"log"`
	Server     ServerConfig               `mapstructure:"server"`
	Backtest   BacktestConfig             `mapstructure:"backtest"`
	Strategies map[string]StrategyConfig  `mapstructure:"strategies"`
	Data       DataConfig                 `mapstructure:"data"`
	Collectors map[string]CollectorConfig `mapstructure:"collectors"`
	Storage    StorageConfig              `mapstructure:"storage"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
	Notifiers  map[string]NotifierConfig  `mapstructure:"notifiers"`
	Alerts     AlertsConfig               `mapstructure:"alerts"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// BacktestConfig holds the defaults of a run. PipValue of zero derives the
// pip from the pair; PipValues overrides it per pair.
type BacktestConfig struct {
	Strategy       string             `mapstructure:"strategy"`
	InitialCapital float64            `mapstructure:"initial_capital"`
	LotSize        float64            `mapstructure:"lot_size"`
	PipValue       float64            `mapstructure:"pip_value"`
	PipValues      map[string]float64 `mapstructure:"pip_values"`
	Timeframe      string             `mapstructure:"timeframe"`
	DaysBack       int                `mapstructure:"days_back"`
	ExportFormat   string             `mapstructure:"export_format"`
	OutputPrefix   string             `mapstructure:"output_prefix"`
	Concurrency    int                `mapstructure:"concurrency"`
	Pairs          []string           `mapstructure:"pairs"`
}

// NotifierConfig enables a report channel. Params are passed to the
// notifier's Init: url and headers for webhook, bot_token and chat_id for
// telegram.
type NotifierConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

// AlertsConfig holds rules checked against the metrics of every run before
// it is announced. Fired rules are attached to the notification.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Rules    []alert.Rule  `mapstructure:"rules"`
}

type StrategyConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

// DataConfig picks the price source and whether fetched ranges are cached
// in archive storage.
type DataConfig struct {
	Provider string      `mapstructure:"provider"`
	Cache    CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

type CollectorConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	AssetClass   string        `mapstructure:"asset_class"`   // yahoo
	DefaultQuote string        `mapstructure:"default_quote"` // binance
	Dir          string        `mapstructure:"dir"`           // csv
	File         string        `mapstructure:"file"`          // csv
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file on top of Defaults. An empty path
// loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.job_ttl_hours", d.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)

	v.SetDefault("backtest.strategy", d.Backtest.Strategy)
	v.SetDefault("backtest.initial_capital", d.Backtest.InitialCapital)
	v.SetDefault("backtest.lot_size", d.Backtest.LotSize)
	v.SetDefault("backtest.pip_value", d.Backtest.PipValue)
	v.SetDefault("backtest.timeframe", d.Backtest.Timeframe)
	v.SetDefault("backtest.days_back", d.Backtest.DaysBack)
	v.SetDefault("backtest.export_format", d.Backtest.ExportFormat)
	v.SetDefault("backtest.output_prefix", d.Backtest.OutputPrefix)
	v.SetDefault("backtest.concurrency", d.Backtest.Concurrency)
	v.SetDefault("backtest.pairs", d.Backtest.Pairs)

	v.SetDefault("data.provider", d.Data.Provider)
	v.SetDefault("data.cache.enabled", d.Data.Cache.Enabled)
	v.SetDefault("data.cache.prefix", d.Data.Cache.Prefix)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.prefix", "")

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)

	v.SetDefault("alerts.cooldown", d.Alerts.Cooldown)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Backtest: BacktestConfig{
			Strategy:       "ma_crossover",
			InitialCapital: 10000,
			LotSize:        1,
			Timeframe:      "1h",
			DaysBack:       30,
			ExportFormat:   string(export.FormatBoth),
			OutputPrefix:   "backtest_results",
			Concurrency:    4,
			Pairs:          []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD"},
		},
		Data: DataConfig{
			Provider: "yahoo",
			Cache:    CacheConfig{Prefix: "prices"},
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: ".",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Alerts: AlertsConfig{
			Cooldown: 15 * time.Minute,
		},
	}
}

var (
	providers = map[string]bool{"yahoo": true, "binance": true, "csv": true}
	notifiers = map[string]bool{"webhook": true, "telegram": true}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log level: %w", err))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if err := c.Backtest.validate(); err != nil {
		return err
	}

	if !providers[c.Data.Provider] {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data provider %q (want yahoo, binance or csv)", c.Data.Provider))
	}
	if c.Data.Provider == "csv" {
		csv := c.Collectors["csv"]
		if csv.Dir == "" && csv.File == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("collectors.csv.dir or collectors.csv.file required when provider is csv"))
		}
	}

	for name, n := range c.Notifiers {
		if n.Enabled && !notifiers[name] {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown notifier %q (want webhook or telegram)", name))
		}
	}

	for i := range c.Alerts.Rules {
		if err := c.Alerts.Rules[i].Validate(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	if c.Alerts.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("alerts.cooldown cannot be negative, got %s", c.Alerts.Cooldown))
	}

	switch c.Storage.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.s3.bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q (want localfs or s3)", c.Storage.Type))
	}

	return nil
}

func (b BacktestConfig) validate() error {
	invalid := func(format string, args ...any) error {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("backtest."+format, args...))
	}

	switch {
	case b.InitialCapital < 0:
		return invalid("initial_capital cannot be negative, got %v", b.InitialCapital)
	case b.LotSize <= 0:
		return invalid("lot_size must be positive, got %v", b.LotSize)
	case b.PipValue < 0:
		return invalid("pip_value cannot be negative, got %v", b.PipValue)
	case b.DaysBack <= 0:
		return invalid("days_back must be positive, got %d", b.DaysBack)
	case b.Concurrency <= 0:
		return invalid("concurrency must be positive, got %d", b.Concurrency)
	}
	for pair, pip := range b.PipValues {
		if pip <= 0 {
			return invalid("pip_values.%s must be positive, got %v", pair, pip)
		}
	}
	if _, err := collector.ParseInterval(b.Timeframe); err != nil {
		return invalid("timeframe: %v", err)
	}
	if _, err := export.ParseFormat(b.ExportFormat); err != nil {
		return err
	}
	return nil
}

// PipValueFor returns the configured pip size of pair, or zero to let the
// backtester derive it.
func (b BacktestConfig) PipValueFor(pair string) float64 {
	base := collector.BaseSymbol(pair)
	for p, v := range b.PipValues {
		if strings.EqualFold(p, base) {
			return v
		}
	}
	return b.PipValue
}

// StrategyConfigs converts the strategies section for strategy.Registry.Configure.
func (c *Config) StrategyConfigs() map[string]strategy.Config {
	out := make(map[string]strategy.Config, len(c.Strategies))
	for name, sc := range c.Strategies {
		out[name] = strategy.Config{Enabled: sc.Enabled, Params: sc.Params}
	}
	return out
}

// NotifierConfigs returns the enabled notifiers keyed by name.
func (c *Config) NotifierConfigs() map[string]notifier.Config {
	out := make(map[string]notifier.Config)
	for name, n := range c.Notifiers {
		if n.Enabled {
			out[name] = notifier.Config{Enabled: true, Params: n.Params}
		}
	}
	return out
}

// Collector returns the collector config for the named source.
func (c *Config) Collector(name string) collector.Config {
	cc := c.Collectors[name]
	extra := map[string]any{}
	for k, v := range map[string]string{
		"asset_class":   cc.AssetClass,
		"default_quote": cc.DefaultQuote,
		"dir":           cc.Dir,
		"file":          cc.File,
	} {
		if v != "" {
			extra[k] = v
		}
	}
	return collector.Config{
		Enabled: true,
		BaseURL: cc.BaseURL,
		APIKey:  cc.APIKey,
		Timeout: cc.Timeout,
		Extra:   extra,
	}
}

// Archive returns the storage backend config.
func (c *Config) Archive() archive.Config {
	s3 := c.Storage.S3
	return archive.Config{
		Backend: c.Storage.Type,
		Path:    c.Storage.Path,
		S3: archive.S3Config{
			Bucket:    s3.Bucket,
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Prefix:    s3.Prefix,
		},
	}
}
