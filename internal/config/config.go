package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	AgentAPI AgentAPIConfig `mapstructure:"agent_api"`

	Game       GameConfig       `mapstructure:"game"`
	Draw       DrawConfig       `mapstructure:"draw"`
	Settlement SettlementConfig `mapstructure:"settlement"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
	// NodeID identifies this process in the period lock table. Empty falls
	// back to the hostname.
	NodeID string `mapstructure:"node_id"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AgentAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GameConfig struct {
	// PeriodInterval is the wall-clock spacing between consecutive draws.
	PeriodInterval time.Duration `mapstructure:"period_interval"`
	// BettingCutoff is how long before the draw the betting window closes.
	BettingCutoff time.Duration `mapstructure:"betting_cutoff"`
	// MarketType selects the odds table ('A' or 'D').
	MarketType string `mapstructure:"market_type"`
}

type DrawConfig struct {
	HighRiskThreshold float64 `mapstructure:"high_risk_threshold"`
	LowRiskThreshold  float64 `mapstructure:"low_risk_threshold"`
	DeclusterProb     float64 `mapstructure:"decluster_prob"`
	MaxAttempts       int     `mapstructure:"max_attempts"`
}

type SettlementConfig struct {
	// SettleDelay sits between result publication and settlement start so
	// every caller's betting window is closed before wagers are evaluated.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.node_id", "")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("agent_api.base_url", "")
	v.SetDefault("agent_api.api_key", "")
	v.SetDefault("agent_api.timeout", "10s")
	v.SetDefault("game.period_interval", "5m")
	v.SetDefault("game.betting_cutoff", "30s")
	v.SetDefault("game.market_type", "D")
	v.SetDefault("draw.high_risk_threshold", 8.0)
	v.SetDefault("draw.low_risk_threshold", 5.0)
	v.SetDefault("draw.decluster_prob", 0.7)
	v.SetDefault("draw.max_attempts", 30)
	v.SetDefault("settlement.settle_delay", "5s")
	v.SetDefault("settlement.lock_ttl", "30s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
