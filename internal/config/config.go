// Package config defines the typed configuration surface for the
// (out-of-scope) CLI/bootstrap layer. Core packages (cache, matching,
// risk) never import viper directly — they accept already-parsed Go
// values through their constructors.
package config

import (
	"github.com/spf13/viper"
)

// Config is the root application configuration, loaded via viper from
// a config file plus environment overrides, mirroring the teacher's
// internal/config/config.go shape.
type Config struct {
	Cache struct {
		TickCapacity int `mapstructure:"tick_capacity"`
		BarCapacity  int `mapstructure:"bar_capacity"`
	} `mapstructure:"cache"`

	Risk struct {
		Debug               bool               `mapstructure:"debug"`
		Bypass              bool               `mapstructure:"bypass"`
		MaxOrderSubmitPerSec int               `mapstructure:"max_order_submit_per_sec"`
		MaxOrderModifyPerSec int               `mapstructure:"max_order_modify_per_sec"`
		MaxNotionalPerOrder map[string]float64 `mapstructure:"max_notional_per_order"`
	} `mapstructure:"risk"`

	Persistence struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"persistence"`

	Bus struct {
		NatsURL string `mapstructure:"nats_url"`
	} `mapstructure:"bus"`
}

// Load reads configuration from the given file path (if non-empty),
// applies TRADSYS_-prefixed environment overrides, and unmarshals into
// a Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADSYS")
	v.AutomaticEnv()

	v.SetDefault("cache.tick_capacity", 1000)
	v.SetDefault("cache.bar_capacity", 1000)
	v.SetDefault("risk.max_order_submit_per_sec", 100)
	v.SetDefault("risk.max_order_modify_per_sec", 100)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
