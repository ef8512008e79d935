// Package config loads service configuration from environment variables
// with sane development defaults.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	ListenAddr    string        `mapstructure:"listen_addr"`
	RedisURL      string        `mapstructure:"redis_url"`
	UseRedis      bool          `mapstructure:"use_redis"`
	Network       string        `mapstructure:"network"`
	SigningKeyHex string        `mapstructure:"signing_key"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Load reads configuration from AUTH_-prefixed environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTH")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":9000")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("use_redis", false)
	v.SetDefault("network", "testnet")
	v.SetDefault("signing_key", "")
	v.SetDefault("sweep_interval", 30*time.Minute)

	// Explicit binds so AutomaticEnv sees keys never touched by Set
	for _, key := range []string{"listen_addr", "redis_url", "use_redis", "network", "signing_key", "sweep_interval"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
