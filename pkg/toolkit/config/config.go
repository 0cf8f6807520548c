// Package config loads deskkit's runtime configuration from defaults,
// TOML files, and environment variables, using Viper the way teranos-QNTX's
// am package does: defaults set first, then a config file merged in, then
// environment variables applied on top with the highest precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/deskkit/deskkit/pkg/windowreg"
)

const envPrefix = "DESKKIT"

// Config is deskkit's full runtime configuration.
type Config struct {
	MaxWindows      int           `mapstructure:"max_windows"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	RateLimit struct {
		Limit    int           `mapstructure:"limit"`
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"rate_limit"`

	Bus struct {
		GetTimeout time.Duration `mapstructure:"get_timeout"`
	} `mapstructure:"bus"`

	Persistence struct {
		Enabled  bool          `mapstructure:"enabled"`
		Path     string        `mapstructure:"path"`
		Strategy string        `mapstructure:"strategy"` // "debounce" or "throttle"
		Delay    time.Duration `mapstructure:"delay"`
	} `mapstructure:"persistence"`

	DebugConsole struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"debug_console"`

	Development bool `mapstructure:"development"`
}

// Load resolves configuration from (in ascending precedence) built-in
// defaults, the TOML file at configPath (if non-empty and present), and
// DESKKIT_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_windows", 0) // 0 == unlimited
	v.SetDefault("cleanup_interval", 30*time.Second)

	v.SetDefault("rate_limit.limit", 60)
	v.SetDefault("rate_limit.interval", time.Minute)

	v.SetDefault("bus.get_timeout", 5*time.Second)

	v.SetDefault("persistence.enabled", true)
	v.SetDefault("persistence.path", "")
	v.SetDefault("persistence.strategy", "debounce")
	v.SetDefault("persistence.delay", 500*time.Millisecond)

	v.SetDefault("debug_console.enabled", false)
	v.SetDefault("debug_console.addr", "127.0.0.1:9191")

	v.SetDefault("development", false)
}

// StateKeeperConfig adapts the persistence section to windowreg's shape.
func (c *Config) StateKeeperConfig() windowreg.StateKeeperConfig {
	strategy := windowreg.FlushDebounce
	if c.Persistence.Strategy == "throttle" {
		strategy = windowreg.FlushThrottle
	}
	return windowreg.StateKeeperConfig{Strategy: strategy, Delay: c.Persistence.Delay}
}
