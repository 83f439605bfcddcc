// Package config defines the exchange's configuration: listen addresses,
// per-asset economics, and the complete-set bonus. Loaded from a YAML file
// with GAME_*-prefixed environment variable overrides.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"reuben/internal/common"
)

// AssetConfig is one asset's economic configuration.
type AssetConfig struct {
	UnitValue      uint64 `mapstructure:"unit_value"`
	StartingCash   uint64 `mapstructure:"starting_cash"`
	StartingAssets uint64 `mapstructure:"starting_assets"`
}

// Config is the top-level exchange configuration.
type Config struct {
	ListenAddr string                 `mapstructure:"listen_addr"`
	HTTPAddr   string                 `mapstructure:"http_addr"`
	Bonus      uint64                 `mapstructure:"bonus"`
	Assets     map[string]AssetConfig `mapstructure:"assets"`
}

// ForAsset returns one asset's economics, falling back to a sane default
// if it is missing from the loaded config.
func (c Config) ForAsset(asset common.Asset) AssetConfig {
	if cfg, ok := c.Assets[asset.Key()]; ok {
		return cfg
	}
	return AssetConfig{UnitValue: 1, StartingCash: 1000, StartingAssets: 100}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":9001")
	v.SetDefault("http_addr", ":3000")
	v.SetDefault("bonus", 10)

	// Starting cash/assets mirror original_source/src/main.cpp's
	// STARTING_CASH/STARTING_ASSETS tables; unit values are a new knob
	// the original never had.
	v.SetDefault("assets.dressing", map[string]any{"unit_value": 2, "starting_cash": 1000, "starting_assets": 200})
	v.SetDefault("assets.rye", map[string]any{"unit_value": 4, "starting_cash": 1000, "starting_assets": 100})
	v.SetDefault("assets.swiss", map[string]any{"unit_value": 6, "starting_cash": 1020, "starting_assets": 66})
	v.SetDefault("assets.pastrami", map[string]any{"unit_value": 9, "starting_cash": 1000, "starting_assets": 50})
}

// Load reads config from a YAML file with env var overrides. A missing
// file is not an error: the defaults above, plus any GAME_* overrides,
// are enough to run.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("GAME")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
