// Package config loads the engine's ambient settings (dag defaults, log
// destination/format, a FIFO depth setting) from flags, environment,
// and an optional YAML file, in that order of precedence. MaxQueueDepth
// is loaded like any other field, but nothing in the engine reads it:
// the Dag's pending-update FIFO is not capped.
package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	goccyyaml "github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds settings shared across cmd/dagflow's subcommands.
type Config struct {
	Site          string `mapstructure:"site" yaml:"site"`
	Author        string `mapstructure:"author" yaml:"author"`
	LogDir        string `mapstructure:"log_dir" yaml:"log_dir"`
	LogFormat     string `mapstructure:"log_format" yaml:"log_format"`
	Debug         bool   `mapstructure:"debug" yaml:"debug"`
	MaxQueueDepth int    `mapstructure:"max_queue_depth" yaml:"max_queue_depth"`
}

// Default returns the engine's built-in settings, the bottom layer every
// other source overrides.
func Default() *Config {
	return &Config{
		Site:          "local",
		LogFormat:     "text",
		MaxQueueDepth: 1000,
	}
}

// Load resolves a Config from, in increasing precedence: the built-in
// defaults, an optional YAML file at configPath, environment variables
// prefixed DAGFLOW_, and any flags already registered on fs.
func Load(fs *pflag.FlagSet, configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		fileCfg, err := loadYAMLFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("config: merging %s: %w", configPath, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("DAGFLOW")
	v.AutomaticEnv()
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("config: binding flags: %w", err)
		}
	}
	for _, key := range []string{"site", "author", "log_dir", "log_format", "debug", "max_queue_depth"} {
		_ = v.BindEnv(key)
	}

	var overlay Config
	if err := v.Unmarshal(&overlay); err != nil {
		return nil, fmt.Errorf("config: reading flags/env: %w", err)
	}
	if err := mergo.Merge(cfg, &overlay, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merging flags/env: %w", err)
	}

	return cfg, nil
}

func loadYAMLFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := goccyyaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}
