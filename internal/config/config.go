// Package config loads tool configuration from aset.yaml and ASET_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the tool configuration. Remote credentials for the AI
// classifier live in the settings store instead, next to the data they
// describe.
type Config struct {
	// DBPath is the local store location.
	DBPath string `mapstructure:"db_path"`

	Remote struct {
		// BaseURL is the remote table API root. Empty disables remote
		// sync entirely; every write stays queued.
		BaseURL string `mapstructure:"base_url"`

		// Token is an optional bearer token.
		Token string `mapstructure:"token"`

		// Timeout bounds each remote call.
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"remote"`

	Dashboard struct {
		// Port for the status/WebSocket server. Zero disables it.
		Port int `mapstructure:"port"`
	} `mapstructure:"dashboard"`

	Netmon struct {
		// MarkerFile is the connectivity marker watched by the daemon.
		MarkerFile string `mapstructure:"marker_file"`
	} `mapstructure:"netmon"`

	Log struct {
		// File enables rotated file logging when set.
		File string `mapstructure:"file"`
	} `mapstructure:"log"`
}

// Load reads configuration. An explicit path wins; otherwise aset.yaml is
// searched in the working directory and ~/.aset/. A missing file is fine,
// defaults and environment cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("aset")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.aset")
	}

	v.SetEnvPrefix("ASET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_path", ".aset/inventory.db")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("dashboard.port", 8484)
	v.SetDefault("netmon.marker_file", ".aset/connectivity")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
