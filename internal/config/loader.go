package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from multiple sources in priority order:
//  1. Default values (DefaultConfig)
//  2. Configuration file (TOML/YAML/JSON, autodetected by extension), if present
//  3. Environment variables (STELLARCORE_ prefix, "." replaced with "_")
//
// configPath may be empty, in which case only defaults and environment
// variables apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("database.driver", defaults.Database.Driver)
	v.SetDefault("database.dsn", defaults.Database.DSN)
	v.SetDefault("overlay.listen_addr", defaults.Overlay.ListenAddr)
	v.SetDefault("overlay.node_seed_path", defaults.Overlay.NodeSeedPath)
	v.SetDefault("overlay.network_passphrase", defaults.Overlay.NetworkPassphrase)
	v.SetDefault("overlay.peer_store_path", defaults.Overlay.PeerStorePath)
	v.SetDefault("admin.listen_addr", defaults.Admin.ListenAddr)
	v.SetDefault("admin.enabled", defaults.Admin.Enabled)

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: stat %s: %w", configPath, err)
			}
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	v.SetEnvPrefix("STELLARCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.configPath = configPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetConfigPath returns the path the configuration was loaded from, or ""
// if it came from defaults/environment only.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// ReloadConfig reloads configuration from the same path an existing
// configuration was loaded from.
func ReloadConfig(existing *Config) (*Config, error) {
	return LoadConfig(existing.GetConfigPath())
}
