// Package config is the node's configuration surface, loaded with
// spf13/viper the way the teacher loads rippled.cfg-equivalent settings
// (internal/config/loader.go), trimmed to the Account Ledger Store and
// Peer Overlay subsystems in scope here.
package config

import "fmt"

// Config is the complete node configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Overlay  OverlayConfig  `mapstructure:"overlay"`
	Admin    AdminConfig    `mapstructure:"admin"`

	configPath string
}

// DatabaseConfig selects and configures the account ledger store's SQL
// backend (spf13/viper-driven equivalent of the teacher's
// internal/storage/relationaldb config).
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// DSN is the driver-specific data source name.
	DSN string `mapstructure:"dsn"`
}

// OverlayConfig configures the peer session listener and identity.
type OverlayConfig struct {
	// ListenAddr is the TCP address this node accepts peer connections on.
	ListenAddr string `mapstructure:"listen_addr"`
	// NodeSeedPath is the path to this node's ed25519 seed file. Generated
	// on first run if absent.
	NodeSeedPath string `mapstructure:"node_seed_path"`
	// NetworkPassphrase selects the Stellar network (its SHA-256 hash is
	// the handshake's networkID).
	NetworkPassphrase string `mapstructure:"network_passphrase"`
	// KnownPeers lists (host:port) addresses the node dials at startup.
	KnownPeers []string `mapstructure:"known_peers"`
	// PeerStorePath is the pebble directory for the peer-record backoff table.
	PeerStorePath string `mapstructure:"peer_store_path"`
}

// AdminConfig configures the admin gRPC introspection surface (SPEC_FULL.md §5.9).
type AdminConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Enabled    bool   `mapstructure:"enabled"`
}

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "stellarcore.db",
		},
		Overlay: OverlayConfig{
			ListenAddr:        ":11625",
			NodeSeedPath:      "node-seed.json",
			NetworkPassphrase: "Test SDF Network ; September 2015",
			PeerStorePath:     "peerstore",
		},
		Admin: AdminConfig{
			ListenAddr: "127.0.0.1:50061",
			Enabled:    true,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if c.Overlay.ListenAddr == "" {
		return fmt.Errorf("config: overlay.listen_addr is required")
	}
	if c.Overlay.NetworkPassphrase == "" {
		return fmt.Errorf("config: overlay.network_passphrase is required")
	}
	return nil
}
