package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stellarcore-go/ledger-overlay/internal/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, config.DefaultConfig().Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "oracle"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingListenAddr(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Overlay.ListenAddr = ""
	require.Error(t, cfg.Validate())
}

func TestLoadConfigAppliesDefaultsWithoutFile(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, ":11625", cfg.Overlay.ListenAddr)
}

func TestLoadConfigReadsFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.toml")
	contents := `
[database]
driver = "postgres"
dsn = "postgres://localhost/stellarcore"

[overlay]
listen_addr = ":11626"
network_passphrase = "Public Global Stellar Network ; September 2015"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "postgres://localhost/stellarcore", cfg.Database.DSN)
	require.Equal(t, ":11626", cfg.Overlay.ListenAddr)
	require.Equal(t, path, cfg.GetConfigPath())
}

func TestLoadConfigRejectsInvalidResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.toml")
	contents := `
[database]
driver = "mysql"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := config.LoadConfig(path)
	require.Error(t, err)
}
