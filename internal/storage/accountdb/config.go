package accountdb

import (
	"fmt"
	"time"
)

// Config configures the account store's database connection. The shape
// mirrors the teacher's relationaldb.Config, trimmed to what the account
// schema (spec.md §4.3.1) needs.
type Config struct {
	Driver           string // "postgres" or "sqlite"
	ConnectionString string // used verbatim for sqlite (file path or ":memory:")
	Host             string
	Port             int
	Database         string
	Username         string
	Password         string
	SSLMode          string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DefaultTimeout  time.Duration
}

// NewConfig returns a Postgres-flavoured default configuration.
func NewConfig() *Config {
	return &Config{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		Database:        "stellarcore",
		SSLMode:         "prefer",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		DefaultTimeout:  30 * time.Second,
	}
}

// SQLiteConfig returns a configuration for the embedded/test sqlite driver.
func SQLiteConfig(path string) *Config {
	cfg := NewConfig()
	cfg.Driver = "sqlite"
	cfg.ConnectionString = path
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	return cfg
}

// Validate checks for obviously broken configuration.
func (c *Config) Validate() error {
	if c.Driver != "postgres" && c.Driver != "sqlite" {
		return fmt.Errorf("accountdb: unsupported driver %q", c.Driver)
	}
	if c.Driver == "sqlite" && c.ConnectionString == "" {
		return fmt.Errorf("accountdb: sqlite requires a connection string")
	}
	if c.Driver == "postgres" && c.Database == "" {
		return fmt.Errorf("accountdb: postgres requires a database name")
	}
	return nil
}

// DSN builds the driver-specific data source name.
func (c *Config) DSN() string {
	if c.Driver == "sqlite" {
		return c.ConnectionString
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode)
}
