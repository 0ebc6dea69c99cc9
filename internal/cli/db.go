package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/stellarcore-go/ledger-overlay/internal/ledger"
	"github.com/stellarcore-go/ledger-overlay/internal/obslog"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb/postgres"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb/sqlite"

	"github.com/stellarcore-go/ledger-overlay/internal/config"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Account ledger store maintenance",
}

var dbReinitCmd = &cobra.Command{
	Use:   "reinit",
	Short: "Drop and recreate the accounts/signers schema (wraps Store.DropAll)",
	RunE:  runDBReinit,
}

func init() {
	dbCmd.AddCommand(dbReinitCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBReinit(cmd *cobra.Command, args []string) error {
	logger := obslog.New()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("db reinit: load config: %w", err)
	}

	ctx := context.Background()
	dbCfg := &accountdb.Config{
		Driver:           cfg.Database.Driver,
		ConnectionString: cfg.Database.DSN,
		Database:         cfg.Database.DSN,
		SSLMode:          "prefer",
		MaxOpenConns:     5,
		MaxIdleConns:     1,
		DefaultTimeout:   30_000_000_000,
	}

	var db accountdb.Database
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgres.Open(ctx, dbCfg, prometheus.NewRegistry())
	default:
		db, err = sqlite.Open(ctx, dbCfg, prometheus.NewRegistry())
	}
	if err != nil {
		return fmt.Errorf("db reinit: open account database: %w", err)
	}
	defer db.Close()

	store := ledger.NewStore(db, ledger.NewEntryCache(0), logger)
	if err := store.DropAll(ctx); err != nil {
		return fmt.Errorf("db reinit: %w", err)
	}
	logger.Info("accounts/signers schema reinitialized", "driver", cfg.Database.Driver)
	return nil
}
