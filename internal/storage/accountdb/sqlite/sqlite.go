// Package sqlite provides the embedded/test accountdb.Database backend,
// used by unit tests and single-node deployments, grounded on the
// teacher's modernc.org/sqlite dependency (go.mod direct require).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite" // registers the "sqlite" sql driver

	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb"
)

// Open opens a sqlite database at cfg.ConnectionString (a file path, or
// ":memory:" for tests) and wraps it as an accountdb.Database.
func Open(ctx context.Context, cfg *accountdb.Config, reg prometheus.Registerer) (accountdb.Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", accountdb.ErrConfiguration, err)
	}

	db, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", accountdb.ErrConnection, err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DefaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", accountdb.ErrConnection, err)
	}

	return accountdb.NewSQLDatabase(db, "sqlite", reg), nil
}
