// Package postgres provides the Postgres-backed accountdb.Database,
// grounded on the teacher's internal/storage/relationaldb/postgres
// package (same database/sql + lib/pq open/ping/pool-configure sequence).
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	_ "github.com/lib/pq" // registers the "postgres" sql driver

	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb"
)

// Open opens a Postgres connection pool per cfg and wraps it as an
// accountdb.Database.
func Open(ctx context.Context, cfg *accountdb.Config, reg prometheus.Registerer) (accountdb.Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", accountdb.ErrConfiguration, err)
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", accountdb.ErrConnection, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DefaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", accountdb.ErrConnection, err)
	}

	return accountdb.NewSQLDatabase(db, "postgres", reg), nil
}
