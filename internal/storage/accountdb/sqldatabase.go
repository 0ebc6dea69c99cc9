package accountdb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// SQLDatabase implements Database over a database/sql handle. It is
// driver-agnostic; the postgres and sqlite subpackages each provide an
// Open func that registers their driver and constructs one of these
// (mirroring the teacher's per-driver subpackages under
// internal/storage/relationaldb).
//
// Callers (the Account Store) always write queries using "?" placeholders;
// Postgres dialect instances rebind them to "$1", "$2", ... before
// preparing, since lib/pq does not understand "?".
type SQLDatabase struct {
	db      *sql.DB
	dialect string // "postgres" or "sqlite"
	insert  Timer
	update  Timer
	deleteT Timer
	selectT Timer
}

// NewSQLDatabase wraps an already-open *sql.DB, registering per-operation
// latency histograms under the given Prometheus registerer (spec.md §5,
// "Scoped acquisition": timers are always started/stopped around a
// handler).
func NewSQLDatabase(db *sql.DB, dialect string, reg prometheus.Registerer) *SQLDatabase {
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stellarcore",
		Subsystem: "account_store",
		Name:      "operation_duration_seconds",
		Help:      "Latency of account store operations by kind.",
	}, []string{"op"})
	if reg != nil {
		reg.MustRegister(hist)
	}

	return &SQLDatabase{
		db:      db,
		dialect: dialect,
		insert:  histogramTimer{hist.WithLabelValues("insert")},
		update:  histogramTimer{hist.WithLabelValues("update")},
		deleteT: histogramTimer{hist.WithLabelValues("delete")},
		selectT: histogramTimer{hist.WithLabelValues("select")},
	}
}

func (d *SQLDatabase) Session() Session   { return sqlSession{d.db, d.dialect} }
func (d *SQLDatabase) InsertTimer() Timer { return d.insert }
func (d *SQLDatabase) UpdateTimer() Timer { return d.update }
func (d *SQLDatabase) DeleteTimer() Timer { return d.deleteT }
func (d *SQLDatabase) SelectTimer() Timer { return d.selectT }
func (d *SQLDatabase) Close() error       { return d.db.Close() }

type sqlSession struct {
	db      *sql.DB
	dialect string
}

func (s sqlSession) Prepare(ctx context.Context, query string) (Statement, error) {
	stmt, err := s.db.PrepareContext(ctx, rebind(s.dialect, query))
	if err != nil {
		return nil, fmt.Errorf("%w: prepare: %v", ErrConnection, err)
	}
	return sqlStatement{stmt}, nil
}

func (s sqlSession) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := s.db.ExecContext(ctx, rebind(s.dialect, query), args...)
	if err != nil {
		return nil, err
	}
	return sqlResult{res}, nil
}

// rebind rewrites "?" placeholders to "$1", "$2", ... for the postgres
// dialect; sqlite accepts "?" natively and is returned unchanged.
func rebind(dialect, query string) string {
	if dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type sqlStatement struct{ stmt *sql.Stmt }

func (s sqlStatement) Exec(ctx context.Context, args ...any) (Result, error) {
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return sqlResult{res}, nil
}

func (s sqlStatement) Query(ctx context.Context, args ...any) (*sql.Rows, error) {
	return s.stmt.QueryContext(ctx, args...)
}

func (s sqlStatement) QueryRow(ctx context.Context, args ...any) *sql.Row {
	return s.stmt.QueryRowContext(ctx, args...)
}

func (s sqlStatement) Close() error { return s.stmt.Close() }

type sqlResult struct{ res sql.Result }

func (r sqlResult) AffectedRows() (int64, error) { return r.res.RowsAffected() }

type histogramTimer struct {
	obs prometheus.Observer
}

func (h histogramTimer) Start() func() {
	timer := prometheus.NewTimer(h.obs)
	return func() { timer.ObserveDuration() }
}
