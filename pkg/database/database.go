// Package database opens the transit store and wraps it with a statement
// trace so every storage operation can be logged and timed.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/pkg/config"
)

// Observer receives query timings, typically a Prometheus histogram.
type Observer interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type tracer struct {
	log      *zap.Logger
	observer Observer
}

func (t *tracer) trace(op, query string, args int, start time.Time, err error) {
	duration := time.Since(start)
	if t.observer != nil {
		t.observer.ObserveDBQuery(queryLabel(query), duration)
	}
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("query", query),
		zap.Int("args", args),
		zap.Duration("duration", duration),
	}
	if err != nil && err != sql.ErrNoRows {
		t.log.Error("storage operation failed", append(fields, zap.Error(err))...)
		return
	}
	t.log.Debug("storage operation", fields...)
}

// DB is the explicit store handle shared by every repository.
//
// Queries are written with '?' placeholders and rebound for the underlying
// driver before execution.
type DB struct {
	*sqlx.DB
	*tracer
	driver string
}

// Wrap decorates an open sqlx handle. A nil logger disables the trace.
func Wrap(db *sqlx.DB, log *zap.Logger) *DB {
	if log == nil {
		log = zap.NewNop()
	}
	return &DB{DB: db, tracer: &tracer{log: log}, driver: db.DriverName()}
}

// Open connects to the store selected by cfg.Driver.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = NewPostgres(cfg)
	case config.DriverSQLite, "":
		db, err = NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return Wrap(db, log), nil
}

// SetObserver attaches a timing observer to the handle.
func (d *DB) SetObserver(o Observer) {
	d.observer = o
}

// Driver returns the registered driver name.
func (d *DB) Driver() string {
	return d.driver
}

// GetContext runs a single-row query into dest.
func (d *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	query = d.Rebind(query)
	start := time.Now()
	err := d.DB.GetContext(ctx, dest, query, args...)
	d.trace("get", query, len(args), start, err)
	return err
}

// SelectContext runs a multi-row query into dest.
func (d *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	query = d.Rebind(query)
	start := time.Now()
	err := d.DB.SelectContext(ctx, dest, query, args...)
	d.trace("select", query, len(args), start, err)
	return err
}

// ExecContext runs a statement without returning rows.
func (d *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	query = d.Rebind(query)
	start := time.Now()
	res, err := d.DB.ExecContext(ctx, query, args...)
	d.trace("exec", query, len(args), start, err)
	return res, err
}

// BeginTxx starts a traced transaction.
func (d *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	start := time.Now()
	tx, err := d.DB.BeginTxx(ctx, opts)
	d.trace("begin", "BEGIN", 0, start, err)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, tracer: d.tracer}, nil
}

// Tx is a traced transaction.
type Tx struct {
	*sqlx.Tx
	*tracer
}

// GetContext runs a single-row query inside the transaction.
func (t *Tx) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	query = t.Rebind(query)
	start := time.Now()
	err := t.Tx.GetContext(ctx, dest, query, args...)
	t.trace("get", query, len(args), start, err)
	return err
}

// ExecContext runs a statement inside the transaction.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	query = t.Rebind(query)
	start := time.Now()
	res, err := t.Tx.ExecContext(ctx, query, args...)
	t.trace("exec", query, len(args), start, err)
	return res, err
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	start := time.Now()
	err := t.Tx.Commit()
	t.trace("commit", "COMMIT", 0, start, err)
	return err
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	start := time.Now()
	err := t.Tx.Rollback()
	if err == sql.ErrTxDone {
		return err
	}
	t.trace("rollback", "ROLLBACK", 0, start, err)
	return err
}

// queryLabel reduces a statement to "<verb> <table>" for metric labels.
func queryLabel(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "unknown"
	}
	verb := fields[0]
	for i, f := range fields {
		if (f == "from" || f == "into" || f == "update") && i+1 < len(fields) {
			return verb + " " + strings.Trim(fields[i+1], "(),")
		}
	}
	return verb
}
