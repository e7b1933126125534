package pool

import (
	"context"
	"database/sql"
	"time"
)

// Pool defines the interface for a database connection pool.
type Pool interface {
	Close() error
	SetMaxOpenConns(n int)
	SetMaxIdleConns(n int)
	SetConnMaxLifetime(d time.Duration)
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Options configures the pool after it is opened. Zero values keep the
// database/sql defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StdPool is an implementation of Pool using the standard library's *sql.DB.
type StdPool struct {
	*sql.DB
}

// NewStdPool creates a new StdPool wrapping the given *sql.DB.
func NewStdPool(db *sql.DB) *StdPool {
	return &StdPool{db}
}

// Open opens driver/dsn, applies opts and pings the database.
func Open(ctx context.Context, driver, dsn string, opts *Options) (*StdPool, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	p := NewStdPool(db)
	p.Configure(opts)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// Configure applies opts; nil is ignored.
func (p *StdPool) Configure(opts *Options) {
	if opts == nil {
		return
	}
	if opts.MaxOpenConns > 0 {
		p.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		p.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		p.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
}
