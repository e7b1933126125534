package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shrek82/sqlchain/config"
	"github.com/shrek82/sqlchain/dialect"
	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/plugin"
	"github.com/shrek82/sqlchain/pool"
)

// Options defines the configuration for the DB connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          logger.Logger
}

// DB is the main entry point. It owns the connection pool, the interceptor
// chain and the registered statements, and creates sessions.
//
// Interceptors must be registered before the first session is created; the
// chain is sealed from then on.
type DB struct {
	pool    *pool.StdPool
	dialect dialect.Dialect
	logger  logger.Logger
	chain   *plugin.Chain

	mu         sync.RWMutex
	statements map[string]*mapping.MappedStatement
}

// Open initializes a new DB instance with the given driver and DSN.
func Open(driver, dsn string, opts *Options) (*DB, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, driver)
	}
	var poolOpts *pool.Options
	if opts != nil {
		poolOpts = &pool.Options{
			MaxOpenConns:    opts.MaxOpenConns,
			MaxIdleConns:    opts.MaxIdleConns,
			ConnMaxLifetime: opts.ConnMaxLifetime,
		}
	}
	p, err := pool.Open(context.Background(), driver, dsn, poolOpts)
	if err != nil {
		return nil, err
	}
	db := New(p, d)
	if opts != nil && opts.Logger != nil {
		db.logger = opts.Logger
	}
	return db, nil
}

// New creates a DB over an open pool.
func New(p *pool.StdPool, d dialect.Dialect) *DB {
	return &DB{
		pool:       p,
		dialect:    d,
		logger:     logger.NewStdLogger(),
		chain:      plugin.NewChain(),
		statements: make(map[string]*mapping.MappedStatement),
	}
}

// OpenConfig opens the configured database, builds the logger, registers
// the configured interceptors in order and adds the configured statements.
func OpenConfig(cfg *config.Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	db, err := Open(cfg.Database.Driver, cfg.Database.DSN, &Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          l,
	})
	if err != nil {
		return nil, err
	}
	if err := db.configure(cfg); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) configure(cfg *config.Config) error {
	for _, pc := range cfg.Plugins {
		i, err := plugin.New(pc.Name)
		if err != nil {
			return err
		}
		if ls, ok := i.(interface{ SetLogger(logger.Logger) }); ok {
			ls.SetLogger(db.logger)
		}
		if err := db.UseWithProperties(i, pc.Properties); err != nil {
			return fmt.Errorf("plugin %s: %w", pc.Name, err)
		}
	}
	for _, sc := range cfg.Statements {
		ms, err := sc.MappedStatement()
		if err != nil {
			return err
		}
		if err := db.AddStatement(ms); err != nil {
			return err
		}
	}
	return nil
}

// NewLogger builds the logger described by c.
func NewLogger(c config.LogConfig) (logger.Logger, error) {
	level, err := logger.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if c.Format == "zap" {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapLevel(level))
		zl, err := zc.Build()
		if err != nil {
			return nil, err
		}
		return logger.NewZapLogger(zl), nil
	}
	l := logger.NewStdLogger()
	l.SetLevel(level)
	if c.Format == string(logger.LogFormatJSON) {
		l.SetFormat(logger.LogFormatJSON)
	}
	return l, nil
}

func zapLevel(level logger.LogLevel) zapcore.Level {
	switch level {
	case logger.LogLevelDebug:
		return zapcore.DebugLevel
	case logger.LogLevelWarn:
		return zapcore.WarnLevel
	case logger.LogLevelError:
		return zapcore.ErrorLevel
	case logger.LogLevelSilent:
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}

// Close closes the registered interceptors that hold resources, outermost
// first, and then the connection pool.
func (db *DB) Close() error {
	var errs []error
	interceptors := db.chain.Interceptors()
	for i := len(interceptors) - 1; i >= 0; i-- {
		if c, ok := interceptors[i].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %T: %w", interceptors[i], err))
			}
		}
	}
	errs = append(errs, db.pool.Close())
	return errors.Join(errs...)
}

// SetLogger sets a custom logger for the DB.
func (db *DB) SetLogger(l logger.Logger) {
	if l == nil {
		l = logger.Nop
	}
	db.logger = l
}

func (db *DB) Logger() logger.Logger { return db.logger }

func (db *DB) Dialect() dialect.Dialect { return db.dialect }

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pool.StdPool { return db.pool }

// Chain returns the interceptor chain.
func (db *DB) Chain() *plugin.Chain { return db.chain }

// Use registers interceptors in order; the last one is the outermost.
func (db *DB) Use(interceptors ...plugin.Interceptor) error {
	for _, i := range interceptors {
		if err := db.chain.Add(i); err != nil {
			return err
		}
	}
	return nil
}

// UseWithProperties registers i and delivers props to it once.
func (db *DB) UseWithProperties(i plugin.Interceptor, props plugin.Properties) error {
	return db.chain.AddWithProperties(i, props)
}

// AddStatement registers ms under its id.
func (db *DB) AddStatement(ms *mapping.MappedStatement) error {
	if err := ms.Validate(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.statements[ms.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStatement, ms.ID)
	}
	db.statements[ms.ID] = ms
	return nil
}

// Statement returns the statement registered under id.
func (db *DB) Statement(id string) (*mapping.MappedStatement, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ms, ok := db.statements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStatementNotFound, id)
	}
	return ms, nil
}

// StatementIDs lists the registered statement ids, sorted.
func (db *DB) StatementIDs() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ids := make([]string, 0, len(db.statements))
	for id := range db.statements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewSession creates an autocommit session.
func (db *DB) NewSession() (*Session, error) {
	return db.newSession(db.pool, false)
}

// BeginSession starts a transaction and returns a session bound to it.
func (db *DB) BeginSession(ctx context.Context, opts *sql.TxOptions) (*Session, error) {
	start := time.Now()
	tx, err := db.pool.BeginTx(ctx, opts)
	db.logSQL("BEGIN", time.Since(start))
	if err != nil {
		return nil, err
	}
	s, err := db.newSession(tx, true)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return s, nil
}

// Transaction runs fn in a transactional session. It commits when fn
// returns nil, rolls back when fn fails and rolls back and re-panics when
// fn panics.
func (db *DB) Transaction(ctx context.Context, fn func(s *Session) error) (err error) {
	s, err := db.BeginSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	defer func() {
		if p := recover(); p != nil {
			_ = s.Rollback()
			panic(p)
		} else if err != nil {
			_ = s.Rollback()
		} else {
			err = s.Commit()
		}
	}()

	err = fn(s)
	return err
}

// logSQL logs the SQL execution if a logger is set.
func (db *DB) logSQL(sql string, duration time.Duration, args ...any) {
	if db.logger != nil {
		db.logger.SQL(sql, duration, args...)
	}
}
