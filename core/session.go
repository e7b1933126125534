package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/mapping"
)

// Session runs registered statements on one executor. A session created by
// BeginSession owns a transaction that Commit or Rollback ends; otherwise
// every statement autocommits. A Session is not safe for concurrent use.
type Session struct {
	id     string
	db     *DB
	exec   executor.Executor
	tx     bool
	ended  bool
	closed atomic.Bool
}

func (db *DB) newSession(conn executor.Conn, tx bool) (*Session, error) {
	id := uuid.NewString()
	factory := executor.NewFactory(db.chain, db.dialect, db.logger.WithFields(map[string]any{"session": id}))
	exec, err := factory.NewExecutor(conn)
	if err != nil {
		return nil, err
	}
	return &Session{id: id, db: db, exec: exec, tx: tx}, nil
}

// ID identifies the session in log lines.
func (s *Session) ID() string { return s.id }

// InTransaction reports whether the session owns a transaction.
func (s *Session) InTransaction() bool { return s.tx }

func (s *Session) statement(id string) (*mapping.MappedStatement, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.db.Statement(id)
}

// SelectRows runs the statement and returns its rows inside bounds.
func (s *Session) SelectRows(ctx context.Context, id string, param any, bounds executor.RowBounds) ([]executor.Row, error) {
	ms, err := s.statement(id)
	if err != nil {
		return nil, err
	}
	return s.exec.Query(ctx, ms, param, bounds)
}

// SelectList maps every row into dest, a pointer to a slice.
func (s *Session) SelectList(ctx context.Context, id string, param any, dest any) error {
	return s.SelectPage(ctx, id, param, executor.DefaultRowBounds, dest)
}

// SelectPage maps the rows inside bounds into dest, a pointer to a slice.
func (s *Session) SelectPage(ctx context.Context, id string, param any, bounds executor.RowBounds, dest any) error {
	rows, err := s.SelectRows(ctx, id, param, bounds)
	if err != nil {
		return err
	}
	return mapRows(rows, dest)
}

// SelectOne maps the single row the statement returns into dest. It returns
// ErrRecordNotFound for no rows and ErrTooManyResults for more than one.
func (s *Session) SelectOne(ctx context.Context, id string, param any, dest any) error {
	rows, err := s.SelectRows(ctx, id, param, executor.DefaultRowBounds)
	if err != nil {
		return err
	}
	switch len(rows) {
	case 0:
		return ErrRecordNotFound
	case 1:
		return mapRow(rows[0], dest)
	}
	return fmt.Errorf("%w: %s returned %d rows", ErrTooManyResults, id, len(rows))
}

// Insert runs an insert statement with the BeforeInsert and AfterInsert
// hooks of param.
func (s *Session) Insert(ctx context.Context, id string, param any) (int64, error) {
	if h, ok := param.(BeforeInserter); ok {
		if err := h.BeforeInsert(); err != nil {
			return 0, err
		}
	}
	affected, err := s.update(ctx, id, param)
	if err != nil {
		return 0, err
	}
	if h, ok := param.(AfterInserter); ok {
		if err := h.AfterInsert(affected); err != nil {
			return affected, err
		}
	}
	return affected, nil
}

// Update runs an update statement with the BeforeUpdate and AfterUpdate
// hooks of param.
func (s *Session) Update(ctx context.Context, id string, param any) (int64, error) {
	if h, ok := param.(BeforeUpdater); ok {
		if err := h.BeforeUpdate(); err != nil {
			return 0, err
		}
	}
	affected, err := s.update(ctx, id, param)
	if err != nil {
		return 0, err
	}
	if h, ok := param.(AfterUpdater); ok {
		if err := h.AfterUpdate(affected); err != nil {
			return affected, err
		}
	}
	return affected, nil
}

// Delete runs a delete statement with the BeforeDelete and AfterDelete
// hooks of param.
func (s *Session) Delete(ctx context.Context, id string, param any) (int64, error) {
	if h, ok := param.(BeforeDeleter); ok {
		if err := h.BeforeDelete(); err != nil {
			return 0, err
		}
	}
	affected, err := s.update(ctx, id, param)
	if err != nil {
		return 0, err
	}
	if h, ok := param.(AfterDeleter); ok {
		if err := h.AfterDelete(affected); err != nil {
			return affected, err
		}
	}
	return affected, nil
}

func (s *Session) update(ctx context.Context, id string, param any) (int64, error) {
	ms, err := s.statement(id)
	if err != nil {
		return 0, err
	}
	if ms.Command == mapping.Select {
		return 0, fmt.Errorf("%w: %s is a select", mapping.ErrInvalidStatement, id)
	}
	return s.exec.Update(ctx, ms, param)
}

// Commit commits the session's transaction.
func (s *Session) Commit() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.ended = s.tx
	return s.exec.Commit()
}

// Rollback rolls back the session's transaction.
func (s *Session) Rollback() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.ended = s.tx
	return s.exec.Rollback()
}

// Close closes the session. An open transaction is rolled back first.
// Closing twice is a no-op.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var rbErr error
	if s.tx && !s.ended {
		if err := s.exec.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			rbErr = err
		}
	}
	return errors.Join(rbErr, s.exec.Close())
}
