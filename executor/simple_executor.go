package executor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shrek82/sqlchain/mapping"
)

// SimpleExecutor creates a statement handler per call and runs it on its
// connection. When the connection is a Tx, Commit and Rollback end it;
// otherwise every statement autocommits and both are no-ops.
type SimpleExecutor struct {
	factory *Factory
	conn    Conn
	closed  atomic.Bool
}

func (e *SimpleExecutor) Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds RowBounds) ([]Row, error) {
	handler, ctx, cancel, err := e.prepare(ctx, ms, param, bounds)
	if err != nil {
		return nil, err
	}
	defer cancel()
	args, err := handler.Parameterize()
	if err != nil {
		return nil, err
	}
	return handler.Query(ctx, e.conn, args)
}

func (e *SimpleExecutor) Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error) {
	handler, ctx, cancel, err := e.prepare(ctx, ms, param, DefaultRowBounds)
	if err != nil {
		return 0, err
	}
	defer cancel()
	args, err := handler.Parameterize()
	if err != nil {
		return 0, err
	}
	return handler.Update(ctx, e.conn, args)
}

func (e *SimpleExecutor) prepare(ctx context.Context, ms *mapping.MappedStatement, param any, bounds RowBounds) (StatementHandler, context.Context, context.CancelFunc, error) {
	if e.closed.Load() {
		return nil, nil, nil, ErrExecutorClosed
	}
	if ms == nil {
		return nil, nil, nil, ErrNilStatement
	}
	boundSQL, err := ms.BoundSQL(param)
	if err != nil {
		return nil, nil, nil, err
	}
	handler, err := e.factory.NewStatementHandler(ms, bounds, boundSQL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("statement %s: %w", ms.ID, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cancel := context.CancelFunc(func() {})
	if ms.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, ms.Timeout)
	}
	return handler, ctx, cancel, nil
}

func (e *SimpleExecutor) Commit() error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	tx, ok := e.conn.(Tx)
	if !ok {
		return nil
	}
	start := time.Now()
	err := tx.Commit()
	e.factory.logger.SQL("COMMIT", time.Since(start))
	return err
}

func (e *SimpleExecutor) Rollback() error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	tx, ok := e.conn.(Tx)
	if !ok {
		return nil
	}
	start := time.Now()
	err := tx.Rollback()
	e.factory.logger.SQL("ROLLBACK", time.Since(start))
	return err
}

// Close marks the executor closed. It does not end an open transaction;
// callers commit or roll back first.
func (e *SimpleExecutor) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrExecutorClosed
	}
	return nil
}
