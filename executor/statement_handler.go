package executor

import (
	"context"
	"database/sql"
	"time"

	"github.com/shrek82/sqlchain/dialect"
	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/mapping"
)

// DefaultStatementHandler runs a BoundSQL according to its statement type:
// STATEMENT directly on the connection, PREPARED and CALLABLE through a
// prepared statement. CALLABLE copies OUT parameters back after the call.
type DefaultStatementHandler struct {
	ms       *mapping.MappedStatement
	boundSQL *mapping.BoundSQL
	params   ParameterHandler
	results  ResultSetHandler
	dialect  dialect.Dialect
	logger   logger.Logger
}

func (h *DefaultStatementHandler) BoundSQL() (*mapping.BoundSQL, error) {
	return h.boundSQL, nil
}

func (h *DefaultStatementHandler) Parameterize() ([]any, error) {
	return h.params.Parameters()
}

func (h *DefaultStatementHandler) Query(ctx context.Context, conn Conn, args []any) ([]Row, error) {
	query := h.sql()
	start := time.Now()
	rows, release, err := h.query(ctx, conn, query, args)
	h.logger.SQL(query, time.Since(start), args...)
	if err != nil {
		return nil, err
	}
	defer release()
	defer rows.Close()

	result, err := h.results.HandleResultSets(rows)
	if err != nil {
		return nil, err
	}
	if h.ms.StatementType == mapping.Callable {
		// OUT values are only final once the rows are drained.
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := h.params.HandleOutputParameters(args); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (h *DefaultStatementHandler) Update(ctx context.Context, conn Conn, args []any) (int64, error) {
	query := h.sql()
	start := time.Now()
	res, err := h.exec(ctx, conn, query, args)
	h.logger.SQL(query, time.Since(start), args...)
	if err != nil {
		return 0, err
	}
	if h.ms.StatementType == mapping.Callable {
		if err := h.params.HandleOutputParameters(args); err != nil {
			return 0, err
		}
	}
	return res.RowsAffected()
}

func (h *DefaultStatementHandler) sql() string {
	if h.dialect == nil {
		return h.boundSQL.SQL()
	}
	return h.dialect.Rebind(h.boundSQL.SQL())
}

func (h *DefaultStatementHandler) query(ctx context.Context, conn Conn, query string, args []any) (*sql.Rows, func(), error) {
	if h.ms.StatementType == mapping.Statement {
		rows, err := conn.QueryContext(ctx, query, args...)
		return rows, func() {}, err
	}
	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		stmt.Close()
		return nil, nil, err
	}
	return rows, func() { stmt.Close() }, nil
}

func (h *DefaultStatementHandler) exec(ctx context.Context, conn Conn, query string, args []any) (sql.Result, error) {
	if h.ms.StatementType == mapping.Statement {
		return conn.ExecContext(ctx, query, args...)
	}
	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return stmt.ExecContext(ctx, args...)
}
