// Package executor runs mapped statements against a database/sql connection
// through four interceptable components: the executor, the statement
// handler, the parameter handler and the result-set handler.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/shrek82/sqlchain/mapping"
)

var (
	// ErrExecutorClosed is returned by every call on a closed executor.
	ErrExecutorClosed = errors.New("executor closed")
	// ErrNilStatement is returned when a nil mapped statement is executed.
	ErrNilStatement = errors.New("nil mapped statement")
	// ErrOutputParameter is returned when OUT values cannot be copied back.
	ErrOutputParameter = errors.New("output parameter")
)

// Row is one result row keyed by column name.
type Row map[string]any

// NoRowLimit disables the row limit of RowBounds.
const NoRowLimit = math.MaxInt

// RowBounds restricts the rows a query returns.
type RowBounds struct {
	Offset int
	Limit  int
}

// DefaultRowBounds returns every row.
var DefaultRowBounds = RowBounds{Offset: 0, Limit: NoRowLimit}

// NewRowBounds builds bounds; a non-positive limit means no limit.
func NewRowBounds(offset, limit int) RowBounds {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = NoRowLimit
	}
	return RowBounds{Offset: offset, Limit: limit}
}

// IsDefault reports whether b leaves the result untouched.
func (b RowBounds) IsDefault() bool {
	return b.Offset <= 0 && (b.Limit <= 0 || b.Limit == NoRowLimit)
}

// Conn is what statements run on. *sql.DB, *sql.Tx and *sql.Conn implement it.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Tx is a Conn that ends with a commit or a rollback.
type Tx interface {
	Conn
	Commit() error
	Rollback() error
}

// Executor runs mapped statements for one session.
type Executor interface {
	Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds RowBounds) ([]Row, error)
	Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error)
	Commit() error
	Rollback() error
	Close() error
}

// StatementHandler runs one bound statement.
type StatementHandler interface {
	BoundSQL() (*mapping.BoundSQL, error)
	Parameterize() ([]any, error)
	Query(ctx context.Context, conn Conn, args []any) ([]Row, error)
	Update(ctx context.Context, conn Conn, args []any) (int64, error)
}

// ParameterHandler turns parameter mappings into driver arguments.
type ParameterHandler interface {
	Parameters() ([]any, error)
	HandleOutputParameters(args []any) error
}

// ResultSetHandler turns rows into Row values.
type ResultSetHandler interface {
	HandleResultSets(rows *sql.Rows) ([]Row, error)
}
