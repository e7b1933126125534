package executor

import (
	"github.com/shrek82/sqlchain/dialect"
	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/plugin"
)

// Factory creates the execution components and passes each one through the
// interceptor chain exactly once, at creation.
type Factory struct {
	chain   *plugin.Chain
	dialect dialect.Dialect
	logger  logger.Logger
}

// NewFactory creates a factory. A nil chain means no interceptors and a nil
// logger discards SQL logs.
func NewFactory(chain *plugin.Chain, d dialect.Dialect, l logger.Logger) *Factory {
	if chain == nil {
		chain = plugin.NewChain()
	}
	if l == nil {
		l = logger.Nop
	}
	return &Factory{chain: chain, dialect: d, logger: l}
}

func (f *Factory) Chain() *plugin.Chain { return f.chain }

func (f *Factory) Dialect() dialect.Dialect { return f.dialect }

// NewExecutor creates an executor bound to conn.
func (f *Factory) NewExecutor(conn Conn) (Executor, error) {
	return plugin.Apply[Executor](f.chain, &SimpleExecutor{factory: f, conn: conn})
}

// NewStatementHandler creates the handler for one execution together with
// its parameter and result-set handlers.
func (f *Factory) NewStatementHandler(ms *mapping.MappedStatement, bounds RowBounds, boundSQL *mapping.BoundSQL) (StatementHandler, error) {
	params, err := f.NewParameterHandler(boundSQL)
	if err != nil {
		return nil, err
	}
	results, err := f.NewResultSetHandler(bounds)
	if err != nil {
		return nil, err
	}
	return plugin.Apply[StatementHandler](f.chain, &DefaultStatementHandler{
		ms:       ms,
		boundSQL: boundSQL,
		params:   params,
		results:  results,
		dialect:  f.dialect,
		logger:   f.logger,
	})
}

func (f *Factory) NewParameterHandler(boundSQL *mapping.BoundSQL) (ParameterHandler, error) {
	return plugin.Apply[ParameterHandler](f.chain, NewDefaultParameterHandler(boundSQL))
}

func (f *Factory) NewResultSetHandler(bounds RowBounds) (ResultSetHandler, error) {
	return plugin.Apply[ResultSetHandler](f.chain, NewDefaultResultSetHandler(bounds))
}
