package executor

import (
	"context"
	"database/sql"

	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/plugin"
)

// Interceptable methods. Interceptors declare them with Method.Signature().
var (
	ExecutorQuery    = plugin.MethodOf[Executor]("Query")
	ExecutorUpdate   = plugin.MethodOf[Executor]("Update")
	ExecutorCommit   = plugin.MethodOf[Executor]("Commit")
	ExecutorRollback = plugin.MethodOf[Executor]("Rollback")
	ExecutorClose    = plugin.MethodOf[Executor]("Close")

	StatementBoundSQL     = plugin.MethodOf[StatementHandler]("BoundSQL")
	StatementParameterize = plugin.MethodOf[StatementHandler]("Parameterize")
	StatementQuery        = plugin.MethodOf[StatementHandler]("Query")
	StatementUpdate       = plugin.MethodOf[StatementHandler]("Update")

	ParameterParameters       = plugin.MethodOf[ParameterHandler]("Parameters")
	ParameterHandleOutputArgs = plugin.MethodOf[ParameterHandler]("HandleOutputParameters")

	ResultSetHandle = plugin.MethodOf[ResultSetHandler]("HandleResultSets")
)

func init() {
	plugin.RegisterProxy[Executor](func(target Executor, p *plugin.Plugin) Executor {
		return &executorProxy{target: target, plugin: p}
	})
	plugin.RegisterProxy[StatementHandler](func(target StatementHandler, p *plugin.Plugin) StatementHandler {
		return &statementProxy{target: target, plugin: p}
	})
	plugin.RegisterProxy[ParameterHandler](func(target ParameterHandler, p *plugin.Plugin) ParameterHandler {
		return &parameterProxy{target: target, plugin: p}
	})
	plugin.RegisterProxy[ResultSetHandler](func(target ResultSetHandler, p *plugin.Plugin) ResultSetHandler {
		return &resultSetProxy{target: target, plugin: p}
	})
}

type executorProxy struct {
	target Executor
	plugin *plugin.Plugin
}

func (e *executorProxy) Node() *plugin.Plugin { return e.plugin }

func (e *executorProxy) Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds RowBounds) ([]Row, error) {
	if !e.plugin.Matches(ExecutorQuery) {
		return e.target.Query(ctx, ms, param, bounds)
	}
	return plugin.Result[[]Row](e.plugin.Invoke(ExecutorQuery, []any{ctx, ms, param, bounds}, func(args []any) (any, error) {
		return e.target.Query(plugin.Arg[context.Context](args, 0), plugin.Arg[*mapping.MappedStatement](args, 1), args[2], plugin.Arg[RowBounds](args, 3))
	}))
}

func (e *executorProxy) Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error) {
	if !e.plugin.Matches(ExecutorUpdate) {
		return e.target.Update(ctx, ms, param)
	}
	return plugin.Result[int64](e.plugin.Invoke(ExecutorUpdate, []any{ctx, ms, param}, func(args []any) (any, error) {
		return e.target.Update(plugin.Arg[context.Context](args, 0), plugin.Arg[*mapping.MappedStatement](args, 1), args[2])
	}))
}

func (e *executorProxy) Commit() error {
	if !e.plugin.Matches(ExecutorCommit) {
		return e.target.Commit()
	}
	_, err := e.plugin.Invoke(ExecutorCommit, []any{}, func([]any) (any, error) {
		return nil, e.target.Commit()
	})
	return err
}

func (e *executorProxy) Rollback() error {
	if !e.plugin.Matches(ExecutorRollback) {
		return e.target.Rollback()
	}
	_, err := e.plugin.Invoke(ExecutorRollback, []any{}, func([]any) (any, error) {
		return nil, e.target.Rollback()
	})
	return err
}

func (e *executorProxy) Close() error {
	if !e.plugin.Matches(ExecutorClose) {
		return e.target.Close()
	}
	_, err := e.plugin.Invoke(ExecutorClose, []any{}, func([]any) (any, error) {
		return nil, e.target.Close()
	})
	return err
}

type statementProxy struct {
	target StatementHandler
	plugin *plugin.Plugin
}

func (s *statementProxy) Node() *plugin.Plugin { return s.plugin }

func (s *statementProxy) BoundSQL() (*mapping.BoundSQL, error) {
	if !s.plugin.Matches(StatementBoundSQL) {
		return s.target.BoundSQL()
	}
	return plugin.Result[*mapping.BoundSQL](s.plugin.Invoke(StatementBoundSQL, []any{}, func([]any) (any, error) {
		return s.target.BoundSQL()
	}))
}

func (s *statementProxy) Parameterize() ([]any, error) {
	if !s.plugin.Matches(StatementParameterize) {
		return s.target.Parameterize()
	}
	return plugin.Result[[]any](s.plugin.Invoke(StatementParameterize, []any{}, func([]any) (any, error) {
		return s.target.Parameterize()
	}))
}

func (s *statementProxy) Query(ctx context.Context, conn Conn, args []any) ([]Row, error) {
	if !s.plugin.Matches(StatementQuery) {
		return s.target.Query(ctx, conn, args)
	}
	return plugin.Result[[]Row](s.plugin.Invoke(StatementQuery, []any{ctx, conn, args}, func(a []any) (any, error) {
		return s.target.Query(plugin.Arg[context.Context](a, 0), plugin.Arg[Conn](a, 1), plugin.Arg[[]any](a, 2))
	}))
}

func (s *statementProxy) Update(ctx context.Context, conn Conn, args []any) (int64, error) {
	if !s.plugin.Matches(StatementUpdate) {
		return s.target.Update(ctx, conn, args)
	}
	return plugin.Result[int64](s.plugin.Invoke(StatementUpdate, []any{ctx, conn, args}, func(a []any) (any, error) {
		return s.target.Update(plugin.Arg[context.Context](a, 0), plugin.Arg[Conn](a, 1), plugin.Arg[[]any](a, 2))
	}))
}

type parameterProxy struct {
	target ParameterHandler
	plugin *plugin.Plugin
}

func (p *parameterProxy) Node() *plugin.Plugin { return p.plugin }

func (p *parameterProxy) Parameters() ([]any, error) {
	if !p.plugin.Matches(ParameterParameters) {
		return p.target.Parameters()
	}
	return plugin.Result[[]any](p.plugin.Invoke(ParameterParameters, []any{}, func([]any) (any, error) {
		return p.target.Parameters()
	}))
}

func (p *parameterProxy) HandleOutputParameters(args []any) error {
	if !p.plugin.Matches(ParameterHandleOutputArgs) {
		return p.target.HandleOutputParameters(args)
	}
	_, err := p.plugin.Invoke(ParameterHandleOutputArgs, []any{args}, func(a []any) (any, error) {
		return nil, p.target.HandleOutputParameters(plugin.Arg[[]any](a, 0))
	})
	return err
}

type resultSetProxy struct {
	target ResultSetHandler
	plugin *plugin.Plugin
}

func (r *resultSetProxy) Node() *plugin.Plugin { return r.plugin }

func (r *resultSetProxy) HandleResultSets(rows *sql.Rows) ([]Row, error) {
	if !r.plugin.Matches(ResultSetHandle) {
		return r.target.HandleResultSets(rows)
	}
	return plugin.Result[[]Row](r.plugin.Invoke(ResultSetHandle, []any{rows}, func(a []any) (any, error) {
		return r.target.HandleResultSets(plugin.Arg[*sql.Rows](a, 0))
	}))
}
