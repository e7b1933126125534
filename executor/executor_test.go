package executor_test

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/sqlchain/dialect"
	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/plugin"
)

type user struct {
	ID   int64
	Name string
	Age  int
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, name, age) VALUES (1, 'ann', 30), (2, 'bob', 25), (3, 'cid', 41), (4, 'dee', 19)`)
	require.NoError(t, err)
	return db
}

func statement(t *testing.T, id string, cmd mapping.CommandType, sqlText string, mappings ...mapping.ParameterMapping) *mapping.MappedStatement {
	t.Helper()
	src, err := mapping.NewStaticSQLSource(sqlText, mappings...)
	require.NoError(t, err)
	return &mapping.MappedStatement{ID: id, Command: cmd, Source: src}
}

func newFactory(t *testing.T, interceptors ...plugin.Interceptor) *executor.Factory {
	t.Helper()
	chain := plugin.NewChain()
	for _, i := range interceptors {
		require.NoError(t, chain.Add(i))
	}
	d, _ := dialect.Get("sqlite3")
	return executor.NewFactory(chain, d, nil)
}

func TestExecutorQuery(t *testing.T) {
	db := openDB(t)
	exec, err := newFactory(t).NewExecutor(db)
	require.NoError(t, err)

	ms := statement(t, "users.olderThan", mapping.Select,
		"SELECT id, name FROM users WHERE age > ? ORDER BY id", mapping.In("age"))

	rows, err := exec.Query(context.Background(), ms, map[string]any{"age": 20}, executor.DefaultRowBounds)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, executor.Row{"id": int64(1), "name": "ann"}, rows[0])

	rows, err = exec.Query(context.Background(), ms, &user{Age: 20}, executor.NewRowBounds(1, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0]["name"])

	rows, err = exec.Query(context.Background(), ms, 20, executor.NewRowBounds(10, 0))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecutorStatementTypes(t *testing.T) {
	db := openDB(t)
	exec, err := newFactory(t).NewExecutor(db)
	require.NoError(t, err)

	for _, st := range []mapping.StatementType{mapping.Statement, mapping.Prepared} {
		t.Run(st.String(), func(t *testing.T) {
			ms := statement(t, "users.rename", mapping.Update,
				"UPDATE users SET name = ? WHERE id = ?", mapping.In("name"), mapping.In("id"))
			ms.StatementType = st

			n, err := exec.Update(context.Background(), ms, &user{ID: 2, Name: "bo-" + st.String()})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			get := statement(t, "users.get", mapping.Select, "SELECT name FROM users WHERE id = ?", mapping.In("id"))
			get.StatementType = st
			rows, err := exec.Query(context.Background(), get, 2, executor.DefaultRowBounds)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "bo-"+st.String(), rows[0]["name"])
		})
	}
}

func TestAdditionalParametersWin(t *testing.T) {
	db := openDB(t)
	var seen []any
	spy := plugin.Func("spy", []plugin.Signature{executor.StatementParameterize.Signature()},
		func(inv *plugin.Invocation) (any, error) {
			h := inv.Target().(executor.StatementHandler)
			b, err := h.BoundSQL()
			if err != nil {
				return nil, err
			}
			if err := b.SetAdditionalParameter("ids[0]", 3); err != nil {
				return nil, err
			}
			out, err := inv.Proceed()
			seen, _ = out.([]any)
			return out, err
		})
	exec, err := newFactory(t, spy).NewExecutor(db)
	require.NoError(t, err)

	ms := statement(t, "users.byID", mapping.Select, "SELECT name FROM users WHERE id = ?", mapping.In("ids[0]"))
	rows, err := exec.Query(context.Background(), ms, map[string]any{"ids": []int{1}}, executor.DefaultRowBounds)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "cid", rows[0]["name"])
	assert.Equal(t, []any{3}, seen)
}

func TestEveryComponentIsIntercepted(t *testing.T) {
	db := openDB(t)
	var trace []string
	record := func(name string) func(*plugin.Invocation) (any, error) {
		return func(inv *plugin.Invocation) (any, error) {
			trace = append(trace, name)
			return inv.Proceed()
		}
	}
	i := plugin.Func("all", []plugin.Signature{
		executor.ExecutorQuery.Signature(),
		executor.StatementParameterize.Signature(),
		executor.StatementQuery.Signature(),
		executor.ParameterParameters.Signature(),
		executor.ResultSetHandle.Signature(),
	}, func(inv *plugin.Invocation) (any, error) {
		return record(inv.Method().Owner.Name() + "." + inv.Method().Name)(inv)
	})
	exec, err := newFactory(t, i).NewExecutor(db)
	require.NoError(t, err)

	ms := statement(t, "users.all", mapping.Select, "SELECT id FROM users")
	_, err = exec.Query(context.Background(), ms, nil, executor.DefaultRowBounds)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Executor.Query",
		"StatementHandler.Parameterize",
		"ParameterHandler.Parameters",
		"StatementHandler.Query",
		"ResultSetHandler.HandleResultSets",
	}, trace)
}

func TestCachingThenLoggingOnExecutor(t *testing.T) {
	db := openDB(t)
	var trace []string
	cache := map[string][]executor.Row{}
	useCache := false
	querySig := []plugin.Signature{executor.ExecutorQuery.Signature()}

	caching := plugin.Func("Caching", querySig, func(inv *plugin.Invocation) (any, error) {
		trace = append(trace, "Caching.intercept")
		ms := plugin.Arg[*mapping.MappedStatement](inv.Args(), 1)
		if rows, ok := cache[ms.ID]; ok && useCache {
			return rows, nil
		}
		trace = append(trace, "Caching.proceed")
		out, err := inv.Proceed()
		if err == nil {
			cache[ms.ID] = out.([]executor.Row)
		}
		return out, err
	})
	logging := plugin.Func("Logging", querySig, func(inv *plugin.Invocation) (any, error) {
		trace = append(trace, "Logging.intercept", "Logging.proceed")
		return inv.Proceed()
	})
	real := 0
	counter := plugin.Func("real", []plugin.Signature{executor.StatementQuery.Signature()}, func(inv *plugin.Invocation) (any, error) {
		real++
		return inv.Proceed()
	})

	exec, err := newFactory(t, counter, caching, logging).NewExecutor(db)
	require.NoError(t, err)
	ms := statement(t, "users.count", mapping.Select, "SELECT count(*) AS n FROM users")

	rows, err := exec.Query(context.Background(), ms, nil, executor.DefaultRowBounds)
	require.NoError(t, err)
	assert.Equal(t, int64(4), rows[0]["n"])
	assert.Equal(t, []string{"Logging.intercept", "Logging.proceed", "Caching.intercept", "Caching.proceed"}, trace)
	assert.Equal(t, 1, real)

	trace = nil
	useCache = true
	rows, err = exec.Query(context.Background(), ms, nil, executor.DefaultRowBounds)
	require.NoError(t, err)
	assert.Equal(t, int64(4), rows[0]["n"])
	assert.Equal(t, []string{"Logging.intercept", "Logging.proceed", "Caching.intercept"}, trace)
	assert.Equal(t, 1, real, "cache hit must not reach the database")
}

func TestExecutorErrorsPropagateUnchanged(t *testing.T) {
	db := openDB(t)
	denied := errors.New("denied")
	guard := plugin.Func("guard", []plugin.Signature{executor.ExecutorUpdate.Signature()}, func(inv *plugin.Invocation) (any, error) {
		return nil, denied
	})
	exec, err := newFactory(t, guard).NewExecutor(db)
	require.NoError(t, err)

	ms := statement(t, "users.wipe", mapping.Delete, "DELETE FROM users")
	_, err = exec.Update(context.Background(), ms, nil)
	assert.True(t, err == denied)

	var count int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM users").Scan(&count))
	assert.Equal(t, 4, count)
}

func TestClosedExecutor(t *testing.T) {
	db := openDB(t)
	exec, err := newFactory(t).NewExecutor(db)
	require.NoError(t, err)
	require.NoError(t, exec.Close())

	ms := statement(t, "users.all", mapping.Select, "SELECT id FROM users")
	_, err = exec.Query(context.Background(), ms, nil, executor.DefaultRowBounds)
	assert.ErrorIs(t, err, executor.ErrExecutorClosed)
	_, err = exec.Update(context.Background(), ms, nil)
	assert.ErrorIs(t, err, executor.ErrExecutorClosed)
	assert.ErrorIs(t, exec.Commit(), executor.ErrExecutorClosed)
	assert.ErrorIs(t, exec.Close(), executor.ErrExecutorClosed)
}

func TestNilStatement(t *testing.T) {
	exec, err := newFactory(t).NewExecutor(openDB(t))
	require.NoError(t, err)
	_, err = exec.Query(context.Background(), nil, nil, executor.DefaultRowBounds)
	assert.ErrorIs(t, err, executor.ErrNilStatement)
}

func TestExecutorTransaction(t *testing.T) {
	db := openDB(t)
	factory := newFactory(t)
	del := statement(t, "users.delete", mapping.Delete, "DELETE FROM users WHERE id = ?", mapping.In("id"))
	count := func() int {
		var n int
		require.NoError(t, db.QueryRow("SELECT count(*) FROM users").Scan(&n))
		return n
	}

	tx, err := db.Begin()
	require.NoError(t, err)
	exec, err := factory.NewExecutor(tx)
	require.NoError(t, err)
	_, err = exec.Update(context.Background(), del, 1)
	require.NoError(t, err)
	require.NoError(t, exec.Rollback())
	assert.Equal(t, 4, count())

	tx, err = db.Begin()
	require.NoError(t, err)
	exec, err = factory.NewExecutor(tx)
	require.NoError(t, err)
	_, err = exec.Update(context.Background(), del, 1)
	require.NoError(t, err)
	require.NoError(t, exec.Commit())
	assert.Equal(t, 3, count())

	auto, err := factory.NewExecutor(db)
	require.NoError(t, err)
	assert.NoError(t, auto.Commit(), "autocommit executors ignore Commit")
}

func TestOutputParameters(t *testing.T) {
	param := map[string]any{"id": 7}
	b := mapping.NewBoundSQL("CALL next_total(?, ?, ?)", []mapping.ParameterMapping{
		mapping.In("id"),
		{Property: "total", Mode: mapping.ModeOut, GoType: reflect.TypeFor[int64]()},
		{Property: "note", Mode: mapping.ModeInOut},
	}, param)
	param["note"] = "draft"

	h, err := newFactory(t).NewParameterHandler(b)
	require.NoError(t, err)
	args, err := h.Parameters()
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.Equal(t, 7, args[0])

	total := args[1].(sql.Out)
	assert.False(t, total.In)
	*(total.Dest.(*int64)) = 99
	note := args[2].(sql.Out)
	assert.True(t, note.In)
	assert.Equal(t, "draft", *(note.Dest.(*string)))
	*(note.Dest.(*string)) = "final"

	require.NoError(t, h.HandleOutputParameters(args))
	assert.Equal(t, int64(99), param["total"])
	assert.Equal(t, "final", param["note"])

	args[1] = int64(1)
	assert.ErrorIs(t, h.HandleOutputParameters(args), executor.ErrOutputParameter)
}

func TestRowBounds(t *testing.T) {
	assert.True(t, executor.DefaultRowBounds.IsDefault())
	assert.True(t, executor.NewRowBounds(-1, 0).IsDefault())
	assert.False(t, executor.NewRowBounds(0, 10).IsDefault())
	assert.False(t, executor.NewRowBounds(5, 0).IsDefault())
}
