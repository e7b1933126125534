// Package middleware provides ready-made interceptors: slow statement
// logging, tracing, a circuit breaker, result caching, pagination, an
// injection guard and auditing.
package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/plugin"
)

func init() {
	plugin.RegisterFactory("slowlog", func() plugin.Interceptor { return NewSlowLog(time.Second) })
	plugin.RegisterFactory("tracing", func() plugin.Interceptor { return NewTracing() })
	plugin.RegisterFactory("circuitbreaker", func() plugin.Interceptor { return NewCircuitBreaker(5, 30*time.Second) })
	plugin.RegisterFactory("memorycache", func() plugin.Interceptor { return NewCache(NewMemoryStore(), 5*time.Minute) })
	plugin.RegisterFactory("filecache", func() plugin.Interceptor { return &Cache{DefaultTTL: 5 * time.Minute, open: openFileStore} })
	plugin.RegisterFactory("rediscache", func() plugin.Interceptor { return &Cache{DefaultTTL: 5 * time.Minute, open: openRedisStore} })
	plugin.RegisterFactory("pagination", func() plugin.Interceptor { return &Pagination{} })
	plugin.RegisterFactory("injectionguard", func() plugin.Interceptor { return NewInjectionGuard() })
}

// LoggerSetter is implemented by interceptors that log.
type LoggerSetter interface {
	SetLogger(l logger.Logger)
}

func orNop(l logger.Logger) logger.Logger {
	if l == nil {
		return logger.Nop
	}
	return l
}

// executorCall unpacks the arguments of Executor.Query and Executor.Update.
func executorCall(inv *plugin.Invocation) (context.Context, *mapping.MappedStatement, any) {
	args := inv.Args()
	ctx := plugin.Arg[context.Context](args, 0)
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, plugin.Arg[*mapping.MappedStatement](args, 1), args[2]
}

func durationProp(props plugin.Properties, key string, def time.Duration) (time.Duration, error) {
	v, ok := props[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("property %s: %w", key, err)
	}
	return d, nil
}

func intProp(props plugin.Properties, key string, def int) (int, error) {
	v, ok := props[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("property %s: %w", key, err)
	}
	return n, nil
}

var (
	executorSignatures = []plugin.Signature{
		executor.ExecutorQuery.Signature(),
		executor.ExecutorUpdate.Signature(),
	}
	statementSignatures = []plugin.Signature{
		executor.StatementQuery.Signature(),
		executor.StatementUpdate.Signature(),
	}
)
