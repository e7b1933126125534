// Package sqlchain runs named SQL statements through a chain of
// interceptors. It re-exports the entry points of the core package.
package sqlchain

import (
	"github.com/shrek82/sqlchain/core"
	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/plugin"
)

// Re-export core types and functions
type DB = core.DB
type Session = core.Session
type Options = core.Options

var (
	Open       = core.Open
	OpenConfig = core.OpenConfig
)

// Re-export the types interceptors are written against
type Interceptor = plugin.Interceptor
type Invocation = plugin.Invocation
type Signature = plugin.Signature
type Properties = plugin.Properties
type MappedStatement = mapping.MappedStatement
type BoundSQL = mapping.BoundSQL
type RowBounds = executor.RowBounds
type Row = executor.Row

var (
	Func           = plugin.Func
	NewRowBounds   = executor.NewRowBounds
	ErrNotFound    = core.ErrRecordNotFound
	ErrTooMany     = core.ErrTooManyResults
	ErrChainSealed = plugin.ErrChainSealed
)
