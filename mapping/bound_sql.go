// Package mapping holds the statement model passed through intercepted calls.
package mapping

import (
	"maps"
	"slices"
	"sync"

	"github.com/shrek82/sqlchain/reflection"
)

// BoundSQL is one finalized statement for a single execution: SQL text,
// ordered parameter mappings, the caller's parameter object and a side
// channel of additional parameters computed while the statement was built.
//
// The SQL text and mappings never change after construction. The additional
// parameters belong to one execution and must not be shared between
// executions.
type BoundSQL struct {
	sql       string
	mappings  []ParameterMapping
	param     any
	mu        sync.RWMutex
	additions map[string]any
	meta      *reflection.MetaObject
}

// NewBoundSQL copies mappings so later changes by the caller are not seen.
func NewBoundSQL(sql string, mappings []ParameterMapping, param any) *BoundSQL {
	additions := make(map[string]any)
	return &BoundSQL{
		sql:       sql,
		mappings:  slices.Clone(mappings),
		param:     param,
		additions: additions,
		meta:      reflection.ForObject(additions),
	}
}

func (b *BoundSQL) SQL() string { return b.sql }

// ParameterMappings returns a copy of the mappings in bind order.
func (b *BoundSQL) ParameterMappings() []ParameterMapping {
	return slices.Clone(b.mappings)
}

func (b *BoundSQL) ParameterObject() any { return b.param }

// HasAdditionalParameter reports whether the root segment of path has been
// set. It does not check that the rest of the path resolves.
func (b *BoundSQL) HasAdditionalParameter(path string) bool {
	root := reflection.RootName(path)
	if root == "" {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.additions[root]
	return ok
}

// SetAdditionalParameter stores value at path, creating intermediate maps
// and slices as needed.
func (b *BoundSQL) SetAdditionalParameter(path string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meta.SetValue(path, value)
}

// AdditionalParameter resolves path. A value that was never set yields nil
// and no error; a path that does not fit the stored structure is an error.
func (b *BoundSQL) AdditionalParameter(path string) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.meta.GetValue(path)
}

// AdditionalParameters returns a shallow copy of the additional parameters.
func (b *BoundSQL) AdditionalParameters() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.additions)
}

// Derive returns a BoundSQL for the same execution with new SQL text and
// extra mappings appended. The parameter object is shared and the
// additional parameters are copied.
func (b *BoundSQL) Derive(sql string, extra ...ParameterMapping) *BoundSQL {
	d := NewBoundSQL(sql, append(b.ParameterMappings(), extra...), b.param)
	b.mu.RLock()
	maps.Copy(d.additions, b.additions)
	b.mu.RUnlock()
	return d
}
