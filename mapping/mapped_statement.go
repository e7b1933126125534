package mapping

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidStatement = errors.New("invalid mapped statement")

// SQLSource produces a fresh BoundSQL for each execution.
type SQLSource interface {
	BoundSQL(param any) (*BoundSQL, error)
}

// StaticSQLSource is SQL text with a fixed list of mappings.
type StaticSQLSource struct {
	SQL      string
	Mappings []ParameterMapping
}

// NewStaticSQLSource validates every mapping.
func NewStaticSQLSource(sql string, mappings ...ParameterMapping) (*StaticSQLSource, error) {
	for i, pm := range mappings {
		if err := pm.Validate(); err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
	}
	return &StaticSQLSource{SQL: sql, Mappings: mappings}, nil
}

func (s *StaticSQLSource) BoundSQL(param any) (*BoundSQL, error) {
	return NewBoundSQL(s.SQL, s.Mappings, param), nil
}

// MappedStatement is a named statement definition.
type MappedStatement struct {
	ID            string
	Command       CommandType
	StatementType StatementType
	Source        SQLSource
	Timeout       time.Duration
	UseCache      bool // results may be served from a cache interceptor
	FlushCache    bool // a cache interceptor must flush after this statement
}

// Validate checks the fields every execution relies on.
func (ms *MappedStatement) Validate() error {
	if ms.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidStatement)
	}
	if ms.Source == nil {
		return fmt.Errorf("%w: %s has no sql source", ErrInvalidStatement, ms.ID)
	}
	if ms.Command == Unknown {
		return fmt.Errorf("%w: %s has no command type", ErrInvalidStatement, ms.ID)
	}
	return nil
}

// BoundSQL builds the statement for one execution.
func (ms *MappedStatement) BoundSQL(param any) (*BoundSQL, error) {
	if ms.Source == nil {
		return nil, fmt.Errorf("%w: %s has no sql source", ErrInvalidStatement, ms.ID)
	}
	b, err := ms.Source.BoundSQL(param)
	if err != nil {
		return nil, fmt.Errorf("statement %s: %w", ms.ID, err)
	}
	return b, nil
}
