package mapping

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidMapping reports a parameter mapping that cannot be bound.
var ErrInvalidMapping = errors.New("invalid parameter mapping")

// ParameterMode is the direction of a bind variable.
type ParameterMode int

const (
	ModeIn ParameterMode = iota
	ModeOut
	ModeInOut
)

func (m ParameterMode) String() string {
	switch m {
	case ModeIn:
		return "IN"
	case ModeOut:
		return "OUT"
	case ModeInOut:
		return "INOUT"
	}
	return fmt.Sprintf("ParameterMode(%d)", int(m))
}

// ParseParameterMode accepts IN, OUT and INOUT; empty means IN.
func ParseParameterMode(s string) (ParameterMode, error) {
	switch s {
	case "", "IN", "in":
		return ModeIn, nil
	case "OUT", "out":
		return ModeOut, nil
	case "INOUT", "inout":
		return ModeInOut, nil
	}
	return ModeIn, fmt.Errorf("%w: unknown mode %q", ErrInvalidMapping, s)
}

// ParameterMapping declares one bind variable of a statement.
type ParameterMapping struct {
	// Property is resolved against the additional parameters, then the
	// parameter object.
	Property string
	Mode     ParameterMode

	// GoType is required for OUT, optional otherwise.
	GoType reflect.Type

	// SQLType is informational, e.g. VARCHAR.
	SQLType      string
	NumericScale int
}

// In is a shortcut for an input mapping of property.
func In(property string) ParameterMapping {
	return ParameterMapping{Property: property, Mode: ModeIn}
}

// Validate checks that the mapping can be bound.
func (pm ParameterMapping) Validate() error {
	if pm.Property == "" {
		return fmt.Errorf("%w: empty property", ErrInvalidMapping)
	}
	if pm.Mode == ModeOut && pm.GoType == nil {
		return fmt.Errorf("%w: OUT parameter %q needs a Go type", ErrInvalidMapping, pm.Property)
	}
	return nil
}

// IsOutput reports whether the database writes the parameter back.
func (pm ParameterMapping) IsOutput() bool {
	return pm.Mode == ModeOut || pm.Mode == ModeInOut
}
