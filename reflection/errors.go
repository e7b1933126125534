// Package reflection resolves property paths against maps, sequences and structs.
package reflection

import (
	"errors"
)

var (
	// ErrMalformedPath is returned when a property path cannot be parsed.
	ErrMalformedPath = errors.New("malformed property path")
	// ErrNotIndexable is returned when an index step meets a value that is neither a sequence nor a map.
	ErrNotIndexable = errors.New("value is not indexable")
	// ErrNotTraversable is returned when a named step meets a scalar value.
	ErrNotTraversable = errors.New("value has no properties")
	// ErrInvalidIndex is returned when a sequence is indexed with something other than a non-negative integer.
	ErrInvalidIndex = errors.New("invalid sequence index")
	// ErrNoSuchProperty is returned when a struct has no field for the named property.
	ErrNoSuchProperty = errors.New("no such property")
	// ErrTypeMismatch is returned when a value cannot be stored into a typed map, slice or field.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrNotSettable is returned when a write would not be visible to the caller, e.g. a struct held by value.
	ErrNotSettable = errors.New("value is not settable")
)
