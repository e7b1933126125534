package model

import (
	"reflect"
)

// Field represents a struct property mapped from a struct field
type Field struct {
	Name   string       // Struct field name
	Column string       // Result column name
	Type   reflect.Type // Field type
	Index  []int        // Field index path, embedded structs included
	Tag    string       // Raw tag string
}

// Value returns the field of v, which must be a struct value.
// Nil embedded pointers yield an invalid Value.
func (f *Field) Value(v reflect.Value) reflect.Value {
	fv, err := v.FieldByIndexErr(f.Index)
	if err != nil {
		return reflect.Value{}
	}
	return fv
}
