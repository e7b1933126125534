package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// Model holds the property metadata of a struct type.
type Model struct {
	Name     string
	Fields   []*Field
	FieldMap map[string]*Field // keyed by column
	byName   map[string]*Field
}

var modelCache sync.Map

// GetModel returns the model metadata for a struct value, pointer or type.
func GetModel(value any) (*Model, error) {
	if value == nil {
		return nil, fmt.Errorf("value is nil")
	}

	typ, ok := value.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(value)
	}
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value must be a struct or pointer to struct, got %s", typ.Kind())
	}

	if cached, ok := modelCache.Load(typ); ok {
		return cached.(*Model), nil
	}

	m := parseModel(typ)
	actual, _ := modelCache.LoadOrStore(typ, m)
	return actual.(*Model), nil
}

// FieldByProperty finds a field by Go name, then case-insensitive name, then column.
func (m *Model) FieldByProperty(name string) (*Field, bool) {
	if f, ok := m.byName[name]; ok {
		return f, true
	}
	if f, ok := m.byName[strings.ToLower(name)]; ok {
		return f, true
	}
	f, ok := m.FieldMap[name]
	return f, ok
}

func parseModel(typ reflect.Type) *Model {
	m := &Model{
		Name:     typ.Name(),
		FieldMap: make(map[string]*Field),
		byName:   make(map[string]*Field),
	}
	m.collect(typ, nil)
	return m
}

func (m *Model) collect(typ reflect.Type, parent []int) {
	for i := 0; i < typ.NumField(); i++ {
		structField := typ.Field(i)
		index := append(append([]int{}, parent...), i)

		tag := ParseTag(structField.Tag.Get(TagName))
		if tag.Ignore {
			continue
		}

		if structField.Anonymous && tag.Column == "" {
			ft := structField.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != typ {
				m.collect(ft, index)
				continue
			}
		}
		if !structField.IsExported() {
			continue
		}

		columnName := tag.Column
		if columnName == "" {
			columnName = camelToSnake(structField.Name)
		}

		field := &Field{
			Name:   structField.Name,
			Column: columnName,
			Type:   structField.Type,
			Index:  index,
			Tag:    string(structField.Tag),
		}

		// Outer fields shadow promoted ones.
		if _, exists := m.byName[field.Name]; exists {
			continue
		}
		m.Fields = append(m.Fields, field)
		m.FieldMap[columnName] = field
		m.byName[field.Name] = field
		if _, exists := m.byName[strings.ToLower(field.Name)]; !exists {
			m.byName[strings.ToLower(field.Name)] = field
		}
	}
}

func camelToSnake(s string) string {
	if s == "ID" {
		return "id"
	}
	var res []rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				res = append(res, '_')
			}
			res = append(res, unicode.ToLower(r))
		} else {
			res = append(res, r)
		}
	}
	return string(res)
}
