package core

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/model"
)

// TimeScanner scans the textual and native time values drivers return.
// Zero dates and empty strings leave Valid false.
type TimeScanner struct {
	Value time.Time
	Valid bool
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC3339Nano,
}

func (ts *TimeScanner) Scan(src any) error {
	ts.Value, ts.Valid = time.Time{}, false
	var s string
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		ts.Value, ts.Valid = v, true
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		ts.Value, ts.Valid = time.Unix(v, 0), true
		return nil
	default:
		return fmt.Errorf("cannot scan %T into time.Time", src)
	}
	if s == "" || s == "0000-00-00 00:00:00" || s == "0000-00-00" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			ts.Value, ts.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as time", s)
}

var (
	timeType    = reflect.TypeFor[time.Time]()
	scannerType = reflect.TypeFor[sql.Scanner]()
	rowType     = reflect.TypeFor[executor.Row]()
	anyMapType  = reflect.TypeFor[map[string]any]()
)

// mapRows appends rows to dest, a pointer to a slice of structs, struct
// pointers, executor.Row or map[string]any.
func mapRows(rows []executor.Row, dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w: dest must be a pointer to a slice, got %T", ErrInvalidDest, dest)
	}
	slice := dv.Elem()
	itemType := slice.Type().Elem()
	for _, row := range rows {
		item, err := newItem(itemType, row)
		if err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, item))
	}
	return nil
}

// mapRow fills dest, a pointer to a struct, executor.Row or map[string]any.
func mapRow(row executor.Row, dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return fmt.Errorf("%w: dest must be a non-nil pointer, got %T", ErrInvalidDest, dest)
	}
	item, err := newItem(dv.Elem().Type(), row)
	if err != nil {
		return err
	}
	dv.Elem().Set(item)
	return nil
}

func newItem(typ reflect.Type, row executor.Row) (reflect.Value, error) {
	switch {
	case typ == rowType || typ == anyMapType:
		m := reflect.MakeMapWithSize(typ, len(row))
		for k, v := range row {
			var value reflect.Value
			if v == nil {
				value = reflect.Zero(typ.Elem())
			} else {
				value = reflect.ValueOf(v)
			}
			m.SetMapIndex(reflect.ValueOf(k), value)
		}
		return m, nil
	case typ.Kind() == reflect.Struct:
		item := reflect.New(typ)
		if err := assignRow(row, item); err != nil {
			return reflect.Value{}, err
		}
		return item.Elem(), nil
	case typ.Kind() == reflect.Ptr && typ.Elem().Kind() == reflect.Struct:
		item := reflect.New(typ.Elem())
		if err := assignRow(row, item); err != nil {
			return reflect.Value{}, err
		}
		return item, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot map a row into %s", ErrInvalidDest, typ)
}

// assignRow copies the columns of row that match a field of the struct ptr
// points to, then runs its AfterFind hook.
func assignRow(row executor.Row, ptr reflect.Value) error {
	m, err := model.GetModel(ptr.Type())
	if err != nil {
		return err
	}
	sv := ptr.Elem()
	for col, v := range row {
		f, ok := m.FieldMap[col]
		if !ok {
			if f, ok = m.FieldByProperty(col); !ok {
				continue
			}
		}
		fv, err := fieldForSet(sv, f.Index)
		if err != nil {
			return err
		}
		if err := setField(fv, v); err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}
	}
	if h, ok := ptr.Interface().(AfterFinder); ok {
		return h.AfterFind()
	}
	return nil
}

// fieldForSet walks index, allocating nil embedded struct pointers.
func fieldForSet(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("%w: unexported embedded pointer %s", ErrInvalidDest, v.Type())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}

func setField(fv reflect.Value, v any) error {
	if v == nil {
		fv.SetZero()
		return nil
	}
	if fv.Kind() == reflect.Ptr {
		elem := reflect.New(fv.Type().Elem())
		if err := setField(elem.Elem(), v); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	}
	if fv.CanAddr() && fv.Addr().Type().Implements(scannerType) {
		return fv.Addr().Interface().(sql.Scanner).Scan(v)
	}
	if fv.Type() == timeType {
		var ts TimeScanner
		if err := ts.Scan(v); err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(ts.Value))
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return nil
	}
	switch fv.Kind() {
	case reflect.Bool:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetBool(rv.Int() != 0)
			return nil
		case reflect.String:
			b, err := strconv.ParseBool(rv.String())
			if err != nil {
				return err
			}
			fv.SetBool(b)
			return nil
		}
	case reflect.String:
		if rv.Kind() == reflect.String {
			fv.SetString(rv.String())
			return nil
		}
		if b, ok := v.([]byte); ok {
			fv.SetString(string(b))
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if isNumber(rv.Kind()) {
			fv.Set(rv.Convert(fv.Type()))
			return nil
		}
		if rv.Kind() == reflect.String {
			return setNumberFromString(fv, rv.String())
		}
	}
	return fmt.Errorf("cannot assign %T to %s", v, fv.Type())
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func setNumberFromString(fv reflect.Value, s string) error {
	switch fv.Kind() {
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	default:
		n, err := strconv.ParseInt(s, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	}
	return nil
}
