package reflection

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/shrek82/sqlchain/model"
)

var (
	anyMapType   = reflect.TypeFor[map[string]any]()
	anySliceType = reflect.TypeFor[[]any]()
)

// MetaObject reads and writes property paths on an object graph made of maps,
// slices, arrays, structs and pointers to them. It is not safe for concurrent
// writes.
type MetaObject struct {
	root any
}

// ForObject creates a MetaObject for obj.
func ForObject(obj any) *MetaObject {
	return &MetaObject{root: obj}
}

// Object returns the root object.
func (m *MetaObject) Object() any {
	return m.root
}

// GetValue resolves path. An absent value (missing key, nil intermediate,
// index past the end) yields nil with no error; a path that does not fit the
// structure of the object yields an error.
func (m *MetaObject) GetValue(path string) (any, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return m.Get(p)
}

// Get resolves a parsed path.
func (m *MetaObject) Get(p Path) (any, error) {
	cur := reflect.ValueOf(m.root)
	for i, step := range p {
		cur = indirect(cur)
		if !cur.IsValid() {
			return nil, nil
		}
		next, err := child(cur, step)
		if err != nil {
			return nil, fmt.Errorf("%w at %s", err, p[:i+1])
		}
		if !next.IsValid() {
			return nil, nil
		}
		cur = next
	}
	if !cur.IsValid() || (cur.Kind() == reflect.Interface && cur.IsNil()) {
		return nil, nil
	}
	return cur.Interface(), nil
}

// SetValue stores value at path, creating missing maps and slices on the way.
func (m *MetaObject) SetValue(path string, value any) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	return m.Set(p, value)
}

// Set stores value at a parsed path.
func (m *MetaObject) Set(p Path, value any) error {
	root := reflect.ValueOf(m.root)
	if !root.IsValid() || root.Kind() == reflect.Struct || root.Kind() == reflect.Array {
		return fmt.Errorf("%w: root %T", ErrNotSettable, m.root)
	}
	if root.Kind() == reflect.Ptr && root.IsNil() {
		return fmt.Errorf("%w: root is a nil %s", ErrNotSettable, root.Type())
	}
	if (root.Kind() == reflect.Map || root.Kind() == reflect.Slice) && root.IsNil() {
		return fmt.Errorf("%w: root is a nil %s", ErrNotSettable, root.Type())
	}
	updated, err := assign(root, p, reflect.ValueOf(value), nil)
	if err != nil {
		return err
	}
	m.root = updated.Interface()
	return nil
}

// indirect follows pointers and interfaces; nil yields an invalid Value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func child(cur reflect.Value, step Step) (reflect.Value, error) {
	switch cur.Kind() {
	case reflect.Map:
		key, err := mapKey(cur.Type().Key(), step.Key)
		if err != nil {
			return reflect.Value{}, err
		}
		return cur.MapIndex(key), nil
	case reflect.Struct:
		if step.Indexed {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrNotIndexable, cur.Type())
		}
		f, err := structField(cur.Type(), step.Key)
		if err != nil {
			return reflect.Value{}, err
		}
		return f.Value(cur), nil
	case reflect.Slice, reflect.Array:
		if !step.Indexed {
			return reflect.Value{}, fmt.Errorf("%w: %s has no property %q", ErrNotTraversable, cur.Type(), step.Key)
		}
		idx, ok := step.IntIndex()
		if !ok || idx < 0 {
			return reflect.Value{}, fmt.Errorf("%w: %q", ErrInvalidIndex, step.Key)
		}
		if idx >= cur.Len() {
			return reflect.Value{}, nil
		}
		return cur.Index(idx), nil
	}
	if step.Indexed {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrNotIndexable, cur.Type())
	}
	return reflect.Value{}, fmt.Errorf("%w: %s has no property %q", ErrNotTraversable, cur.Type(), step.Key)
}

// assign stores value at steps below cur and returns the value the parent
// must keep in place of cur. Slices may be reallocated and values held in
// interfaces are copied, so the parent always writes the result back.
func assign(cur reflect.Value, steps Path, value reflect.Value, done Path) (reflect.Value, error) {
	step := steps[0]
	done = append(done, step)
	rest := steps[1:]

	if !cur.IsValid() || (nillable(cur.Kind()) && cur.IsNil()) {
		var typ reflect.Type
		if cur.IsValid() {
			typ = cur.Type()
		}
		cur = newContainer(typ, step)
	}

	switch cur.Kind() {
	case reflect.Interface:
		return assign(cur.Elem(), steps, value, done[:len(done)-1])

	case reflect.Ptr:
		elem := cur.Elem()
		updated, err := assign(elem, steps, value, done[:len(done)-1])
		if err != nil {
			return reflect.Value{}, err
		}
		elem.Set(updated)
		return cur, nil

	case reflect.Map:
		key, err := mapKey(cur.Type().Key(), step.Key)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w at %s", err, done)
		}
		next, err := store(cur.MapIndex(key), cur.Type().Elem(), rest, value, done)
		if err != nil {
			return reflect.Value{}, err
		}
		cur.SetMapIndex(key, next)
		return cur, nil

	case reflect.Slice, reflect.Array:
		if !step.Indexed {
			return reflect.Value{}, fmt.Errorf("%w: %s has no property %q at %s", ErrNotTraversable, cur.Type(), step.Key, done)
		}
		idx, ok := step.IntIndex()
		if !ok || idx < 0 {
			return reflect.Value{}, fmt.Errorf("%w: %q at %s", ErrInvalidIndex, step.Key, done)
		}
		if cur.Kind() == reflect.Array {
			if idx >= cur.Len() {
				return reflect.Value{}, fmt.Errorf("%w: %d out of range at %s", ErrInvalidIndex, idx, done)
			}
			cur = addressable(cur)
		} else if idx >= cur.Len() {
			grow := idx + 1 - cur.Len()
			cur = reflect.AppendSlice(cur, reflect.MakeSlice(cur.Type(), grow, grow))
		}
		elem := cur.Index(idx)
		next, err := store(elem, elem.Type(), rest, value, done)
		if err != nil {
			return reflect.Value{}, err
		}
		elem.Set(next)
		return cur, nil

	case reflect.Struct:
		if step.Indexed {
			return reflect.Value{}, fmt.Errorf("%w: %s at %s", ErrNotIndexable, cur.Type(), done)
		}
		f, err := structField(cur.Type(), step.Key)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w at %s", err, done)
		}
		cur = addressable(cur)
		fv, err := cur.FieldByIndexErr(f.Index)
		if err != nil || !fv.CanSet() {
			return reflect.Value{}, fmt.Errorf("%w: %s.%s", ErrNotSettable, cur.Type(), f.Name)
		}
		next, err := store(fv, fv.Type(), rest, value, done)
		if err != nil {
			return reflect.Value{}, err
		}
		fv.Set(next)
		return cur, nil
	}

	if step.Indexed {
		return reflect.Value{}, fmt.Errorf("%w: %s at %s", ErrNotIndexable, cur.Type(), done)
	}
	return reflect.Value{}, fmt.Errorf("%w: %s has no property %q at %s", ErrNotTraversable, cur.Type(), step.Key, done)
}

// store computes the new content of a slot of type typ currently holding existing.
func store(existing reflect.Value, typ reflect.Type, rest Path, value reflect.Value, done Path) (reflect.Value, error) {
	if len(rest) == 0 {
		v, err := convert(value, typ)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w at %s", err, done)
		}
		return v, nil
	}
	if !existing.IsValid() {
		existing = reflect.Zero(typ)
	}
	updated, err := assign(existing, rest, value, done)
	if err != nil {
		return reflect.Value{}, err
	}
	return convert(updated, typ)
}

func newContainer(typ reflect.Type, step Step) reflect.Value {
	if typ == nil || typ.Kind() == reflect.Interface {
		if _, ok := step.IntIndex(); ok {
			return reflect.MakeSlice(anySliceType, 0, 0)
		}
		return reflect.MakeMap(anyMapType)
	}
	switch typ.Kind() {
	case reflect.Map:
		return reflect.MakeMap(typ)
	case reflect.Slice:
		return reflect.MakeSlice(typ, 0, 0)
	case reflect.Ptr:
		return reflect.New(typ.Elem())
	}
	return reflect.New(typ).Elem()
}

func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func structField(typ reflect.Type, name string) (*model.Field, error) {
	m, err := model.GetModel(typ)
	if err != nil {
		return nil, err
	}
	f, ok := m.FieldByProperty(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no property %q", ErrNoSuchProperty, typ, name)
	}
	return f, nil
}

func mapKey(typ reflect.Type, key string) (reflect.Value, error) {
	switch typ.Kind() {
	case reflect.String:
		return reflect.ValueOf(key).Convert(typ), nil
	case reflect.Interface:
		return reflect.ValueOf(key), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: map key %q is not %s", ErrTypeMismatch, key, typ)
		}
		return reflect.ValueOf(n).Convert(typ), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: map key %q is not %s", ErrTypeMismatch, key, typ)
		}
		return reflect.ValueOf(n).Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: unsupported map key %s", ErrTypeMismatch, typ)
}

// convert makes v storable in a slot of type typ without lossy conversions
// such as int to string.
func convert(v reflect.Value, typ reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		if nillable(typ.Kind()) {
			return reflect.Zero(typ), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil for %s", ErrTypeMismatch, typ)
	}
	if v.Type().AssignableTo(typ) {
		return v, nil
	}
	if v.Kind() == reflect.Interface && !v.IsNil() {
		return convert(v.Elem(), typ)
	}
	if sameFamily(v.Kind(), typ.Kind()) && v.Type().ConvertibleTo(typ) {
		return v.Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s for %s", ErrTypeMismatch, v.Type(), typ)
}

func sameFamily(a, b reflect.Kind) bool {
	return family(a) != 0 && family(a) == family(b)
}

func family(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 1
	case reflect.String:
		return 2
	case reflect.Bool:
		return 3
	}
	return 0
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
