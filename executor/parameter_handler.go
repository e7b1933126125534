package executor

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"

	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/reflection"
)

// DefaultParameterHandler resolves each mapping's property, first against
// the additional parameters of the BoundSQL and then against the parameter
// object. A scalar parameter object is bound as is to every mapping.
type DefaultParameterHandler struct {
	boundSQL *mapping.BoundSQL
	meta     *reflection.MetaObject
}

// NewDefaultParameterHandler creates the handler for one execution.
func NewDefaultParameterHandler(boundSQL *mapping.BoundSQL) *DefaultParameterHandler {
	return &DefaultParameterHandler{
		boundSQL: boundSQL,
		meta:     reflection.ForObject(boundSQL.ParameterObject()),
	}
}

// Parameters returns driver arguments in mapping order. OUT and INOUT
// mappings become sql.Out values.
func (h *DefaultParameterHandler) Parameters() ([]any, error) {
	mappings := h.boundSQL.ParameterMappings()
	args := make([]any, len(mappings))
	for i, pm := range mappings {
		value, err := h.value(pm.Property)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", pm.Property, err)
		}
		if !pm.IsOutput() {
			args[i] = value
			continue
		}
		out, err := outArg(pm, value)
		if err != nil {
			return nil, err
		}
		args[i] = out
	}
	return args, nil
}

func (h *DefaultParameterHandler) value(property string) (any, error) {
	if h.boundSQL.HasAdditionalParameter(property) {
		return h.boundSQL.AdditionalParameter(property)
	}
	param := h.boundSQL.ParameterObject()
	if param == nil {
		return nil, nil
	}
	if isScalar(param) {
		return param, nil
	}
	return h.meta.GetValue(property)
}

func outArg(pm mapping.ParameterMapping, value any) (sql.Out, error) {
	typ := pm.GoType
	if typ == nil {
		if value != nil {
			typ = reflect.TypeOf(value)
		} else {
			typ = reflect.TypeFor[any]()
		}
	}
	dest := reflect.New(typ)
	if pm.Mode == mapping.ModeInOut && value != nil {
		v := reflect.ValueOf(value)
		if !v.Type().AssignableTo(typ) {
			if !v.Type().ConvertibleTo(typ) {
				return sql.Out{}, fmt.Errorf("%w: %q is %s, want %s", ErrOutputParameter, pm.Property, v.Type(), typ)
			}
			v = v.Convert(typ)
		}
		dest.Elem().Set(v)
	}
	return sql.Out{Dest: dest.Interface(), In: pm.Mode == mapping.ModeInOut}, nil
}

// HandleOutputParameters copies OUT values from args back into the
// parameter object, which must be a map or a pointer.
func (h *DefaultParameterHandler) HandleOutputParameters(args []any) error {
	mappings := h.boundSQL.ParameterMappings()
	if len(args) != len(mappings) {
		return fmt.Errorf("%w: %d args for %d mappings", ErrOutputParameter, len(args), len(mappings))
	}
	for i, pm := range mappings {
		if !pm.IsOutput() {
			continue
		}
		out, ok := args[i].(sql.Out)
		if !ok {
			return fmt.Errorf("%w: argument %d for %q is %T, not sql.Out", ErrOutputParameter, i, pm.Property, args[i])
		}
		value := reflect.ValueOf(out.Dest).Elem().Interface()
		if err := h.meta.SetValue(pm.Property, value); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrOutputParameter, pm.Property, err)
		}
	}
	return nil
}

var timeType = reflect.TypeFor[time.Time]()

// isScalar reports whether v is bound directly rather than traversed.
func isScalar(v any) bool {
	if _, ok := v.(driver.Valuer); ok {
		return true
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map, reflect.Array:
		return false
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Struct:
		return t == timeType
	}
	return true
}
