package plugin

import (
	"fmt"
	"reflect"
	"strings"
)

// Method identifies one method of an interceptable interface.
type Method struct {
	Owner  reflect.Type   // Interface type that declares the method
	Name   string         // Method name
	Params []reflect.Type // Parameter types, variadic tail as a slice type
}

// MethodOf resolves the named method of interface T.
// It panics when T is not an interface or has no such method; proxies call it
// from package-level vars so the mistake surfaces at init.
func MethodOf[T any](name string) Method {
	owner := reflect.TypeFor[T]()
	if owner.Kind() != reflect.Interface {
		panic(fmt.Sprintf("plugin: %s is not an interface", owner))
	}
	m, ok := owner.MethodByName(name)
	if !ok {
		panic(fmt.Sprintf("plugin: %s has no method %s", owner, name))
	}
	params := make([]reflect.Type, m.Type.NumIn())
	for i := range params {
		params[i] = m.Type.In(i)
	}
	return Method{Owner: owner, Name: name, Params: params}
}

func (m Method) String() string {
	return formatMethod(m.Owner, m.Name, m.Params)
}

// Signature returns the signature that matches exactly this method.
func (m Method) Signature() Signature {
	return Signature{Type: m.Owner, Method: m.Name, Args: m.Params}
}

// checkArgs reports whether args can be passed to the method as they are.
func (m Method) checkArgs(args []any) error {
	if len(args) != len(m.Params) {
		return fmt.Errorf("%w: %s wants %d arguments, got %d", ErrArgumentCount, m, len(m.Params), len(args))
	}
	for i, arg := range args {
		want := m.Params[i]
		if arg == nil {
			if !nillable(want) {
				return fmt.Errorf("%w: %s argument %d is nil, want %s", ErrArgumentType, m, i, want)
			}
			continue
		}
		if got := reflect.TypeOf(arg); !got.AssignableTo(want) {
			return fmt.Errorf("%w: %s argument %d is %s, want %s", ErrArgumentType, m, i, got, want)
		}
	}
	return nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// Signature declares one (type, method, parameter types) tuple an interceptor wants to see.
type Signature struct {
	Type   reflect.Type
	Method string
	Args   []reflect.Type
}

// On builds a signature for method of interface T with the given parameter types.
func On[T any](method string, args ...reflect.Type) Signature {
	return Signature{Type: reflect.TypeFor[T](), Method: method, Args: args}
}

func (s Signature) String() string {
	return formatMethod(s.Type, s.Method, s.Args)
}

// resolve checks the signature against its declared type and returns the matching method.
func (s Signature) resolve() (Method, error) {
	if s.Type == nil || s.Method == "" {
		return Method{}, fmt.Errorf("%w: %s", ErrInvalidSignature, s)
	}
	if s.Type.Kind() != reflect.Interface {
		return Method{}, fmt.Errorf("%w: %s is not an interface type", ErrInvalidSignature, s.Type)
	}
	if _, ok := lookupProxy(s.Type); !ok {
		return Method{}, fmt.Errorf("%w: %s", ErrUnknownType, s.Type)
	}
	m, ok := s.Type.MethodByName(s.Method)
	if !ok {
		return Method{}, fmt.Errorf("%w: %s", ErrNoSuchMethod, s)
	}
	if m.Type.NumIn() != len(s.Args) {
		return Method{}, fmt.Errorf("%w: %s", ErrNoSuchMethod, s)
	}
	params := make([]reflect.Type, len(s.Args))
	for i, arg := range s.Args {
		if m.Type.In(i) != arg {
			return Method{}, fmt.Errorf("%w: %s", ErrNoSuchMethod, s)
		}
		params[i] = arg
	}
	return Method{Owner: s.Type, Name: s.Method, Params: params}, nil
}

// signatureMap groups an interceptor's resolved methods by owning type, then by name.
// Go interfaces have no overloading, so the name is unique within its owner.
func signatureMap(i Interceptor) (map[reflect.Type]map[string]Method, error) {
	sigs := i.Signatures()
	if len(sigs) == 0 {
		return nil, fmt.Errorf("%w: %T", ErrNoSignatures, i)
	}
	out := make(map[reflect.Type]map[string]Method, len(sigs))
	for _, sig := range sigs {
		m, err := sig.resolve()
		if err != nil {
			return nil, err
		}
		methods, ok := out[m.Owner]
		if !ok {
			methods = make(map[string]Method)
			out[m.Owner] = methods
		}
		methods[m.Name] = m
	}
	return out, nil
}

func formatMethod(owner reflect.Type, name string, params []reflect.Type) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("%v.%s(%s)", owner, name, strings.Join(names, ", "))
}
