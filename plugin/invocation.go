package plugin

import (
	"fmt"
)

// Call performs the real method call with the given arguments.
type Call func(args []any) (any, error)

// Invocation is one in-flight call crossing a proxy node.
// It is created per call and must not be retained after Intercept returns.
type Invocation struct {
	target any
	method Method
	args   []any
	call   Call
}

// NewInvocation creates an invocation of method on target.
func NewInvocation(target any, method Method, args []any, call Call) *Invocation {
	return &Invocation{
		target: target,
		method: method,
		args:   args,
		call:   call,
	}
}

// Target returns the object the call is made against.
func (inv *Invocation) Target() any {
	return inv.target
}

// Method returns the identity of the called method.
func (inv *Invocation) Method() Method {
	return inv.method
}

// Args returns the live argument list. Elements may be replaced to change the
// effective call; the length is fixed.
func (inv *Invocation) Args() []any {
	return inv.args
}

// SetArg replaces the i-th argument.
func (inv *Invocation) SetArg(i int, v any) error {
	if i < 0 || i >= len(inv.args) {
		return fmt.Errorf("%w: %s has no argument %d", ErrArgumentCount, inv.method, i)
	}
	inv.args[i] = v
	return nil
}

// Proceed calls the real method with the current arguments and returns its
// result or error unchanged.
func (inv *Invocation) Proceed() (any, error) {
	if err := inv.method.checkArgs(inv.args); err != nil {
		return nil, err
	}
	return inv.call(inv.args)
}

// Arg reads the i-th argument as T. Proceed has already checked assignability,
// so the only failing assertion left is a nil argument, which yields the zero T.
func Arg[T any](args []any, i int) T {
	v, _ := args[i].(T)
	return v
}

// Result converts an intercepted result back to the method's result type.
func Result[T any](res any, err error) (T, error) {
	var zero T
	if res == nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		if err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w: got %T, want %T", ErrResultType, res, zero)
	}
	return v, err
}
