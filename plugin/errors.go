package plugin

import (
	"errors"
)

var (
	// ErrInvalidSignature is returned when a signature does not name an interface type or a method.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrNoSuchMethod is returned when a signature names a method the declared type does not have.
	ErrNoSuchMethod = errors.New("no such method")
	// ErrUnknownType is returned when a signature declares a type that has no registered proxy.
	ErrUnknownType = errors.New("type is not interceptable")
	// ErrNoSignatures is returned when an interceptor declares no signatures at all.
	ErrNoSignatures = errors.New("interceptor declares no signatures")
	// ErrAmbiguousTarget is returned when a target implements more than one intercepted type.
	ErrAmbiguousTarget = errors.New("target implements more than one intercepted type")
	// ErrArgumentCount is returned by Proceed when the argument list no longer matches the method arity.
	ErrArgumentCount = errors.New("argument count mismatch")
	// ErrArgumentType is returned by Proceed when an argument is not assignable to the parameter type.
	ErrArgumentType = errors.New("argument type mismatch")
	// ErrResultType is returned when an interceptor substitutes a result of the wrong type.
	ErrResultType = errors.New("result type mismatch")
	// ErrChainSealed is returned when an interceptor is added after the chain has been applied.
	ErrChainSealed = errors.New("interceptor chain is sealed")
	// ErrUnknownInterceptor is returned when no factory is registered under the requested name.
	ErrUnknownInterceptor = errors.New("unknown interceptor")
)
