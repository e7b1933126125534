package plugin

import (
	"fmt"
	"reflect"
	"sync"
)

type proxyFactory func(target any, p *Plugin) any

var (
	proxies   = make(map[reflect.Type]proxyFactory)
	proxiesMu sync.RWMutex
)

// RegisterProxy registers the forwarding struct used to wrap implementations
// of interface T. The factory must return a value that, for every method of T,
// calls the target directly when p.Matches is false and p.Invoke otherwise.
func RegisterProxy[T any](factory func(target T, p *Plugin) T) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Interface {
		panic(fmt.Sprintf("plugin: cannot register proxy for non-interface %s", typ))
	}
	proxiesMu.Lock()
	defer proxiesMu.Unlock()
	proxies[typ] = func(target any, p *Plugin) any {
		return factory(target.(T), p)
	}
}

func lookupProxy(typ reflect.Type) (proxyFactory, bool) {
	proxiesMu.RLock()
	defer proxiesMu.RUnlock()
	f, ok := proxies[typ]
	return f, ok
}

// Plugin is one proxy node: a wrapped target, the interceptor that owns the
// node and the methods of the owning interface the interceptor matched.
// A node is immutable once built and safe for concurrent use.
type Plugin struct {
	target      any
	owner       reflect.Type
	interceptor Interceptor
	methods     map[string]Method
}

// Target returns the wrapped object, which may itself be a proxy.
func (p *Plugin) Target() any {
	return p.target
}

// Interceptor returns the interceptor that owns this node.
func (p *Plugin) Interceptor() Interceptor {
	return p.interceptor
}

// Matches reports whether calls to m are routed through the interceptor.
func (p *Plugin) Matches(m Method) bool {
	if m.Owner != p.owner {
		return false
	}
	_, ok := p.methods[m.Name]
	return ok
}

// Invoke dispatches a matched call to the interceptor.
func (p *Plugin) Invoke(m Method, args []any, call Call) (any, error) {
	return p.interceptor.Intercept(NewInvocation(p.target, m, args, call))
}

// Node is implemented by forwarding structs so chains can be inspected.
type Node interface {
	Node() *Plugin
}

// Wrap is the default wrapping policy: target is wrapped with interceptor if
// its runtime type implements an interface the interceptor declares
// signatures on, and returned unchanged otherwise.
func Wrap(target any, interceptor Interceptor) (any, error) {
	sigs, err := signatureMap(interceptor)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}

	typ := reflect.TypeOf(target)
	var owner reflect.Type
	var methods map[string]Method
	for iface, ms := range sigs {
		if !typ.Implements(iface) {
			continue
		}
		if owner != nil {
			return nil, fmt.Errorf("%w: %T implements %s and %s", ErrAmbiguousTarget, target, owner, iface)
		}
		owner, methods = iface, ms
	}
	if owner == nil {
		return target, nil
	}

	factory, ok := lookupProxy(owner)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, owner)
	}
	return factory(target, &Plugin{
		target:      target,
		owner:       owner,
		interceptor: interceptor,
		methods:     methods,
	}), nil
}

// Unwrap returns the innermost target behind any number of proxy nodes.
func Unwrap(v any) any {
	for {
		n, ok := v.(Node)
		if !ok {
			return v
		}
		v = n.Node().Target()
	}
}
