package plugin

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Chain holds interceptors in registration order and applies them to targets.
// Interceptors are added during setup; once PluginAll has run the chain is
// sealed and read-only, so it can be shared by any number of goroutines.
type Chain struct {
	interceptors []Interceptor
	sealed       atomic.Bool
}

// NewChain creates an empty interceptor chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add registers an interceptor without properties.
func (c *Chain) Add(i Interceptor) error {
	return c.AddWithProperties(i, nil)
}

// AddWithProperties validates i's signatures, delivers props once and
// appends i to the chain.
func (c *Chain) AddWithProperties(i Interceptor, props Properties) error {
	if c.sealed.Load() {
		return fmt.Errorf("%w: cannot add %T", ErrChainSealed, i)
	}
	if _, err := signatureMap(i); err != nil {
		return err
	}
	if cfg, ok := i.(Configurable); ok {
		if props == nil {
			props = Properties{}
		}
		if err := cfg.SetProperties(props); err != nil {
			return fmt.Errorf("configure %T: %w", i, err)
		}
	}
	c.interceptors = append(c.interceptors, i)
	return nil
}

// Interceptors returns a copy of the registered interceptors in order.
func (c *Chain) Interceptors() []Interceptor {
	out := make([]Interceptor, len(c.interceptors))
	copy(out, c.interceptors)
	return out
}

// Len returns the number of registered interceptors.
func (c *Chain) Len() int {
	return len(c.interceptors)
}

// PluginAll wraps target with every interceptor in registration order, so the
// last registered interceptor is the outermost layer.
func (c *Chain) PluginAll(target any) (any, error) {
	c.sealed.Store(true)
	var err error
	for _, i := range c.interceptors {
		target, err = PluginFor(i, target)
		if err != nil {
			return nil, fmt.Errorf("plugin %T: %w", i, err)
		}
	}
	return target, nil
}

// Apply is PluginAll for a statically typed target.
func Apply[T any](c *Chain, target T) (T, error) {
	wrapped, err := c.PluginAll(target)
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := wrapped.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: plugin returned %T, want %T", ErrResultType, wrapped, zero)
	}
	return out, nil
}

var (
	factories   = make(map[string]func() Interceptor)
	factoriesMu sync.RWMutex
)

// RegisterFactory makes an interceptor constructible by name, for
// configuration-driven registration.
func RegisterFactory(name string, factory func() Interceptor) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// New creates the interceptor registered under name.
func New(name string) (Interceptor, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterceptor, name)
	}
	return factory(), nil
}

// Names returns the registered factory names, sorted.
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
