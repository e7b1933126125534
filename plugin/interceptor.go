package plugin

// Properties is the opaque configuration delivered to an interceptor once at registration.
type Properties map[string]string

// Get returns the property value or def when it is not set.
func (p Properties) Get(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Interceptor is the extension contract. Intercept must call inv.Proceed to
// reach the wrapped component; returning without it short-circuits the call.
type Interceptor interface {
	Intercept(inv *Invocation) (any, error)
	Signatures() []Signature
}

// Plugger overrides the default wrapping policy (Wrap) for an interceptor.
type Plugger interface {
	Plugin(target any) (any, error)
}

// Configurable receives the registration properties. Interceptors that do not
// implement it ignore properties.
type Configurable interface {
	SetProperties(props Properties) error
}

// PluginFor applies i's wrapping policy to target.
func PluginFor(i Interceptor, target any) (any, error) {
	if p, ok := i.(Plugger); ok {
		return p.Plugin(target)
	}
	return Wrap(target, i)
}

// InterceptorFunc adapts a function into an Interceptor.
type InterceptorFunc struct {
	name string
	sigs []Signature
	fn   func(inv *Invocation) (any, error)
}

// Func creates a function-based interceptor.
func Func(name string, sigs []Signature, fn func(inv *Invocation) (any, error)) *InterceptorFunc {
	return &InterceptorFunc{name: name, sigs: sigs, fn: fn}
}

// Intercept implements Interceptor
func (f *InterceptorFunc) Intercept(inv *Invocation) (any, error) {
	return f.fn(inv)
}

// Signatures implements Interceptor
func (f *InterceptorFunc) Signatures() []Signature {
	return f.sigs
}

// Name returns the interceptor name for logging and debugging
func (f *InterceptorFunc) Name() string {
	return f.name
}
