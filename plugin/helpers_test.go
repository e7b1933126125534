package plugin_test

import (
	"context"
	"fmt"
	"reflect"

	"github.com/shrek82/sqlchain/plugin"
)

// Greeter is a small interceptable interface used across the plugin tests.
type Greeter interface {
	Greet(ctx context.Context, name string) (string, error)
	Count() (int, error)
}

// Counter is a second interceptable interface.
type Counter interface {
	Count() (int, error)
}

var (
	greetMethod        = plugin.MethodOf[Greeter]("Greet")
	greeterCountMethod = plugin.MethodOf[Greeter]("Count")
	counterCountMethod = plugin.MethodOf[Counter]("Count")

	ctxType    = reflect.TypeFor[context.Context]()
	stringType = reflect.TypeFor[string]()
)

type greeterProxy struct {
	target Greeter
	plugin *plugin.Plugin
}

func (g *greeterProxy) Node() *plugin.Plugin { return g.plugin }

func (g *greeterProxy) Greet(ctx context.Context, name string) (string, error) {
	if !g.plugin.Matches(greetMethod) {
		return g.target.Greet(ctx, name)
	}
	return plugin.Result[string](g.plugin.Invoke(greetMethod, []any{ctx, name}, func(args []any) (any, error) {
		return g.target.Greet(plugin.Arg[context.Context](args, 0), plugin.Arg[string](args, 1))
	}))
}

func (g *greeterProxy) Count() (int, error) {
	if !g.plugin.Matches(greeterCountMethod) {
		return g.target.Count()
	}
	return plugin.Result[int](g.plugin.Invoke(greeterCountMethod, []any{}, func(args []any) (any, error) {
		return g.target.Count()
	}))
}

type counterProxy struct {
	target Counter
	plugin *plugin.Plugin
}

func (c *counterProxy) Node() *plugin.Plugin { return c.plugin }

func (c *counterProxy) Count() (int, error) {
	if !c.plugin.Matches(counterCountMethod) {
		return c.target.Count()
	}
	return plugin.Result[int](c.plugin.Invoke(counterCountMethod, []any{}, func(args []any) (any, error) {
		return c.target.Count()
	}))
}

func init() {
	plugin.RegisterProxy[Greeter](func(target Greeter, p *plugin.Plugin) Greeter {
		return &greeterProxy{target: target, plugin: p}
	})
	plugin.RegisterProxy[Counter](func(target Counter, p *plugin.Plugin) Counter {
		return &counterProxy{target: target, plugin: p}
	})
}

// realGreeter is the raw target; it records every real call.
type realGreeter struct {
	calls []string
	err   error
}

func (r *realGreeter) Greet(ctx context.Context, name string) (string, error) {
	r.calls = append(r.calls, "Greet:"+name)
	if r.err != nil {
		return "", r.err
	}
	return "hello " + name, nil
}

func (r *realGreeter) Count() (int, error) {
	r.calls = append(r.calls, "Count")
	return len(r.calls), r.err
}

// onlyCounter implements Counter but not Greeter.
type onlyCounter struct{}

func (onlyCounter) Count() (int, error) { return 7, nil }

// recorder builds interceptors that append their name to a shared log.
type recorder struct {
	log []string
}

func (r *recorder) greetInterceptor(name string) plugin.Interceptor {
	return plugin.Func(name, []plugin.Signature{
		plugin.On[Greeter]("Greet", ctxType, stringType),
	}, func(inv *plugin.Invocation) (any, error) {
		r.log = append(r.log, name)
		return inv.Proceed()
	})
}

func (r *recorder) shortCircuit(name string, result string) plugin.Interceptor {
	return plugin.Func(name, []plugin.Signature{
		plugin.On[Greeter]("Greet", ctxType, stringType),
	}, func(inv *plugin.Invocation) (any, error) {
		r.log = append(r.log, name)
		return result, nil
	})
}

// configurable captures the properties it receives.
type configurable struct {
	props plugin.Properties
	calls int
	fail  bool
}

func (c *configurable) Intercept(inv *plugin.Invocation) (any, error) { return inv.Proceed() }

func (c *configurable) Signatures() []plugin.Signature {
	return []plugin.Signature{plugin.On[Greeter]("Count")}
}

func (c *configurable) SetProperties(props plugin.Properties) error {
	c.calls++
	c.props = props
	if c.fail {
		return fmt.Errorf("bad properties")
	}
	return nil
}

// neverWrap overrides the wrapping policy.
type neverWrap struct {
	configurable
}

func (n *neverWrap) Plugin(target any) (any, error) { return target, nil }
