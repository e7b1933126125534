package plugin_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/sqlchain/plugin"
)

func TestWrapReturnsTargetWhenNothingMatches(t *testing.T) {
	r := &recorder{}
	target := onlyCounter{}

	wrapped, err := plugin.Wrap(target, r.greetInterceptor("greet"))
	require.NoError(t, err)
	assert.Equal(t, target, wrapped)

	ptr := &onlyCounter{}
	wrapped, err = plugin.Wrap(ptr, r.greetInterceptor("greet"))
	require.NoError(t, err)
	assert.Same(t, ptr, wrapped)
}

func TestWrapRoutesMatchedCallsOnly(t *testing.T) {
	r := &recorder{}
	real := &realGreeter{}

	wrapped, err := plugin.Wrap(real, r.greetInterceptor("greet"))
	require.NoError(t, err)
	g, ok := wrapped.(Greeter)
	require.True(t, ok)
	assert.NotSame(t, real, wrapped)

	out, err := g.Greet(context.Background(), "ann")
	require.NoError(t, err)
	assert.Equal(t, "hello ann", out)
	assert.Equal(t, []string{"greet"}, r.log)

	n, err := g.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"greet"}, r.log, "unmatched call must bypass the interceptor")
	assert.Equal(t, []string{"Greet:ann", "Count"}, real.calls)
}

func TestProceedReturnsRealResultUnchanged(t *testing.T) {
	boom := errors.New("boom")
	r := &recorder{}
	direct := &realGreeter{err: boom}
	proxied := &realGreeter{err: boom}

	wrapped, err := plugin.Wrap(proxied, r.greetInterceptor("greet"))
	require.NoError(t, err)

	wantOut, wantErr := direct.Greet(context.Background(), "bob")
	gotOut, gotErr := wrapped.(Greeter).Greet(context.Background(), "bob")
	assert.Equal(t, wantOut, gotOut)
	assert.True(t, gotErr == wantErr, "error must propagate unchanged")
	assert.True(t, gotErr == boom)
}

func TestInterceptorErrorPropagatesUnchanged(t *testing.T) {
	denied := errors.New("denied")
	real := &realGreeter{}
	failing := plugin.Func("fail", []plugin.Signature{
		plugin.On[Greeter]("Greet", ctxType, stringType),
	}, func(inv *plugin.Invocation) (any, error) {
		return nil, denied
	})
	r := &recorder{}

	chain := plugin.NewChain()
	require.NoError(t, chain.Add(failing))
	require.NoError(t, chain.Add(r.greetInterceptor("outer")))
	g, err := plugin.Apply[Greeter](chain, real)
	require.NoError(t, err)

	_, err = g.Greet(context.Background(), "x")
	assert.True(t, err == denied)
	assert.Equal(t, []string{"outer"}, r.log)
	assert.Empty(t, real.calls)
}

func TestInterceptorMayMutateArguments(t *testing.T) {
	real := &realGreeter{}
	rename := plugin.Func("rename", []plugin.Signature{
		plugin.On[Greeter]("Greet", ctxType, stringType),
	}, func(inv *plugin.Invocation) (any, error) {
		inv.Args()[1] = "carol"
		return inv.Proceed()
	})

	wrapped, err := plugin.Wrap(real, rename)
	require.NoError(t, err)
	out, err := wrapped.(Greeter).Greet(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, "hello carol", out)
}

func TestProceedRejectsMismatchedArguments(t *testing.T) {
	real := &realGreeter{}
	bad := plugin.Func("bad", []plugin.Signature{
		plugin.On[Greeter]("Greet", ctxType, stringType),
	}, func(inv *plugin.Invocation) (any, error) {
		inv.Args()[1] = 42
		return inv.Proceed()
	})

	wrapped, err := plugin.Wrap(real, bad)
	require.NoError(t, err)
	_, err = wrapped.(Greeter).Greet(context.Background(), "eve")
	assert.ErrorIs(t, err, plugin.ErrArgumentType)
	assert.Empty(t, real.calls)

	inv := plugin.NewInvocation(real, greetMethod, []any{context.Background()}, func(args []any) (any, error) {
		t.Fatal("real call must not run")
		return nil, nil
	})
	_, err = inv.Proceed()
	assert.ErrorIs(t, err, plugin.ErrArgumentCount)
	assert.ErrorIs(t, inv.SetArg(3, "x"), plugin.ErrArgumentCount)

	inv = plugin.NewInvocation(real, greetMethod, []any{nil, nil}, nil)
	_, err = inv.Proceed()
	assert.ErrorIs(t, err, plugin.ErrArgumentType, "nil is not a valid string")
}

func TestProceedMayRunMoreThanOnce(t *testing.T) {
	real := &realGreeter{}
	twice := plugin.Func("twice", []plugin.Signature{
		plugin.On[Greeter]("Greet", ctxType, stringType),
	}, func(inv *plugin.Invocation) (any, error) {
		if _, err := inv.Proceed(); err != nil {
			return nil, err
		}
		require.NoError(t, inv.SetArg(1, "second"))
		return inv.Proceed()
	})

	wrapped, err := plugin.Wrap(real, twice)
	require.NoError(t, err)
	out, err := wrapped.(Greeter).Greet(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "hello second", out)
	assert.Equal(t, []string{"Greet:first", "Greet:second"}, real.calls)
}

func TestInvocationExposesCall(t *testing.T) {
	real := &realGreeter{}
	var seen *plugin.Invocation
	spy := plugin.Func("spy", []plugin.Signature{
		plugin.On[Greeter]("Greet", ctxType, stringType),
	}, func(inv *plugin.Invocation) (any, error) {
		seen = inv
		return inv.Proceed()
	})

	wrapped, err := plugin.Wrap(real, spy)
	require.NoError(t, err)
	_, err = wrapped.(Greeter).Greet(context.Background(), "fay")
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Same(t, real, seen.Target())
	assert.Equal(t, "Greet", seen.Method().Name)
	assert.Equal(t, reflect.TypeFor[Greeter](), seen.Method().Owner)
	assert.Equal(t, "fay", seen.Args()[1])
}

func TestResultTypeMismatch(t *testing.T) {
	real := &realGreeter{}
	wrong := plugin.Func("wrong", []plugin.Signature{
		plugin.On[Greeter]("Greet", ctxType, stringType),
	}, func(inv *plugin.Invocation) (any, error) {
		return 12, nil
	})

	wrapped, err := plugin.Wrap(real, wrong)
	require.NoError(t, err)
	_, err = wrapped.(Greeter).Greet(context.Background(), "gus")
	assert.ErrorIs(t, err, plugin.ErrResultType)
}

func TestSignatureValidation(t *testing.T) {
	cases := map[string]struct {
		sig  plugin.Signature
		want error
	}{
		"unknown method":   {plugin.On[Greeter]("Wave"), plugin.ErrNoSuchMethod},
		"wrong parameters": {plugin.On[Greeter]("Greet", stringType), plugin.ErrNoSuchMethod},
		"wrong param type": {plugin.On[Greeter]("Greet", ctxType, ctxType), plugin.ErrNoSuchMethod},
		"not interface":    {plugin.On[realGreeter]("Greet", ctxType, stringType), plugin.ErrInvalidSignature},
		"empty":            {plugin.Signature{}, plugin.ErrInvalidSignature},
		"no proxy":         {plugin.On[io.Reader]("Read", reflect.TypeFor[[]byte]()), plugin.ErrUnknownType},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			i := plugin.Func(name, []plugin.Signature{tc.sig}, func(inv *plugin.Invocation) (any, error) {
				return inv.Proceed()
			})
			assert.ErrorIs(t, plugin.NewChain().Add(i), tc.want)
			_, err := plugin.Wrap(&realGreeter{}, i)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	empty := plugin.Func("empty", nil, nil)
	assert.ErrorIs(t, plugin.NewChain().Add(empty), plugin.ErrNoSignatures)
}

func TestWrapAmbiguousTarget(t *testing.T) {
	both := plugin.Func("both", []plugin.Signature{
		plugin.On[Greeter]("Count"),
		plugin.On[Counter]("Count"),
	}, func(inv *plugin.Invocation) (any, error) {
		return inv.Proceed()
	})

	_, err := plugin.Wrap(&realGreeter{}, both)
	assert.ErrorIs(t, err, plugin.ErrAmbiguousTarget)

	wrapped, err := plugin.Wrap(onlyCounter{}, both)
	require.NoError(t, err)
	n, err := wrapped.(Counter).Count()
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestWrapNilTarget(t *testing.T) {
	r := &recorder{}
	wrapped, err := plugin.Wrap(nil, r.greetInterceptor("greet"))
	require.NoError(t, err)
	assert.Nil(t, wrapped)
}

func TestUnwrap(t *testing.T) {
	r := &recorder{}
	real := &realGreeter{}
	chain := plugin.NewChain()
	require.NoError(t, chain.Add(r.greetInterceptor("a")))
	require.NoError(t, chain.Add(r.greetInterceptor("b")))

	g, err := plugin.Apply[Greeter](chain, real)
	require.NoError(t, err)

	node, ok := g.(plugin.Node)
	require.True(t, ok)
	assert.Equal(t, "b", node.Node().Interceptor().(*plugin.InterceptorFunc).Name())
	assert.Same(t, real, plugin.Unwrap(g))
	assert.Same(t, real, plugin.Unwrap(real))
}

func TestPropertiesGet(t *testing.T) {
	props := plugin.Properties{"a": "1", "empty": ""}
	assert.Equal(t, "1", props.Get("a", "x"))
	assert.Equal(t, "x", props.Get("empty", "x"))
	assert.Equal(t, "y", props.Get("missing", "y"))
	assert.Equal(t, "z", plugin.Properties(nil).Get("missing", "z"))
}

func TestMethodSignatureRoundTrip(t *testing.T) {
	r := &recorder{}
	spy := plugin.Func("spy", []plugin.Signature{greetMethod.Signature()}, func(inv *plugin.Invocation) (any, error) {
		r.log = append(r.log, "spy")
		return inv.Proceed()
	})
	assert.Equal(t, plugin.On[Greeter]("Greet", ctxType, stringType), greetMethod.Signature())

	wrapped, err := plugin.Wrap(&realGreeter{}, spy)
	require.NoError(t, err)
	_, err = wrapped.(Greeter).Greet(context.Background(), "ivy")
	require.NoError(t, err)
	assert.Equal(t, []string{"spy"}, r.log)
}
