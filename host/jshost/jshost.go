//go:build js && wasm

package jshost

import (
	"context"
	"fmt"
	"syscall/js"
	"time"

	"github.com/sensiblebit/cadeskit/host"
)

// DefaultGlobal is the global the CryptoPro extension installs.
const DefaultGlobal = "cadesplugin"

// Loader returns a host.Loader reading the named global. The global is itself
// a thenable that settles when the extension finished loading; the loader
// awaits it and then returns the global as the root object. A missing global
// yields a nil root.
func Loader(global string) host.Loader {
	if global == "" {
		global = DefaultGlobal
	}
	return func(context.Context) (any, error) {
		root := js.Global().Get(global)
		if root.IsUndefined() || root.IsNull() {
			return nil, nil
		}
		if !isThenable(root) {
			return &Object{v: root}, nil
		}
		return &loaded{root: root}, nil
	}
}

// loaded awaits the plugin's load promise and yields the global.
type loaded struct {
	root js.Value
}

func (l *loaded) Await(ctx context.Context) (any, error) {
	if _, err := await(ctx, l.root); err != nil {
		return nil, err
	}
	return &Object{v: l.root}, nil
}

// Object wraps a JS value of the plugin's object space.
type Object struct {
	v js.Value
}

// Value returns the wrapped JS value.
func (o *Object) Value() js.Value {
	return o.v
}

// Get implements host.Object.
func (o *Object) Get(_ context.Context, name string) (v any, err error) {
	defer recoverJS(&err)
	return fromJS(o.v.Get(name)), nil
}

// Set implements host.Object.
func (o *Object) Set(_ context.Context, name string, value any) (err error) {
	defer recoverJS(&err)
	o.v.Set(name, toJS(value))
	return nil
}

// Call implements host.Object.
func (o *Object) Call(_ context.Context, name string, args ...any) (v any, err error) {
	defer recoverJS(&err)
	jsArgs := make([]any, len(args))
	for i, a := range args {
		jsArgs[i] = toJS(a)
	}
	return fromJS(o.v.Call(name, jsArgs...)), nil
}

// Has implements host.Object.
func (o *Object) Has(name string) bool {
	m := o.v.Get(name)
	return !m.IsUndefined() && !m.IsNull()
}

// promise is a pending JS promise.
type promise struct {
	v js.Value
}

func (p *promise) Await(ctx context.Context) (any, error) {
	v, err := await(ctx, p.v)
	if err != nil {
		return nil, err
	}
	return fromJS(v), nil
}

// await blocks until the thenable settles or ctx is done.
func await(ctx context.Context, thenable js.Value) (js.Value, error) {
	type result struct {
		v   js.Value
		err error
	}
	ch := make(chan result, 1)

	thenCb := js.FuncOf(func(_ js.Value, args []js.Value) any {
		v := js.Undefined()
		if len(args) > 0 {
			v = args[0]
		}
		ch <- result{v: v}
		return nil
	})
	catchCb := js.FuncOf(func(_ js.Value, args []js.Value) any {
		reason := js.Undefined()
		if len(args) > 0 {
			reason = args[0]
		}
		ch <- result{err: rejection(reason)}
		return nil
	})
	thenable.Call("then", thenCb, catchCb)

	select {
	case r := <-ch:
		thenCb.Release()
		catchCb.Release()
		return r.v, r.err
	case <-ctx.Done():
		// The promise is still pending and will call one of the callbacks;
		// releasing them now would panic. The buffered channel absorbs the
		// late send.
		return js.Undefined(), ctx.Err()
	}
}

// rejection converts a rejection reason into a host.Error. The extension
// rejects with Error objects whose message carries the result code; the
// plugin's getLastError gives the extended diagnostic when available.
func rejection(reason js.Value) error {
	e := &host.Error{}
	switch reason.Type() {
	case js.TypeObject, js.TypeFunction:
		e.Message = reason.Get("message").String()
	default:
		e.Message = reason.String()
	}
	if plugin := js.Global().Get(DefaultGlobal); plugin.Type() == js.TypeObject {
		if last := plugin.Get("getLastError"); last.Type() == js.TypeFunction {
			e.Detail = safeString(func() js.Value { return plugin.Call("getLastError", reason) })
		}
	}
	return e
}

func safeString(fn func() js.Value) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	v := fn()
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

func isThenable(v js.Value) bool {
	return v.Type() == js.TypeObject && v.Get("then").Type() == js.TypeFunction
}

func fromJS(v js.Value) any {
	switch v.Type() {
	case js.TypeUndefined, js.TypeNull:
		return nil
	case js.TypeBoolean:
		return v.Bool()
	case js.TypeNumber:
		return v.Float()
	case js.TypeString:
		return v.String()
	}
	if isThenable(v) {
		return &promise{v: v}
	}
	if v.InstanceOf(js.Global().Get("Date")) {
		return time.UnixMilli(int64(v.Call("getTime").Float())).UTC()
	}
	return &Object{v: v}
}

func toJS(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.v
	case time.Time:
		return js.Global().Get("Date").New(float64(t.UnixMilli()))
	case []byte:
		arr := js.Global().Get("Uint8Array").New(len(t))
		js.CopyBytesToJS(arr, t)
		return arr
	}
	return v
}

// recoverJS turns a JS exception thrown by a synchronous member access into
// a host.Error.
func recoverJS(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if jsErr, ok := r.(js.Error); ok {
		*err = rejection(jsErr.Value)
		return
	}
	*err = &host.Error{Message: fmt.Sprint(r)}
}
