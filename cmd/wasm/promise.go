//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"
	"time"

	"github.com/sensiblebit/cadeskit"
)

// operationTimeout bounds one call; PIN dialogs of the CSP count towards it.
const operationTimeout = 5 * time.Minute

// promise runs fn on a goroutine and settles a JS promise with its result.
// Results that are strings or Uint8Arrays pass through; anything else is
// returned as JSON.
func promise(fn func(ctx context.Context) (any, error)) any {
	handler := js.FuncOf(func(_ js.Value, promiseArgs []js.Value) any {
		resolve := promiseArgs[0]
		reject := promiseArgs[1]
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
			defer cancel()

			v, err := fn(ctx)
			if err != nil {
				reject.Invoke(jsError(err))
				return
			}
			out, err := toJSResult(v)
			if err != nil {
				reject.Invoke(jsError(err))
				return
			}
			resolve.Invoke(out)
		}()
		return nil
	})
	// Promise.New calls the executor synchronously; release immediately after.
	p := js.Global().Get("Promise").New(handler)
	handler.Release()
	return p
}

func toJSResult(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return js.Null(), nil
	case string:
		return t, nil
	case []byte:
		arr := js.Global().Get("Uint8Array").New(len(t))
		js.CopyBytesToJS(arr, t)
		return arr, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return string(data), nil
}

// jsError builds a JS Error carrying the domain code and title.
func jsError(err error) js.Value {
	jsErr := js.Global().Get("Error").New(err.Error())
	var e *cadeskit.Error
	if errors.As(err, &e) {
		jsErr.Set("code", e.Code)
		jsErr.Set("title", e.Title)
		jsErr.Set("category", string(e.Category))
		if e.Message != "" {
			jsErr.Set("message", e.Message)
		}
	}
	return jsErr
}

// rejected returns a rejected promise with an error message.
func rejected(msg string) any {
	return promise(func(context.Context) (any, error) {
		return nil, errors.New(msg)
	})
}

func stringArg(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func boolOption(opts js.Value, name string) bool {
	if opts.Type() != js.TypeObject {
		return false
	}
	v := opts.Get(name)
	return v.Type() == js.TypeBoolean && v.Bool()
}

func argAt(args []js.Value, i int) js.Value {
	if i >= len(args) {
		return js.Undefined()
	}
	return args[i]
}

// bytesArg copies a Uint8Array argument, or encodes a string argument as
// UTF-8.
func bytesArg(v js.Value) ([]byte, error) {
	switch {
	case v.Type() == js.TypeString:
		return []byte(v.String()), nil
	case v.Type() == js.TypeObject && v.InstanceOf(js.Global().Get("Uint8Array")):
		data := make([]byte, v.Length())
		js.CopyBytesToGo(data, v)
		return data, nil
	}
	return nil, errors.New("data must be a string or a Uint8Array")
}
