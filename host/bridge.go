package host

import (
	"context"
	"fmt"

	"github.com/sensiblebit/cadeskit"
)

// Bridge performs property access, method invocation and object creation
// with the same call-site code whatever convention the host speaks.
type Bridge interface {
	// Mode returns the host's calling convention.
	Mode() Mode
	// Root returns the plugin root object.
	Root() Object
	// CreateObject instantiates a host object by ProgID.
	CreateObject(ctx context.Context, progID string) (Object, error)
	// Invoke calls method on obj and returns its settled result.
	Invoke(ctx context.Context, obj Object, method string, args ...any) (any, error)
	// Get reads property key of obj and returns its settled value.
	Get(ctx context.Context, obj Object, key string) (any, error)
	// Set assigns property key of obj. Host failures are returned as
	// *cadeskit.Error titled "failed to set property <key>".
	Set(ctx context.Context, obj Object, key string, value any) error
}

// NewBridge probes root and returns the matching Bridge.
func NewBridge(root Object) Bridge {
	capability := NewCapability(root)
	if capability.SupportsAsync() {
		return &deferredBridge{root: root}
	}
	return &directBridge{root: root}
}

type directBridge struct {
	root Object
}

func (b *directBridge) Mode() Mode   { return ModeDirect }
func (b *directBridge) Root() Object { return b.root }

func (b *directBridge) CreateObject(ctx context.Context, progID string) (Object, error) {
	v, err := b.root.Call(ctx, SyncFactory, progID)
	if err == nil {
		v, err = Resolve(ctx, ModeDirect, v)
	}
	if err != nil {
		return nil, err
	}
	return asCreated(progID, v)
}

func (b *directBridge) Invoke(ctx context.Context, obj Object, method string, args ...any) (any, error) {
	v, err := obj.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, ModeDirect, v)
}

func (b *directBridge) Get(ctx context.Context, obj Object, key string) (any, error) {
	v, err := obj.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, ModeDirect, v)
}

func (b *directBridge) Set(ctx context.Context, obj Object, key string, value any) error {
	if err := obj.Set(ctx, key, value); err != nil {
		return setError(key, err)
	}
	return nil
}

type deferredBridge struct {
	root Object
}

func (b *deferredBridge) Mode() Mode   { return ModeDeferred }
func (b *deferredBridge) Root() Object { return b.root }

func (b *deferredBridge) CreateObject(ctx context.Context, progID string) (Object, error) {
	v, err := b.root.Call(ctx, AsyncFactory, progID)
	if err == nil {
		v, err = Resolve(ctx, ModeDeferred, v)
	}
	if err != nil {
		return nil, err
	}
	return asCreated(progID, v)
}

// Invoke prefers the object's <method>Async variant when it has one.
func (b *deferredBridge) Invoke(ctx context.Context, obj Object, method string, args ...any) (any, error) {
	name := method
	if obj.Has(method + AsyncSuffix) {
		name = method + AsyncSuffix
	}
	v, err := obj.Call(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, ModeDeferred, v)
}

func (b *deferredBridge) Get(ctx context.Context, obj Object, key string) (any, error) {
	v, err := obj.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, ModeDeferred, v)
}

func (b *deferredBridge) Set(ctx context.Context, obj Object, key string, value any) error {
	v, err := obj.Call(ctx, PropertySetter+key, value)
	if err == nil {
		_, err = Resolve(ctx, ModeDeferred, v)
	}
	if err != nil {
		return setError(key, err)
	}
	return nil
}

func asCreated(progID string, v any) (Object, error) {
	obj, ok := v.(Object)
	if !ok || obj == nil {
		return nil, fmt.Errorf("creating %s: host returned %T", progID, v)
	}
	return obj, nil
}

func setError(key string, err error) error {
	return cadeskit.FromHostError(err, "failed to set property "+key)
}
