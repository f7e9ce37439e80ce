// Package hosttest provides a scriptable fake of the CAdES plugin object
// model. A Host runs either synchronously (values returned directly) or
// asynchronously (values wrapped in Deferred, properties set through
// propset_ methods, every method also reachable as <name>Async). Every
// member access is recorded for assertions.
package hosttest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sensiblebit/cadeskit/host"
)

// Method implements a fake host method.
type Method func(args ...any) (any, error)

// PropFunc computes a property value on every read.
type PropFunc func() (any, error)

// Call is one recorded member access.
type Call struct {
	Object string
	Member string
	Args   []any
}

func (c Call) String() string {
	return c.Object + "." + c.Member
}

// Deferred is a settled fake promise.
type Deferred struct {
	Value any
	Err   error
	Delay time.Duration
}

// Await returns the settlement after Delay, or the context error.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return d.Value, d.Err
}

// Host is a fake plugin root with a registry of creatable objects.
type Host struct {
	// Async selects the deferred calling convention.
	Async bool
	// LoadDelay delays every Loader call.
	LoadDelay time.Duration
	// LoadErr makes the Loader fail.
	LoadErr error
	// NilRoot makes the Loader return no root.
	NilRoot bool
	// RootErr makes the asynchronous root promise reject.
	RootErr error

	mu        sync.Mutex
	calls     []Call
	loads     int
	factories map[string]func() *Object
	created   map[string][]*Object
	root      *Object
}

// New returns a Host whose root supports CreateObject and set_log_level.
func New(async bool) *Host {
	h := &Host{
		Async:     async,
		factories: make(map[string]func() *Object),
		created:   make(map[string][]*Object),
	}
	h.root = h.NewObject("cadesplugin")
	h.root.SetProp("LOG_LEVEL_DEBUG", 4)
	h.root.OnCall("set_log_level", func(...any) (any, error) { return nil, nil })
	h.root.OnCall("CreateObject", h.createObject)
	return h
}

// Root returns the root object.
func (h *Host) Root() *Object { return h.root }

// Loader returns a host.Loader handing out the root.
func (h *Host) Loader() host.Loader {
	return func(ctx context.Context) (any, error) {
		h.mu.Lock()
		h.loads++
		h.mu.Unlock()
		if h.LoadDelay > 0 {
			select {
			case <-time.After(h.LoadDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if h.LoadErr != nil {
			return nil, h.LoadErr
		}
		if h.NilRoot {
			return nil, nil
		}
		if h.Async {
			return &Deferred{Value: h.root, Err: h.RootErr}, nil
		}
		return h.root, nil
	}
}

// Loads returns how many times the Loader ran.
func (h *Host) Loads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads
}

// Register installs a factory for progID.
func (h *Host) Register(progID string, factory func() *Object) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.factories[progID] = factory
}

// Created returns the objects created for progID, oldest first.
func (h *Host) Created(progID string) []*Object {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.created[progID])
}

func (h *Host) createObject(args ...any) (any, error) {
	progID, _ := arg(args, 0).(string)
	h.mu.Lock()
	factory, ok := h.factories[progID]
	h.mu.Unlock()
	if !ok {
		return nil, &host.Error{Message: "Invalid class string (0x800401F3)", Code: "0x800401F3"}
	}
	obj := factory()
	h.mu.Lock()
	h.created[progID] = append(h.created[progID], obj)
	h.mu.Unlock()
	return obj, nil
}

// Calls returns every recorded access.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.calls)
}

// Count returns how many recorded accesses match "Object.Member".
func (h *Host) Count(call string) int {
	n := 0
	for _, c := range h.Calls() {
		if c.String() == call {
			n++
		}
	}
	return n
}

// CountSuffix returns how many recorded members end with suffix.
func (h *Host) CountSuffix(suffix string) int {
	n := 0
	for _, c := range h.Calls() {
		if strings.HasSuffix(c.Member, suffix) {
			n++
		}
	}
	return n
}

func (h *Host) record(obj, member string, args []any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{Object: obj, Member: member, Args: slices.Clone(args)})
}

// Object is a fake host object.
type Object struct {
	host *Host
	name string
	// Permissive objects accept unknown methods (returning nil) and
	// unknown property reads (returning a fresh permissive object).
	Permissive bool

	mu      sync.Mutex
	props   map[string]any
	methods map[string]Method
}

// NewObject returns an empty object recorded under name.
func (h *Host) NewObject(name string) *Object {
	return &Object{
		host:    h,
		name:    name,
		props:   make(map[string]any),
		methods: make(map[string]Method),
	}
}

// Name returns the recording name of the object.
func (o *Object) Name() string { return o.name }

// SetProp sets a property value. A PropFunc value is evaluated on each read.
func (o *Object) SetProp(name string, v any) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.props[name] = v
	return o
}

// Prop returns the stored property value.
func (o *Object) Prop(name string) any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.props[name]
}

// OnCall installs a method.
func (o *Object) OnCall(name string, m Method) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.methods[name] = m
	return o
}

func (o *Object) settle(v any, err error) (any, error) {
	if o.host.Async {
		return &Deferred{Value: v, Err: err}, nil
	}
	return v, err
}

// Get implements host.Object.
func (o *Object) Get(_ context.Context, name string) (any, error) {
	o.host.record(o.name, name, nil)
	o.mu.Lock()
	v, ok := o.props[name]
	permissive := o.Permissive
	o.mu.Unlock()
	if !ok {
		if permissive {
			child := o.host.NewObject(o.name + "." + name)
			child.Permissive = true
			o.SetProp(name, child)
			return o.settle(child, nil)
		}
		return o.settle(nil, unknownName(name))
	}
	if fn, ok := v.(PropFunc); ok {
		return o.settle(fn())
	}
	return o.settle(v, nil)
}

// Set implements host.Object. Asynchronous objects reject direct
// assignment.
func (o *Object) Set(_ context.Context, name string, value any) error {
	o.host.record(o.name, name+"=", []any{value})
	if o.host.Async {
		return &host.Error{Message: fmt.Sprintf("cannot assign %s on an asynchronous object", name)}
	}
	o.SetProp(name, value)
	return nil
}

// Call implements host.Object.
func (o *Object) Call(_ context.Context, name string, args ...any) (any, error) {
	o.host.record(o.name, name, args)

	if o.host.Async {
		if prop, ok := strings.CutPrefix(name, host.PropertySetter); ok {
			o.SetProp(prop, arg(args, 0))
			return &Deferred{}, nil
		}
		if base, ok := strings.CutSuffix(name, host.AsyncSuffix); ok {
			if m := o.method(base); m != nil {
				return o.settle(m(args...))
			}
		}
	}
	m := o.method(name)
	if m == nil {
		if o.Permissive {
			return o.settle(nil, nil)
		}
		return o.settle(nil, unknownName(name))
	}
	return o.settle(m(args...))
}

// Has implements host.Object.
func (o *Object) Has(name string) bool {
	if o.host.Async {
		if strings.HasPrefix(name, host.PropertySetter) {
			return true
		}
		if base, ok := strings.CutSuffix(name, host.AsyncSuffix); ok {
			return o.method(base) != nil
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, isMethod := o.methods[name]
	_, isProp := o.props[name]
	return isMethod || isProp
}

func (o *Object) method(name string) Method {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.methods[name]
}

func unknownName(name string) error {
	return &host.Error{Message: fmt.Sprintf("Unknown name %s. (0x80020006)", name), Code: "0x80020006"}
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}
