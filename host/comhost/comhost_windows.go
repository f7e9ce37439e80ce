//go:build windows

package comhost

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"golang.org/x/sys/windows/registry"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// dispException is DISP_E_EXCEPTION: the real code is inside the exception
// description.
const dispException = 0x80020009

// Loader initializes COM and returns a synthetic root whose CreateObject
// instantiates CAdESCOM objects by ProgID. The root fails when CAdESCOM is not
// registered.
func Loader() host.Loader {
	return func(context.Context) (any, error) {
		if err := registered(cadeskit.ProgIDAbout); err != nil {
			return nil, err
		}
		if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
			var oleErr *ole.OleError
			if !errors.As(err, &oleErr) || oleErr.Code() != ole.S_FALSE {
				return nil, fmt.Errorf("initializing COM: %w", err)
			}
		}
		return &root{}, nil
	}
}

// registered reports whether progID has a CLSID registered.
func registered(progID string) error {
	k, err := registry.OpenKey(registry.CLASSES_ROOT, progID+`\CLSID`, registry.QUERY_VALUE)
	if err != nil {
		return fmt.Errorf("%s is not registered: %w", progID, err)
	}
	return k.Close()
}

// root stands in for the plugin object of the browser hosts.
type root struct{}

func (*root) Get(_ context.Context, name string) (any, error) {
	if name == "LOG_LEVEL_DEBUG" {
		return 4, nil
	}
	return nil, &host.Error{Message: fmt.Sprintf("Unknown name %s. (0x80020006)", name), Code: "0x80020006"}
}

func (*root) Set(_ context.Context, name string, _ any) error {
	return &host.Error{Message: fmt.Sprintf("cannot assign %s on the COM root", name)}
}

func (*root) Call(_ context.Context, name string, args ...any) (any, error) {
	switch name {
	case host.SyncFactory:
		progID, _ := firstArg(args).(string)
		return create(progID)
	case "set_log_level":
		// COM objects log through the CSP's own settings.
		return nil, nil
	}
	return nil, &host.Error{Message: fmt.Sprintf("Unknown name %s. (0x80020006)", name), Code: "0x80020006"}
}

func (*root) Has(name string) bool {
	return name == host.SyncFactory || name == "set_log_level" || name == "LOG_LEVEL_DEBUG"
}

func create(progID string) (any, error) {
	unknown, err := oleutil.CreateObject(progID)
	if err != nil {
		return nil, convert(err)
	}
	defer unknown.Release()
	disp, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, convert(err)
	}
	return wrap(disp), nil
}

// Object wraps an automation object.
type Object struct {
	disp *ole.IDispatch
}

func wrap(disp *ole.IDispatch) *Object {
	o := &Object{disp: disp}
	runtime.SetFinalizer(o, func(o *Object) { o.disp.Release() })
	return o
}

// Get implements host.Object.
func (o *Object) Get(_ context.Context, name string) (any, error) {
	v, err := oleutil.GetProperty(o.disp, name)
	if err != nil {
		return nil, convert(err)
	}
	return value(v), nil
}

// Set implements host.Object.
func (o *Object) Set(_ context.Context, name string, val any) error {
	v, err := oleutil.PutProperty(o.disp, name, arg(val))
	if err != nil {
		return convert(err)
	}
	_ = v.Clear()
	return nil
}

// Call implements host.Object.
func (o *Object) Call(_ context.Context, name string, args ...any) (any, error) {
	params := make([]any, len(args))
	for i, a := range args {
		params[i] = arg(a)
	}
	v, err := oleutil.CallMethod(o.disp, name, params...)
	if err != nil {
		return nil, convert(err)
	}
	return value(v), nil
}

// Has implements host.Object.
func (o *Object) Has(name string) bool {
	_, err := o.disp.GetIDsOfNames([]string{name})
	return err == nil
}

func arg(v any) any {
	if obj, ok := v.(*Object); ok {
		return obj.disp
	}
	return v
}

// value converts a VARIANT result. Dispatch results keep their reference;
// everything else is copied out and the VARIANT cleared.
func value(v *ole.VARIANT) any {
	if v == nil {
		return nil
	}
	if v.VT == ole.VT_DISPATCH {
		disp := v.ToIDispatch()
		if disp == nil {
			return nil
		}
		return wrap(disp)
	}
	out := v.Value()
	_ = v.Clear()
	return out
}

// convert maps an automation failure to host.Error. Exceptions raised by
// CAdESCOM carry the result code in their description, which the error model
// extracts.
func convert(err error) error {
	var oleErr *ole.OleError
	if !errors.As(err, &oleErr) {
		return &host.Error{Message: err.Error()}
	}
	e := &host.Error{Message: oleErr.Error()}
	if code := oleErr.Code(); code != dispException {
		e.Code = fmt.Sprintf("0x%08X", uint32(code))
	}
	if sub := oleErr.SubError(); sub != nil {
		e.Detail = sub.Error()
	}
	return e
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
