// Package host adapts the object model of the CryptoPro CAdES plugin. The
// plugin exposes the same CAdESCOM objects either synchronously (COM on
// Windows, NPAPI-era browsers) or asynchronously (the browser extension,
// where every call returns a promise). Host implementations wrap their native
// handles as Object; the Bridge hides which convention the host uses.
package host

import "context"

// Object is a handle into the host plugin's object space.
type Object interface {
	// Get reads a property. The value may be a Deferred.
	Get(ctx context.Context, name string) (any, error)
	// Set assigns a property directly.
	Set(ctx context.Context, name string, value any) error
	// Call invokes a method. The result may be a Deferred.
	Call(ctx context.Context, name string, args ...any) (any, error)
	// Has reports whether the object exposes a member with this name.
	Has(name string) bool
}

// Deferred is a value the host settles later, such as a JS promise.
type Deferred interface {
	Await(ctx context.Context) (any, error)
}

// Loader loads the host plugin and returns its root object. The returned
// value may be an Object, a Deferred resolving to one, or nil when the plugin
// is not present.
type Loader func(ctx context.Context) (any, error)

// Error is an exception raised by a host implementation.
type Error struct {
	// Message is the text of the exception.
	Message string
	// Code is the result code attached by the host, if any.
	Code string
	// Detail is the host's extended diagnostic for this exception.
	Detail string
}

func (e *Error) Error() string { return e.Message }

// HostCode returns the result code attached by the host.
func (e *Error) HostCode() string { return e.Code }

// Diagnostic returns the host's extended diagnostic.
func (e *Error) Diagnostic() string { return e.Detail }
