// Package jshost exposes the window.cadesplugin object of a browser to the
// host bridge when running as WebAssembly. The plugin extension speaks the
// deferred convention: members return promises, properties are assigned
// through propset_ methods.
package jshost
