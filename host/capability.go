package host

import "sync"

// Mode is the calling convention of a host.
type Mode int

const (
	// ModeDirect hosts return plain values and accept property assignment.
	ModeDirect Mode = iota
	// ModeDeferred hosts return Deferred values and set properties through
	// propset_ methods.
	ModeDeferred
)

func (m Mode) String() string {
	if m == ModeDeferred {
		return "deferred"
	}
	return "direct"
}

// Naming conventions of the asynchronous host.
const (
	AsyncFactory   = "CreateObjectAsync"
	SyncFactory    = "CreateObject"
	AsyncSuffix    = "Async"
	PropertySetter = "propset_"
)

// Probe inspects root once: a root exposing CreateObjectAsync speaks the
// deferred convention.
func Probe(root Object) Mode {
	if root != nil && root.Has(AsyncFactory) {
		return ModeDeferred
	}
	return ModeDirect
}

// Capability caches the Probe verdict for one root object.
type Capability struct {
	root Object
	once sync.Once
	mode Mode
}

// NewCapability returns a Capability for root. The root is probed on first
// use.
func NewCapability(root Object) *Capability {
	return &Capability{root: root}
}

// Mode returns the cached calling convention.
func (c *Capability) Mode() Mode {
	c.once.Do(func() {
		c.mode = Probe(c.root)
	})
	return c.mode
}

// SupportsAsync reports whether the host speaks the deferred convention.
func (c *Capability) SupportsAsync() bool {
	return c.Mode() == ModeDeferred
}
