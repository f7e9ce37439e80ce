package host

import "context"

// Resolve normalizes a host result. In ModeDeferred a Deferred value is
// awaited and its settlement returned unchanged, rejection included. Any
// other value is returned as-is.
func Resolve(ctx context.Context, mode Mode, v any) (any, error) {
	if mode == ModeDeferred {
		if d, ok := v.(Deferred); ok {
			return d.Await(ctx)
		}
	}
	return v, nil
}
