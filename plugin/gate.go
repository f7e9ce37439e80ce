package plugin

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// State is the readiness of a Client.
type State int

const (
	StateNotLoaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not loaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// memo holds a settled outcome for the lifetime of the Client.
type memo[T any] struct {
	mu    sync.Mutex
	done  bool
	value T
	err   error
}

func (m *memo[T]) get() (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.done, m.err
}

func (m *memo[T]) set(v T, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value, m.err, m.done = v, err, true
}

// maxFlightJoins bounds how often a caller re-joins a flight abandoned by
// a cancelled leader.
const maxFlightJoins = 3

// once runs fn at most once per settled outcome. Concurrent callers share
// the in-flight call and each may stop waiting when its own ctx ends.
// Cancellation is not memoized so that a later caller starts over.
func once[T any](ctx context.Context, c *Client, key string, m *memo[T], fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for range maxFlightJoins {
		if v, ok, err := m.get(); ok {
			return v, err
		}
		ch := c.flight.DoChan(key, func() (any, error) {
			if v, ok, err := m.get(); ok {
				return v, err
			}
			v, err := fn(ctx)
			if !isCancellation(err) {
				m.set(v, err)
			}
			return v, err
		})
		select {
		case res := <-ch:
			if isCancellation(res.Err) && ctx.Err() == nil {
				// The leader was cancelled; its outcome is not ours.
				continue
			}
			if res.Err != nil {
				return zero, res.Err
			}
			v, _ := res.Val.(T)
			return v, nil
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, context.Canceled
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// State reports the readiness of the client.
func (c *Client) State() State {
	if _, ok, err := c.ready.get(); ok {
		if err != nil {
			return StateFailed
		}
		return StateReady
	}
	if c.loading.Load() {
		return StateLoading
	}
	return StateNotLoaded
}

// SystemValidated reports whether system validation has passed.
func (c *Client) SystemValidated() bool {
	return c.validated.Load()
}

// CheckPlugin loads the host plugin without validating the system.
func (c *Client) CheckPlugin(ctx context.Context) error {
	_, err := c.rootBridge(ctx)
	return err
}

func (c *Client) rootBridge(ctx context.Context) (host.Bridge, error) {
	return once(ctx, c, "root", &c.root, c.loadRoot)
}

func (c *Client) ensureReady(ctx context.Context) (host.Bridge, error) {
	b, err := once(ctx, c, "ready", &c.ready, func(ctx context.Context) (host.Bridge, error) {
		c.loading.Store(true)
		defer c.loading.Store(false)

		b, err := c.rootBridge(ctx)
		if err != nil {
			return nil, err
		}
		if c.Settings().CheckSystemSetup {
			if err := c.checkSystemSetup(withValidation(ctx, b)); err != nil {
				return nil, err
			}
			c.validated.Store(true)
			slog.Debug("system setup validated")
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	if c.Settings().DebugHostPlugin {
		c.enableHostDebug(ctx, b)
	}
	return b, nil
}

func (c *Client) loadRoot(ctx context.Context) (host.Bridge, error) {
	if c.load == nil {
		return nil, cadeskit.NewError(cadeskit.CodeNotInitialized, "module not initialized", nil)
	}
	v, err := c.load(ctx)
	if err != nil {
		if isCancellation(err) {
			return nil, err
		}
		return nil, cadeskit.NewError(cadeskit.CodeLoadFailed, "failed to load plugin library", err)
	}
	if v == nil {
		return nil, cadeskit.NewError(cadeskit.CodeNotInitialized, "module not initialized", nil)
	}
	if d, ok := v.(host.Deferred); ok {
		v, err = d.Await(ctx)
		if err != nil {
			if isCancellation(err) {
				return nil, err
			}
			return nil, cadeskit.NewError(cadeskit.CodeNotInitialized, "module failed to initialize", err)
		}
	}
	root, err := host.AsObject(v)
	if err != nil {
		return nil, cadeskit.NewError(cadeskit.CodeNotInitialized, "module not initialized", err)
	}
	b := host.NewBridge(root)
	slog.Debug("plugin loaded", "mode", b.Mode())
	return b, nil
}

// enableHostDebug asks the host to log verbosely. Failures are ignored.
func (c *Client) enableHostDebug(ctx context.Context, b host.Bridge) {
	level, err := b.Get(ctx, b.Root(), "LOG_LEVEL_DEBUG")
	if err == nil {
		_, err = b.Invoke(ctx, b.Root(), "set_log_level", level)
	}
	if err != nil {
		slog.Debug("enabling host plugin debug log", "error", err)
	}
}

type validationKey struct{}

func withValidation(ctx context.Context, b host.Bridge) context.Context {
	return context.WithValue(ctx, validationKey{}, b)
}

func validating(ctx context.Context) (host.Bridge, bool) {
	b, ok := ctx.Value(validationKey{}).(host.Bridge)
	return b, ok
}
