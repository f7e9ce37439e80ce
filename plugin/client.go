// Package plugin is the process-scoped client of the CryptoPro CAdES
// browser plugin. A Client loads the host root once, optionally validates
// the workstation, and exposes every plugin operation with typed results
// and *cadeskit.Error failures.
package plugin

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// Client talks to one host plugin instance. It is safe for concurrent use.
type Client struct {
	load host.Loader
	now  func() time.Time

	settingsMu sync.RWMutex
	settings   cadeskit.Settings

	flight    singleflight.Group
	loading   atomic.Bool
	validated atomic.Bool
	root      memo[host.Bridge]
	ready     memo[host.Bridge]

	caches caches
}

// Option configures a Client.
type Option func(*Client)

// WithSettings replaces the default settings.
func WithSettings(s *cadeskit.Settings) Option {
	return func(c *Client) {
		if s != nil {
			c.settings = cloneSettings(*s)
		}
	}
}

// WithClock overrides the time source used by certificate validation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New returns a Client that obtains the host root through load.
func New(load host.Loader, opts ...Option) *Client {
	c := &Client{
		load:     load,
		now:      time.Now,
		settings: *cadeskit.DefaultSettings(),
	}
	c.caches.init()
	for _, opt := range opts {
		opt(c)
	}
	cadeskit.SetDebug(c.settings.Debug)
	return c
}

// Settings returns a copy of the current settings.
func (c *Client) Settings() cadeskit.Settings {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return cloneSettings(c.settings)
}

// UpdateSettings applies fn to the settings. The changes are seen by the
// next operation; a validation that already ran is not repeated.
func (c *Client) UpdateSettings(fn func(*cadeskit.Settings)) {
	c.settingsMu.Lock()
	fn(&c.settings)
	debug := c.settings.Debug
	c.settingsMu.Unlock()
	cadeskit.SetDebug(debug)
}

func cloneSettings(s cadeskit.Settings) cadeskit.Settings {
	s.CheckCryptoProviders = slices.Clone(s.CheckCryptoProviders)
	return s
}

// trace logs an operation step when Settings.Debug is on.
func (c *Client) trace(msg string, args ...any) {
	if c.Settings().Debug {
		slog.Debug(msg, args...)
	}
}

// run executes op behind the initialization gate. Calls issued by system
// validation reuse the validating bridge and skip the gate.
func run[T any](ctx context.Context, c *Client, op func(context.Context, host.Bridge) (T, error)) (T, error) {
	if b, ok := validating(ctx); ok {
		return op(ctx, b)
	}
	b, err := c.ensureReady(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return op(ctx, b)
}

// CreateObject creates a host object by ProgID.
func (c *Client) CreateObject(ctx context.Context, progID string) (host.Object, error) {
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (host.Object, error) {
		return createObject(ctx, b, progID)
	})
}

func createObject(ctx context.Context, b host.Bridge, progID string) (host.Object, error) {
	if progID == "" {
		return nil, cadeskit.Missing("The object ProgID is required.")
	}
	obj, err := b.CreateObject(ctx, progID)
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to create object "+progID)
	}
	return obj, nil
}
