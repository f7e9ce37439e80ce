package plugin

import (
	"context"
	"slices"
	"sync"

	"github.com/sensiblebit/cadeskit"
)

// cached holds one lazily filled result. gen advances on every reset so a
// fill that started before it cannot store its older result.
type cached[T any] struct {
	mu    sync.Mutex
	ok    bool
	value T
	gen   uint64
}

func (c *cached[T]) get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.ok
}

func (c *cached[T]) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// invalidate starts a new generation and keeps the current value.
func (c *cached[T]) invalidate() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}

// set stores v unless a reset happened since gen was taken.
func (c *cached[T]) set(gen uint64, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.value, c.ok = v, true
}

func (c *cached[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value, c.ok = zero, false
	c.gen++
}

type caches struct {
	systemInfo   cached[*SystemInfo]
	providers    cached[[]cadeskit.CryptoProvider]
	readers      cached[[]Reader]
	licenses     cached[*LicensesState]
	containers   cached[[]*Certificate]
	certificates map[Scope]*cached[[]*Certificate]
}

func (c *caches) init() {
	c.certificates = make(map[Scope]*cached[[]*Certificate])
	for _, s := range Scopes() {
		c.certificates[s] = &cached[[]*Certificate]{}
	}
}

// Reset drops every cached enumeration. Readiness is kept.
func (c *Client) Reset() {
	c.caches.systemInfo.clear()
	c.caches.providers.clear()
	c.caches.readers.clear()
	c.caches.licenses.clear()
	c.caches.containers.clear()
	for _, entry := range c.caches.certificates {
		entry.clear()
	}
}

// fill returns the cached value or computes it once for all concurrent
// callers. A successful result is cached; errors are not and leave the
// previous value in place. With reset the host is always asked again: the
// caller does not join a flight that started before it.
func fill[T any](ctx context.Context, c *Client, key string, entry *cached[T], reset bool, fn func(context.Context) (T, error)) (T, error) {
	key = "cache:" + key
	var gen uint64
	if reset {
		gen = entry.invalidate()
		c.flight.Forget(key)
	} else if v, ok := entry.get(); ok {
		return v, nil
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		if !reset {
			if v, ok := entry.get(); ok {
				return v, nil
			}
			gen = entry.generation()
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		entry.set(gen, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	val, _ := v.(T)
	return val, nil
}

// cloneList returns a copy of a cached slice so callers cannot mutate the
// cache.
func cloneList[T any](s []T) []T {
	return slices.Clone(s)
}
