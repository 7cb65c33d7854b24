// Package cache provides a single cached value with a time-boxed freshness
// window, an injectable clock and explicit invalidation.
package cache

import (
	"context"
	"sync"
	"time"
)

// Clock returns the current time. time.Now satisfies it.
type Clock func() time.Time

// Loader produces a fresh value when the cached one is missing or stale.
type Loader[T any] func(ctx context.Context) (T, error)

// Value caches the result of a Loader for a fixed freshness window.
// The zero Value is not usable; use New.
type Value[T any] struct {
	mu       sync.Mutex
	load     Loader[T]
	fresh    time.Duration
	now      Clock
	val      T
	loadedAt time.Time
	valid    bool
}

// Option configures a Value.
type Option[T any] func(*Value[T])

// WithClock overrides the clock used to judge freshness.
func WithClock[T any](c Clock) Option[T] {
	return func(v *Value[T]) {
		if c != nil {
			v.now = c
		}
	}
}

// New returns a Value that reloads through load once a cached result is older than fresh.
func New[T any](load Loader[T], fresh time.Duration, opts ...Option[T]) *Value[T] {
	v := &Value[T]{load: load, fresh: fresh, now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Get returns the cached value if still fresh, otherwise calls the loader.
// A failed load leaves the previous value invalid so the next call retries.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if v.valid && now.Sub(v.loadedAt) < v.fresh {
		return v.val, nil
	}

	val, err := v.load(ctx)
	if err != nil {
		v.valid = false
		var zero T
		return zero, err
	}
	v.val = val
	v.loadedAt = now
	v.valid = true
	return val, nil
}

// Invalidate drops the cached value; the next Get reloads.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.valid = false
	var zero T
	v.val = zero
}
