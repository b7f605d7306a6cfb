// Package atomicref provides a single-object atomic reference with
// compare-and-set, get-and-set, and plain get/set.
//
// It is a thin generic wrapper around [atomic.Pointer] that matches the
// "atomic reference" interface consumed by higher-level structures such as
// atomicdict's meta cell: a single owned pointer that can be swapped or
// conditionally swapped by any goroutine without external locking.
package atomicref

import "sync/atomic"

// Ref is an atomically updatable reference to a *T.
//
// The zero value is not usable; construct one with [New].
type Ref[T any] struct {
	p atomic.Pointer[T]
}

// New returns a Ref holding initial.
func New[T any](initial *T) *Ref[T] {
	r := &Ref[T]{}
	r.p.Store(initial)
	return r
}

// Get returns the currently held reference.
func (r *Ref[T]) Get() *T {
	return r.p.Load()
}

// Set unconditionally replaces the held reference and returns the previous
// value.
func (r *Ref[T]) Set(desired *T) *T {
	return r.p.Swap(desired)
}

// CompareAndSet atomically replaces the held reference with desired if and
// only if the currently held reference is expected. It reports whether the
// swap happened.
func (r *Ref[T]) CompareAndSet(expected, desired *T) bool {
	return r.p.CompareAndSwap(expected, desired)
}
