// Package atomicdictmodel is a plain, sequential reference model of
// atomicdict.Map's externally observable behavior: a simple mutex-guarded
// Go map exposing the same Get/Set/Delete/CompareAndSet surface. Tests
// replay the same randomized operation sequence against the model and
// against the real concurrent implementation and assert they agree,
// mirroring the model-based checks the teacher's slotcache package ran
// against its own on-disk format.
package atomicdictmodel

import "sync"

// Model is a reference oracle for atomicdict.Map[K, V] with K, V
// restricted to comparable so CompareAndSet's expected-value matching is
// well-defined without reflection.
type Model[K comparable, V comparable] struct {
	mu   sync.Mutex
	data map[K]V
}

// New returns an empty Model.
func New[K comparable, V comparable]() *Model[K, V] {
	return &Model[K, V]{data: make(map[K]V)}
}

// Get reports the value stored for key and whether it was present.
func (m *Model[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Set unconditionally stores value for key.
func (m *Model[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Delete removes key, reporting whether it was present.
func (m *Model[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	delete(m.data, key)
	return ok
}

// ExpectationKind mirrors atomicdict.Expectation's three sentinel shapes,
// duplicated here rather than imported so the model has no dependency on
// the package it is checking.
type ExpectationKind int

const (
	ExpectNotFound ExpectationKind = iota
	ExpectAny
	ExpectValue
)

// CompareAndSet applies the same unified semantics as
// atomicdict.Map.CompareAndSet (§4.5 of the design this mirrors): it
// reports the previous value (if any) and whether the expectation was
// satisfied.
func (m *Model[K, V]) CompareAndSet(key K, kind ExpectationKind, expected, desired V) (prev V, hadPrev bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, present := m.data[key]

	switch kind {
	case ExpectNotFound:
		if present {
			return current, true, false
		}
		m.data[key] = desired
		return prev, false, true

	case ExpectAny:
		m.data[key] = desired
		return current, present, true

	case ExpectValue:
		if !present || current != expected {
			return current, present, false
		}
		m.data[key] = desired
		return current, true, true
	}
	return prev, false, false
}

// Len returns the exact number of live keys.
func (m *Model[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Snapshot returns a copy of the model's current contents.
func (m *Model[K, V]) Snapshot() map[K]V {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[K]V, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}
