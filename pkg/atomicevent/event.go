// Package atomicevent provides a thread-parking, one-shot event: Set marks
// the event as signalled and wakes every current and future waiter, Wait
// blocks until that happens, and IsSet reports the current state without
// blocking.
//
// It mirrors the AtomicEvent primitive consumed by atomicdict's migration
// coordination (new-metadata-ready, node-migration-done, migration-done):
// a handful of goroutines race to observe a single transition from unset to
// set, and none of them may be left parked if the transition never comes
// from the expected caller (the migration leader sets all three events on
// failure so followers are never stranded).
package atomicevent

import "sync"

// Event is a one-shot, multi-waiter signal. The zero value is ready to use.
type Event struct {
	mu   sync.Mutex
	cond sync.Cond
	once sync.Once
	set  bool
}

func (e *Event) init() {
	e.once.Do(func() {
		e.cond.L = &e.mu
	})
}

// Set marks the event as signalled and wakes all waiters. Set is idempotent.
func (e *Event) Set() {
	e.init()
	e.mu.Lock()
	e.set = true
	e.mu.Unlock()
	e.cond.Broadcast()
}

// IsSet reports whether Set has been called.
func (e *Event) IsSet() bool {
	e.init()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until Set has been called, returning immediately if it
// already has.
func (e *Event) Wait() {
	e.init()
	e.mu.Lock()
	defer e.mu.Unlock()
	for !e.set {
		e.cond.Wait()
	}
}
