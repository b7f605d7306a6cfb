package atomicdict

import (
	"sync"
	"sync/atomic"
)

// accessor is per-goroutine state tied to a single Map: a reservation
// buffer, local counters used for approximate length, and a short mutex
// used by migration to briefly exclude this accessor's writers.
//
// The original design looks this structure up via thread-local storage,
// keyed by thread id. Go has no portable, safe equivalent for arbitrary
// library code (see DESIGN.md), so accessors are instead checked out of a
// sync.Pool by Handle and returned to the pool when the Handle is closed.
// Local counters live on the accessor and persist across reuse, which
// preserves invariant 6 (approx length is the sum of local_len across
// every accessor ever created) regardless of which goroutine currently
// holds the object.
type accessor[K comparable, V any] struct {
	selfMutex sync.Mutex

	localLen         atomic.Int64
	localInserted    atomic.Int64
	localTombstones  atomic.Int64

	reservation reservationBuffer

	// accessorIx is this accessor's stable slot in the owning Map's
	// participants bookkeeping, assigned once on first registration.
	accessorIx int
	registered bool
}

// accessorRegistry owns every accessor ever created for a Map, so that
// approxLen and migration can walk all of them, and so an accessor's
// counters survive being returned to the pool and later reused by a
// different goroutine.
type accessorRegistry[K comparable, V any] struct {
	mu    sync.Mutex
	all   []*accessor[K, V]
	pool  sync.Pool
}

func newAccessorRegistry[K comparable, V any]() *accessorRegistry[K, V] {
	r := &accessorRegistry[K, V]{}
	r.pool.New = func() any {
		return &accessor[K, V]{}
	}
	return r
}

// checkout returns an accessor for the calling goroutine's exclusive use.
// Callers must call release when done (typically via Handle.Close).
func (r *accessorRegistry[K, V]) checkout() *accessor[K, V] {
	a := r.pool.Get().(*accessor[K, V])
	if !a.registered {
		r.mu.Lock()
		a.accessorIx = len(r.all)
		a.registered = true
		r.all = append(r.all, a)
		r.mu.Unlock()
	}
	return a
}

func (r *accessorRegistry[K, V]) release(a *accessor[K, V]) {
	r.pool.Put(a)
}

// snapshot returns every accessor registered so far, for approxLen and
// migration bookkeeping. The slice is append-only, so a snapshot taken
// concurrently with new registrations simply misses the newcomers.
func (r *accessorRegistry[K, V]) snapshot() []*accessor[K, V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*accessor[K, V], len(r.all))
	copy(out, r.all)
	return out
}
