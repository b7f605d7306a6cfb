// Package atomicdict implements a concurrent, open-addressed hash map
// with linear probing, a split index/entries layout, and online
// grow/shrink migration. See the package's design notes for the encoding
// and migration protocol; this file is the public entry point.
package atomicdict

import (
	"fmt"
	"sync"

	"github.com/robinhood-dict/atomicdict/pkg/atomicref"
)

// Map is a thread-safe hash map from K to V supporting lock-free reads,
// compare-and-set writes, batched reads, group-by reduction, online
// resizing, and a partitioned fast iterator.
//
// The zero value is not usable; construct one with New.
type Map[K comparable, V any] struct {
	meta      *atomicref.Ref[meta[K, V]]
	accessors *accessorRegistry[K, V]

	hashOf func(K) uint64
	eq     func(a, b K) bool

	cfg   config
	lenMu sync.Mutex
}

// HashFunc computes a 64-bit hash for a key. Equal keys must hash equal.
type HashFunc[K comparable] func(K) uint64

// New constructs a Map. hashOf must be a stable hash function for K; a
// default based on K's native equality is not provided because Go has no
// portable generic hash over comparable -- callers supply one (fnv, xxhash,
// maphash, whatever their key type calls for).
func New[K comparable, V any](hashOf HashFunc[K], opts ...Option) (*Map[K, V], error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logSize := logSizeFor(cfg.initialSize)
	m := newMeta[K, V](logSize, cfg.reservationBuf)

	d := &Map[K, V]{
		meta:      atomicref.New(m),
		accessors: newAccessorRegistry[K, V](),
		hashOf:    hashOf,
		eq:        func(a, b K) bool { return a == b },
		cfg:       cfg,
	}

	if cfg.initialPairs != nil {
		pairs, ok := cfg.initialPairs.([]Pair[K, V])
		if !ok {
			return nil, fmt.Errorf("atomicdict: WithInitialPairs type mismatch: got %T", cfg.initialPairs)
		}
		for _, p := range pairs {
			d.Set(p.Key, p.Value)
		}
	}

	return d, nil
}

// Handle is a checked-out per-goroutine accessor. Operations on the Map
// itself (Get, Set, ...) acquire and release a Handle internally for each
// call. Handle has no map operations of its own, only Close, so holding
// one does not save the per-call checkout those operations make.
type Handle[K comparable, V any] struct {
	d   *Map[K, V]
	acc *accessor[K, V]
}

// GetHandle checks out a per-goroutine accessor from d. Close must be
// called when done to return it to the pool.
func (d *Map[K, V]) GetHandle() *Handle[K, V] {
	return &Handle[K, V]{d: d, acc: d.accessors.checkout()}
}

// Close returns the handle's accessor to the pool.
func (h *Handle[K, V]) Close() {
	h.d.accessors.release(h.acc)
}

func (d *Map[K, V]) withHandle(fn func(acc *accessor[K, V])) {
	h := d.GetHandle()
	defer h.Close()
	fn(h.acc)
}

// currentMeta returns the map's current generation. It only loads the
// meta cell; it does not help an in-progress migration along.
func (d *Map[K, V]) currentMeta() *meta[K, V] {
	return d.meta.Get()
}

// Get returns the value stored for key, or ErrNotFound.
func (d *Map[K, V]) Get(key K) (V, error) {
	hash := d.hashOf(key)
	for {
		m := d.currentMeta()
		res := lookup(m, hash, key, d.eq)
		if d.currentMeta() != m {
			continue
		}
		if !res.found {
			var zero V
			return zero, ErrNotFound
		}
		return res.value, nil
	}
}

// GetOrDefault returns the value stored for key, or def if absent.
func (d *Map[K, V]) GetOrDefault(key K, def V) V {
	v, err := d.Get(key)
	if err != nil {
		return def
	}
	return v
}

// Set stores value for key, overwriting any previous value.
func (d *Map[K, V]) Set(key K, value V) {
	_, _ = d.CompareAndSet(key, Any[V](), value)
}

// Delete removes key, returning ErrNotFound if it was absent.
//
// The mutating call is made with acc.selfMutex held. leaderMigrate locks
// every accessor's selfMutex to exclude writers while a grow migration is
// in flight (§4.10): a writer either finishes its op before the leader
// can acquire that lock, or blocks on Lock until the leader has installed
// the new generation and released it. Either way, once the lock is ours
// currentMeta is re-checked against m before touching the index -- the
// lock only guarantees no migration can *complete* while we hold it, not
// that m was still current the moment we acquired it -- and the op is
// skipped and retried against the fresh generation if it went stale while
// we waited. This closes the lost-write race an unguarded write path
// would otherwise have against a concurrent grow. Shrink migrations
// release writer locks immediately (see Compact), so this does not
// exclude writers during a shrink; Compact is bounded instead (see its
// doc comment) to avoid the hazard that would otherwise create.
func (d *Map[K, V]) Delete(key K) error {
	hash := d.hashOf(key)
	var outErr error
	d.withHandle(func(acc *accessor[K, V]) {
		for {
			m := d.currentMeta()
			acc.selfMutex.Lock()
			if d.currentMeta() != m {
				acc.selfMutex.Unlock()
				continue
			}
			_, err := deleteKey(m, acc, hash, key, d.eq)
			acc.selfMutex.Unlock()
			outErr = err
			return
		}
	})
	return outErr
}

// CompareAndSet performs the unified insert/update primitive from §4.5:
// if expected matches the key's current state, it is replaced with
// desired and the previous value (if any) is returned; otherwise
// ErrExpectationFailed is returned.
//
// See Delete's doc comment for why the mutating call is made with
// acc.selfMutex held and currentMeta re-checked immediately after the
// lock is acquired.
func (d *Map[K, V]) CompareAndSet(key K, expected Expectation[V], desired V) (V, error) {
	hash := d.hashOf(key)
	var (
		prev V
		err  error
	)
	d.withHandle(func(acc *accessor[K, V]) {
		for {
			m := d.currentMeta()
			acc.selfMutex.Lock()
			if d.currentMeta() != m {
				acc.selfMutex.Unlock()
				continue
			}
			v, _, e := expectedInsertOrUpdate(m, acc, hash, key, d.eq, expected, desired)
			acc.selfMutex.Unlock()
			if e == errMustGrow {
				d.grow(m)
				continue
			}
			prev, err = v, e
			return
		}
	})
	return prev, err
}

// grow installs a new generation with logSize+1, or helps an in-flight
// migration along if one has already started against oldMeta.
func (d *Map[K, V]) grow(oldMeta *meta[K, V]) {
	if d.currentMeta() != oldMeta {
		return // someone already migrated past this generation
	}
	triggerMigration(d, oldMeta, oldMeta.logSize+1)
}

// Compact triggers a shrink-and-compact migration to the smallest logSize
// whose ring holds twice the map's approximate length, dropping tombstones in
// the process (§4.10, "shrink also compacts"). There is no automatic
// shrink trigger (§9 open question); callers invoke this explicitly.
//
// A shrink's page directory is a straight truncation: leaderMigrate
// copies only the pointers the new, shorter directory has room for and
// carries greatestAllocatedPage/insertingPage across unchanged (see
// migrate.go), without remapping any entry location that encodes a now
// out-of-range page index. Rather than implement that remap, the target
// logSize is bumped back up -- never above the map's current logSize, in
// which case Compact is a no-op -- until the resulting directory has at
// least greatestAllocatedPage+1 slots, so every page actually in use
// still has a home after the shrink.
//
// Compact also does not exclude concurrent writers (leaderMigrate drops
// the writer-exclusion locks immediately for a shrink, unlike for a
// grow; see Delete's doc comment), so it is meant to be called from a
// quiescent point rather than raced against a steady stream of writes.
func (d *Map[K, V]) Compact() {
	m := d.currentMeta()
	target := logSizeFor(uint64(d.ApproxLen()) * 2)
	if target >= m.logSize {
		return
	}

	if ga := m.greatestAllocatedPage.Load(); ga >= 0 {
		greatestAllocated := uint64(ga)
		for target < m.logSize && pagesForLogSize(target) <= greatestAllocated {
			target++
		}
	}
	if target >= m.logSize {
		return
	}

	triggerMigration(d, m, target)
}

// BatchGet resolves every key in keys against a single meta snapshot,
// restarting the whole batch if a migration is observed mid-scan.
func (d *Map[K, V]) BatchGet(keys []K, chunkSize int) map[K]Expectation[V] {
	for {
		m := d.currentMeta()
		out := batchGet(m, keys, d.hashOf, d.eq, chunkSize)
		if d.currentMeta() == m {
			return out
		}
	}
}

// FastIter returns an iterator over this partition's disjoint slice of
// every page, per §4.9. partitions must divide entriesInPage evenly
// (1, 2, 4, 8, 16, 32, or 64).
func (d *Map[K, V]) FastIter(partitions, thisPartition int) *FastIter[K, V] {
	return fastIter(d.currentMeta(), partitions, thisPartition)
}

// ApproxLen returns the sum of every accessor's local_len (§4.11). It is
// not linearizable with concurrent writers.
func (d *Map[K, V]) ApproxLen() int64 {
	var total int64
	for _, a := range d.accessors.snapshot() {
		total += a.localLen.Load()
	}
	return total
}

// LenBounds returns (lower, upper) bounds on the true length, per §4.11.
func (d *Map[K, V]) LenBounds() (lower, upper int64) {
	sum := d.ApproxLen()
	if sum < 0 {
		sum = 0
	}
	return sum, sum + int64(len(d.accessors.snapshot()))
}

// Len returns the exact length by locking out concurrent writers briefly,
// approximating the "synchronous lock" exactness guarantee from §4.11.
// Prefer ApproxLen on any hot path; Len is for diagnostics.
func (d *Map[K, V]) Len() int64 {
	d.lenMu.Lock()
	defer d.lenMu.Unlock()

	accessors := d.accessors.snapshot()
	for _, a := range accessors {
		a.selfMutex.Lock()
	}
	defer func() {
		for _, a := range accessors {
			a.selfMutex.Unlock()
		}
	}()

	return d.ApproxLen()
}
