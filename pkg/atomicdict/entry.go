package atomicdict

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// entryFlags bits stored on an Entry.
const (
	entryReserved uint32 = 1 << iota // slot claimed for a pending insert
)

// logEntriesInPage is ATOMIC_DICT_LOG_ENTRIES_IN_PAGE from the original
// design: each page holds 1<<logEntriesInPage entries.
const logEntriesInPage = 6

// entriesInPage is the fixed entry count per page.
const entriesInPage = 1 << logEntriesInPage

// entry is one slot in a page. value is nil for an empty or deleted slot;
// once non-nil, key and hash are stable for the entry's remaining lifetime
// within a generation. flags carries entryReserved while the slot is
// claimed but not yet published through the index.
type entry[K comparable, V any] struct {
	flags atomic.Uint32
	hash  uint64
	key   K
	value atomic.Pointer[V]
}

// tryReserve claims this entry for a pending insert. It is the Go
// equivalent of the CAS on AtomicDictEntry.flags from 0 to
// ENTRY_FLAGS_RESERVED.
func (e *entry[K, V]) tryReserve() bool {
	return e.flags.CompareAndSwap(0, entryReserved)
}

func (e *entry[K, V]) isReserved() bool {
	return e.flags.Load()&entryReserved != 0
}

// publish makes the reserved entry visible with its final key/hash/value.
// Callers must have successfully published the owning index node before
// any other accessor can observe this entry through a lookup, per the
// design's release-then-publish ordering.
func (e *entry[K, V]) publish(key K, hash uint64, value V) {
	e.key = key
	e.hash = hash
	e.value.Store(&value)
}

// unpublish clears a reserved entry's value, leaving flags still set to
// entryReserved. Used to undo a publish whose owning index-node CAS lost
// the race, so the slot doesn't sit with a live value that no node
// references (which would make it visible to FastIter's page scan despite
// being unreachable via lookup).
func (e *entry[K, V]) unpublish() {
	e.value.Store(nil)
}

// page is a fixed-size, cache-line-padded array of entries. Pages are
// allocated lazily and linked into a meta by index; once allocated a page
// is never moved, only its entries' values change (or the page itself is
// dropped on shrink).
type page[K comparable, V any] struct {
	entries [entriesInPage]paddedEntry[K, V]
}

// paddedEntry pads an entry to its own cache line to avoid false sharing
// between accessors claiming adjacent slots concurrently.
type paddedEntry[K comparable, V any] struct {
	entry[K, V]
	_ cpu.CacheLinePad
}

func newPage[K comparable, V any]() *page[K, V] {
	return &page[K, V]{}
}

func (p *page[K, V]) entryAt(slot int) *entry[K, V] {
	return &p.entries[slot].entry
}

// entryLoc addresses a single entry by its flattened location: page index
// and the offset within that page.
type entryLoc struct {
	location uint64 // page<<logEntriesInPage + offset
}

func makeEntryLoc(pageIx int64, offset int) entryLoc {
	return entryLoc{location: uint64(pageIx)<<logEntriesInPage | uint64(offset)}
}

func (l entryLoc) page() int64 {
	return int64(l.location >> logEntriesInPage)
}

func (l entryLoc) offset() int {
	return int(l.location & (entriesInPage - 1))
}

func (l entryLoc) valid() bool {
	return l.location != 0
}
