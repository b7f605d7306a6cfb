package atomicdict

import (
	"sync/atomic"

	"github.com/robinhood-dict/atomicdict/pkg/atomicevent"
)

// maxDistance bounds Robin-Hood displacement before a probe must trigger a
// grow. It is half the ring size (the whole ring for rings under 8 slots)
// and is not derived from the tag width, so a probe triggers a grow well
// before it gets expensive.
func maxDistance(logSize uint8) uint64 {
	size := uint64(1) << logSize
	if size < 8 {
		return size
	}
	return size / 2
}

// meta is an immutable-per-generation snapshot of the map's state: the
// index ring, the page directory, and migration coordination fields. A
// Map never mutates a meta's logSize or swaps its index/pages slices;
// growth and shrink always install a freshly built meta.
type meta[K comparable, V any] struct {
	logSize    uint8
	generation uint64

	index []atomic.Uint64                // len == 1<<logSize
	pages []atomic.Pointer[page[K, V]]    // len == (1<<logSize)/entriesInPage, lazily filled
	reservationBufferSize int

	insertingPage         atomic.Int64
	greatestAllocatedPage atomic.Int64
	greatestDeletedPage   atomic.Int64
	greatestRefilledPage  atomic.Int64

	// migration coordination
	newGenMetadata atomic.Pointer[meta[K, V]]
	migrationLeader atomic.Uint64
	nodeToMigrate   atomic.Uint64

	participants []atomic.Uint32 // per-accessor: 0 not-started, 1 migrating, 2 done

	newMetadataReady *atomicevent.Event
	nodeMigrationDone *atomicevent.Event
	migrationDone     *atomicevent.Event
}

var metaGenerationCounter atomic.Uint64

// pagesForLogSize returns the page-directory length for a ring of size
// 1<<logSize: one atomic.Pointer slot per entriesInPage-sized chunk.
// Compact uses this to keep a shrink from producing a directory shorter
// than the number of pages actually allocated -- see Compact's doc
// comment.
func pagesForLogSize(logSize uint8) uint64 {
	size := uint64(1) << logSize
	numPages := size / entriesInPage
	if numPages == 0 {
		numPages = 1
	}
	return numPages
}

func newMeta[K comparable, V any](logSize uint8, reservationBufferSize int) *meta[K, V] {
	size := uint64(1) << logSize
	numPages := int(pagesForLogSize(logSize))
	m := &meta[K, V]{
		logSize:                logSize,
		generation:              metaGenerationCounter.Add(1),
		index:                   make([]atomic.Uint64, size),
		pages:                   make([]atomic.Pointer[page[K, V]], numPages),
		reservationBufferSize:   reservationBufferSize,
		newMetadataReady:        new(atomicevent.Event),
		nodeMigrationDone:       new(atomicevent.Event),
		migrationDone:           new(atomicevent.Event),
	}
	m.greatestAllocatedPage.Store(-1)
	m.greatestDeletedPage.Store(-1)
	m.greatestRefilledPage.Store(-1)
	return m
}

func (m *meta[K, V]) ringSize() uint64 {
	return uint64(1) << m.logSize
}

func (m *meta[K, V]) readNodeAt(ix uint64) (uint64, node) {
	raw := m.index[ix&(m.ringSize()-1)].Load()
	return raw, decodeNode(raw, m.logSize)
}

func (m *meta[K, V]) casNodeAt(ix uint64, expectedRaw, desiredRaw uint64) bool {
	return m.index[ix&(m.ringSize()-1)].CompareAndSwap(expectedRaw, desiredRaw)
}

func (m *meta[K, V]) writeRawNodeAt(ix uint64, raw uint64) {
	m.index[ix&(m.ringSize()-1)].Store(raw)
}

// entryAt dereferences an entryLoc, allocating no pages: the page must
// already be allocated by the time any node references it.
func (m *meta[K, V]) entryAt(loc entryLoc) *entry[K, V] {
	p := m.pages[loc.page()].Load()
	return p.entryAt(loc.offset())
}
