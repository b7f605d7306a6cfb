package atomicdict

// lookupResult carries what a successful probe found, so insert/delete can
// reuse it without a second traversal.
type lookupResult[K comparable, V any] struct {
	found    bool
	index    uint64
	raw      uint64
	loc      entryLoc
	entry    *entry[K, V]
	value    V
}

// lookup walks the probe sequence for hash/key starting at d0, per §4.4:
// empty ends the search, tombstones and tag mismatches are skipped, a tag
// match is resolved by reading the entry and comparing key identity/value.
func lookup[K comparable, V any](m *meta[K, V], hash uint64, key K, eq func(a, b K) bool) lookupResult[K, V] {
	d0 := distance0Of(hash, m.logSize)
	tag := tagOf(hash, m.logSize)
	size := m.ringSize()

	for distance := uint64(0); distance < size; distance++ {
		ix := (d0 + distance) & (size - 1)
		raw, n := m.readNodeAt(ix)

		if isEmptyWord(raw) {
			return lookupResult[K, V]{}
		}
		if isTombstoneWord(raw, m.logSize) {
			continue
		}
		if n.tag != tag {
			continue
		}

		loc := entryLoc{location: n.entryIndex}
		e := m.entryAt(loc)
		vp := e.value.Load()
		if vp == nil {
			continue
		}
		if e.hash != hash {
			continue
		}
		if !eq(e.key, key) {
			continue
		}
		return lookupResult[K, V]{found: true, index: ix, raw: raw, loc: loc, entry: e, value: *vp}
	}
	return lookupResult[K, V]{}
}
