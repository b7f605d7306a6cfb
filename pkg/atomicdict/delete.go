package atomicdict

// deleteKey implements §4.6: find the key, CAS its entry's value to nil,
// then write a tombstone into the index slot the lookup found it at. The
// index write is a plain store: ownership of that slot is settled once
// the entry-level CAS wins.
func deleteKey[K comparable, V any](m *meta[K, V], acc *accessor[K, V], hash uint64, key K, eq func(a, b K) bool) (V, error) {
	for {
		res := lookup(m, hash, key, eq)
		if !res.found {
			var zero V
			return zero, ErrNotFound
		}

		vp := res.entry.value.Load()
		if vp == nil {
			// concurrently deleted; restart the lookup
			continue
		}
		if !res.entry.value.CompareAndSwap(vp, nil) {
			continue
		}

		m.writeRawNodeAt(res.index, tombstoneWord(m.logSize))
		acc.localLen.Add(-1)
		acc.localTombstones.Add(1)
		return *vp, nil
	}
}
