package atomicdict

// batchGet implements §4.8: for every key in keys, look it up against the
// stable meta m and record either Value(v) or NotFound() in the result
// map. chunking is not observable from outside the package (no OS
// prefetch is available in portable Go), but keys are still processed in
// chunkSize batches so large batches do not hold one meta snapshot for an
// arbitrarily long scan under concurrent migration -- see (*Map).BatchGet.
func batchGet[K comparable, V any](m *meta[K, V], keys []K, hashOf func(K) uint64, eq func(a, b K) bool, chunkSize int) map[K]Expectation[V] {
	if chunkSize <= 0 {
		chunkSize = 128
	}
	out := make(map[K]Expectation[V], len(keys))
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		for _, k := range keys[start:end] {
			res := lookup(m, hashOf(k), k, eq)
			if res.found {
				out[k] = Value(res.value)
			} else {
				out[k] = NotFound[V]()
			}
		}
	}
	return out
}
