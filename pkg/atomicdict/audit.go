package atomicdict

// auditResult is the outcome of a full index-ring traversal, used by
// tests to check §8's "audit traversal finds exactly
// approx_inserted - approx_tombstones live entries" property and Robin-Hood
// displacement monotonicity within clusters.
type auditResult struct {
	liveEntries       int
	tombstones        int
	emptySlots        int
	maxClusterLen     int
	nonMonotonicRuns  int
}

// audit walks every slot of m's index ring once, classifying it and
// checking that within each cluster (a maximal run of non-empty slots),
// recorded displacement never decreases before an empty slot or the
// cluster's end.
func audit[K comparable, V any](m *meta[K, V]) auditResult {
	var res auditResult
	size := m.ringSize()

	clusterLen := 0
	lastDistance := int64(-1)

	for ix := uint64(0); ix < size; ix++ {
		raw, n := m.readNodeAt(ix)

		if isEmptyWord(raw) {
			res.emptySlots++
			if clusterLen > res.maxClusterLen {
				res.maxClusterLen = clusterLen
			}
			clusterLen = 0
			lastDistance = -1
			continue
		}

		clusterLen++

		if isTombstoneWord(raw, m.logSize) {
			res.tombstones++
			continue
		}

		res.liveEntries++

		loc := entryLoc{location: n.entryIndex}
		e := m.entryAt(loc)
		d0 := distance0Of(e.hash, m.logSize)
		distance := int64((ix - d0) & (size - 1))

		if distance < lastDistance {
			res.nonMonotonicRuns++
		}
		lastDistance = distance
	}
	if clusterLen > res.maxClusterLen {
		res.maxClusterLen = clusterLen
	}

	return res
}
