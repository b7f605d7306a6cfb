package atomicdict

import "golang.org/x/exp/constraints"

// ReduceSum is reduce_sum from §4.7: folds pairs by addition.
func ReduceSum[K comparable, V constraints.Ordered](d *Map[K, V], pairs []Pair[K, V], chunkSize int) {
	d.Reduce(pairs, func(_ K, current V, currentOK bool, incoming V) V {
		if !currentOK {
			return incoming
		}
		return current + incoming
	}, chunkSize)
}

// ReduceMax is reduce_max: keeps the largest value seen per key.
func ReduceMax[K comparable, V constraints.Ordered](d *Map[K, V], pairs []Pair[K, V], chunkSize int) {
	d.Reduce(pairs, func(_ K, current V, currentOK bool, incoming V) V {
		if !currentOK || incoming > current {
			return incoming
		}
		return current
	}, chunkSize)
}

// ReduceMin is reduce_min: keeps the smallest value seen per key.
func ReduceMin[K comparable, V constraints.Ordered](d *Map[K, V], pairs []Pair[K, V], chunkSize int) {
	d.Reduce(pairs, func(_ K, current V, currentOK bool, incoming V) V {
		if !currentOK || incoming < current {
			return incoming
		}
		return current
	}, chunkSize)
}

// ReduceAnd is reduce_and: logical AND of boolean values per key.
func ReduceAnd[K comparable](d *Map[K, bool], pairs []Pair[K, bool], chunkSize int) {
	d.Reduce(pairs, func(_ K, current bool, currentOK bool, incoming bool) bool {
		if !currentOK {
			return incoming
		}
		return current && incoming
	}, chunkSize)
}

// ReduceOr is reduce_or: logical OR of boolean values per key.
func ReduceOr[K comparable](d *Map[K, bool], pairs []Pair[K, bool], chunkSize int) {
	d.Reduce(pairs, func(_ K, current bool, currentOK bool, incoming bool) bool {
		if !currentOK {
			return incoming
		}
		return current || incoming
	}, chunkSize)
}

// ReduceCount is reduce_count: counts occurrences of each key.
func ReduceCount[K comparable](d *Map[K, int64], pairs []Pair[K, struct{}], chunkSize int) {
	asPairs := make([]Pair[K, int64], len(pairs))
	for i, p := range pairs {
		asPairs[i] = Pair[K, int64]{Key: p.Key, Value: 1}
	}
	ReduceSum(d, asPairs, chunkSize)
}

// ReduceList is reduce_list: appends every incoming value to a per-key
// slice.
func ReduceList[K comparable, V any](d *Map[K, []V], pairs []Pair[K, V], chunkSize int) {
	grouped := make([]Pair[K, []V], len(pairs))
	for i, p := range pairs {
		grouped[i] = Pair[K, []V]{Key: p.Key, Value: []V{p.Value}}
	}
	d.Reduce(grouped, func(_ K, current []V, currentOK bool, incoming []V) []V {
		if !currentOK {
			return incoming
		}
		return append(current, incoming...)
	}, chunkSize)
}
