package atomicdict

// Pair is one input element to Reduce: a key and an incoming value to fold
// into whatever is already stored under that key.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// AggregateFunc folds an incoming value into the current one. current is
// the zero value of V with ok==false when the key has no value yet (the
// NOT_FOUND case in §4.7).
type AggregateFunc[K comparable, V any] func(key K, current V, currentOK bool, incoming V) V

type reduceEntry[K comparable, V any] struct {
	expected  Expectation[V]
	desired   V
}

// reduceLocalTable implements step 1 of §4.7: fold every pair into an
// in-memory table keyed by K, tracking the expectation each key should be
// flushed against.
func reduceLocalTable[K comparable, V any](pairs []Pair[K, V], aggregate AggregateFunc[K, V]) map[K]*reduceEntry[K, V] {
	table := make(map[K]*reduceEntry[K, V])
	for _, p := range pairs {
		if e, ok := table[p.Key]; ok {
			e.desired = aggregate(p.Key, e.desired, true, p.Value)
			continue
		}
		table[p.Key] = &reduceEntry[K, V]{
			expected: NotFound[V](),
			desired:  aggregate(p.Key, *new(V), false, p.Value),
		}
	}
	return table
}

// reduceFlush implements step 2-4 of §4.7: attempt the recorded CAS for
// each key; on ErrExpectationFailed, reload the live value and recompute
// the desired value against it, then retry.
func reduceFlush[K comparable, V any](
	d *Map[K, V],
	table map[K]*reduceEntry[K, V],
	aggregate AggregateFunc[K, V],
	chunkSize int,
) {
	keys := make([]K, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	if chunkSize <= 0 {
		chunkSize = 128
	}

	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		for _, k := range keys[start:end] {
			e := table[k]
			local := e.desired
			for {
				_, err := d.CompareAndSet(k, e.expected, e.desired)
				if err == nil {
					break
				}
				if err != ErrExpectationFailed {
					break
				}
				current, getErr := d.Get(k)
				if getErr == nil {
					e.expected = Value(current)
					e.desired = aggregate(k, current, true, local)
				} else {
					e.expected = NotFound[V]()
					e.desired = aggregate(k, *new(V), false, local)
				}
			}
		}
	}
}

// Reduce folds pairs into d using aggregate, per §4.7: pairs sharing a key
// are folded locally first, then flushed against the map with
// compare-and-set, retrying on contention.
func (d *Map[K, V]) Reduce(pairs []Pair[K, V], aggregate AggregateFunc[K, V], chunkSize int) {
	table := reduceLocalTable(pairs, aggregate)
	reduceFlush(d, table, aggregate, chunkSize)
}
