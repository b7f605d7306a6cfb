package atomicdict

// FastIter is the partitioned scan from §4.9. Each of `partitions`
// concurrent iterators scans a disjoint slice of every page (slots
// [thisPartition*stride, (thisPartition+1)*stride) per page, where stride
// is entriesInPage/partitions), so the union of all partitions' yields
// covers every slot exactly once. Iteration is page-major and advances to
// the next page once its slice is exhausted.
type FastIter[K comparable, V any] struct {
	m             *meta[K, V]
	partitions    int
	thisPartition int

	page   int64
	offset int
	done   bool
}

// fastIter constructs a FastIter bound to the given meta snapshot.
// partitions must divide entriesInPage evenly; thisPartition is in
// [0, partitions).
func fastIter[K comparable, V any](m *meta[K, V], partitions, thisPartition int) *FastIter[K, V] {
	stride := entriesInPage / partitions
	if stride == 0 {
		stride = 1
	}
	return &FastIter[K, V]{
		m:             m,
		partitions:    partitions,
		thisPartition: thisPartition,
		page:          0,
		offset:        thisPartition * stride,
	}
}

func (it *FastIter[K, V]) stride() int {
	s := entriesInPage / it.partitions
	if s == 0 {
		return 1
	}
	return s
}

// Next advances the iterator and reports its current key/value. It
// returns ok==false once every page up to greatestAllocatedPage has been
// scanned. err is ErrConcurrentUsageDetected if the entry at the current
// slot appears to have been deleted in the middle of being read (its
// value pointer was observed non-nil then nil within this call).
func (it *FastIter[K, V]) Next() (key K, value V, ok bool, err error) {
	if it.done {
		return key, value, false, nil
	}

	stride := it.stride()
	limit := it.m.greatestAllocatedPage.Load()

	for it.page <= limit {
		p := it.m.pages[it.page].Load()
		end := (it.thisPartition + 1) * stride
		if p != nil {
			for it.offset < end {
				e := p.entryAt(it.offset)
				it.offset++

				vp := e.value.Load()
				if vp == nil {
					continue
				}
				k, v := e.key, *vp
				// Re-check after the read to approximate a try-upgrade:
				// if the value slot was cleared while we were reading it,
				// report concurrent usage instead of a possibly torn
				// read.
				if e.value.Load() == nil {
					return key, value, false, ErrConcurrentUsageDetected
				}
				return k, v, true, nil
			}
		}

		it.page++
		it.offset = it.thisPartition * stride
	}

	it.done = true
	return key, value, false, nil
}
