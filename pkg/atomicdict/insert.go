package atomicdict

// getEmptyEntry reserves a fresh entry slot for acc, per §4.3: first drain
// the accessor's local reservation buffer; otherwise claim a contiguous
// run of slots in the current inserting page and refill the buffer; if
// the inserting page is full, advance to the next page or allocate one.
// It returns errMustGrow if the index has run out of page capacity.
func getEmptyEntry[K comparable, V any](m *meta[K, V], acc *accessor[K, V]) (entryLoc, error) {
	if loc, ok := acc.reservation.pop(); ok {
		return loc, nil
	}

	stride := m.reservationBufferSize
	if stride <= 0 || stride > entriesInPage {
		stride = 1
	}

	for {
		insertingPage := m.insertingPage.Load()

		for offset := 0; offset < entriesInPage; offset += stride {
			p := m.pages[insertingPage].Load()
			if p == nil {
				break
			}
			e := p.entryAt(offset)
			if !e.isReserved() && e.tryReserve() {
				loc := makeEntryLoc(insertingPage, offset)
				run := stride
				if offset+run > entriesInPage {
					run = entriesInPage - offset
				}
				acc.reservation.put(loc, run)
				got, ok := acc.reservation.pop()
				if ok {
					return got, nil
				}
			}
		}

		if m.insertingPage.Load() != insertingPage {
			continue
		}

		greatest := m.greatestAllocatedPage.Load()
		if greatest > insertingPage {
			m.insertingPage.CompareAndSwap(insertingPage, insertingPage+1)
			continue
		}

		if uint64(greatest+1) >= uint64(len(m.pages)) {
			return entryLoc{}, errMustGrow
		}

		newPg := newPage[K, V]()
		newPg.entryAt(0).tryReserve() // guard entry 0 -- including page 0's, the first page ever allocated
		if m.pages[greatest+1].CompareAndSwap(nil, newPg) {
			m.greatestAllocatedPage.CompareAndSwap(greatest, greatest+1)
			m.insertingPage.CompareAndSwap(insertingPage, greatest+1)
		}
	}
}

// expectedInsertOrUpdate is the unified insert/update/compare-and-set
// primitive described in §4.5. It returns the previous value (if any),
// whether one existed, and an error (ErrExpectationFailed or the internal
// must-grow signal).
//
// Per §4.3/§4.5, a candidate entry is reserved once, up front, and the
// same entryLoc is reused across every CAS retry against an empty slot
// ("on failure, do not advance -- re-read and retry this slot"). If the
// probe instead resolves against an already-present key (the update path)
// or runs out of ring to probe, the reservation is recycled: its value is
// cleared (if it was ever published) and the location is handed back to
// the accessor's reservation buffer for the next caller, rather than left
// behind as a live, unreferenced entry that FastIter's page scan would
// wrongly yield.
func expectedInsertOrUpdate[K comparable, V any](
	m *meta[K, V],
	acc *accessor[K, V],
	hash uint64,
	key K,
	eq func(a, b K) bool,
	expected Expectation[V],
	desired V,
) (previous V, hadPrevious bool, err error) {
	d0 := distance0Of(hash, m.logSize)
	tag := tagOf(hash, m.logSize)
	size := m.ringSize()

	var (
		loc       entryLoc
		haveLoc   bool
		published bool
	)
	if expected.kind != expectValue {
		l, gerr := getEmptyEntry(m, acc)
		if gerr != nil {
			return previous, false, gerr
		}
		loc = l
		haveLoc = true
	}
	recycle := func() {
		if !haveLoc {
			return
		}
		e := m.entryAt(loc)
		if published {
			e.unpublish()
			published = false
		}
		acc.reservation.put(loc, 1)
		haveLoc = false
	}

	for distance := uint64(0); distance < size; distance++ {
		if distance > maxDistance(m.logSize) {
			recycle()
			return previous, false, errMustGrow
		}

		ix := (d0 + distance) & (size - 1)

	readSlot:
		raw, n := m.readNodeAt(ix)

		if isEmptyWord(raw) {
			if expected.kind == expectValue {
				return previous, false, ErrExpectationFailed
			}

			e := m.entryAt(loc)
			e.publish(key, hash, desired)
			published = true

			desiredNode := node{entryIndex: loc.location, tag: tag}
			if !m.casNodeAt(ix, raw, desiredNode.encode(m.logSize)) {
				e.unpublish()
				published = false
				goto readSlot
			}
			haveLoc = false // now owned by the index; not ours to recycle
			acc.localLen.Add(1)
			acc.localInserted.Add(1)
			return previous, false, nil
		}

		if isTombstoneWord(raw, m.logSize) {
			continue
		}
		if n.tag != tag {
			continue
		}

		existingLoc := entryLoc{location: n.entryIndex}
		e := m.entryAt(existingLoc)
		if e.hash != hash || !eq(e.key, key) {
			continue
		}

		for {
			vp := e.value.Load()
			if vp == nil {
				// concurrently deleted; treat as absent and keep probing
				break
			}

			switch expected.kind {
			case expectValue:
				if !valuesEqual(*vp, expected.value) {
					recycle()
					return *vp, true, ErrExpectationFailed
				}
			case expectNotFound:
				recycle()
				return *vp, true, ErrExpectationFailed
			}

			d := desired
			if e.value.CompareAndSwap(vp, &d) {
				recycle()
				return *vp, true, nil
			}
			// lost the race on the entry's value; reread and retry
		}
		// entry was concurrently deleted: keep walking the probe, this
		// index slot no longer denotes a live key for this lookup
	}

	recycle()
	return previous, false, errMustGrow
}

// valuesEqual compares two values of a generic type via their dynamic
// ==. V is only constrained to `any`, so this panics if V's underlying
// type is not comparable (slice, map, func) -- callers that pass such a V
// to CompareAndSet with a concrete Expectation get that panic instead of a
// silently wrong comparison.
func valuesEqual[V any](a, b V) bool {
	return any(a) == any(b)
}
