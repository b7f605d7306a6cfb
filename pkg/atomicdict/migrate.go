package atomicdict

import "sync/atomic"

// blockwiseMigrateSize is BLOCKWISE_MIGRATE_SIZE: the unit of work a
// single participant claims from the old index at a time.
const blockwiseMigrateSize = 4096

// participant states for meta.participants, per §4.10 common_migrate.
const (
	participantNotStarted uint8 = 0
	participantMigrating  uint8 = 1
	participantDone       uint8 = 2
)

var migrationLeaderCounter atomic.Uint64

// triggerMigration installs a new generation of size targetLogSize over
// d, electing a leader among whichever accessors observe oldMeta stale.
// It implements §4.10: leader election via CAS on migrationLeader,
// followers wait on newMetadataReady then join commonMigrate, the leader
// swaps d's meta cell and signals migrationDone last.
func triggerMigration[K comparable, V any](d *Map[K, V], oldMeta *meta[K, V], targetLogSize uint8) *meta[K, V] {
	selfID := migrationLeaderCounter.Add(1)

	if oldMeta.migrationLeader.CompareAndSwap(0, selfID) {
		return leaderMigrate(d, oldMeta, targetLogSize)
	}

	// follower: wait for the leader to publish the new generation
	oldMeta.newMetadataReady.Wait()
	newMeta := oldMeta.newGenMetadata.Load()
	if newMeta == nil {
		// leader failed before publishing; nothing to help with
		return d.meta.Get()
	}
	commonMigrate(oldMeta, newMeta)
	oldMeta.migrationDone.Wait()
	return d.meta.Get()
}

func leaderMigrate[K comparable, V any](d *Map[K, V], oldMeta *meta[K, V], targetLogSize uint8) *meta[K, V] {
	if targetLogSize < minLogSize {
		targetLogSize = minLogSize
	}
	if targetLogSize > maxLogSize {
		oldMeta.newMetadataReady.Set()
		oldMeta.nodeMigrationDone.Set()
		oldMeta.migrationDone.Set()
		return oldMeta
	}

	accessors := d.accessors.snapshot()
	for _, a := range accessors {
		a.selfMutex.Lock()
	}
	grow := targetLogSize > oldMeta.logSize
	if grow {
		defer func() {
			for _, a := range accessors {
				a.selfMutex.Unlock()
			}
		}()
	} else {
		for _, a := range accessors {
			a.selfMutex.Unlock()
		}
	}

	newMeta := newMeta[K, V](targetLogSize, oldMeta.reservationBufferSize)
	sharedPages := len(oldMeta.pages)
	if len(newMeta.pages) < sharedPages {
		sharedPages = len(newMeta.pages)
	}
	for i := 0; i < sharedPages; i++ {
		newMeta.pages[i].Store(oldMeta.pages[i].Load())
	}
	newMeta.greatestAllocatedPage.Store(oldMeta.greatestAllocatedPage.Load())
	newMeta.insertingPage.Store(oldMeta.insertingPage.Load())

	newMeta.participants = make([]atomic.Uint32, len(accessors))

	oldMeta.newGenMetadata.Store(newMeta)
	oldMeta.newMetadataReady.Set()

	commonMigrate(oldMeta, newMeta)

	d.meta.CompareAndSet(oldMeta, newMeta)
	oldMeta.migrationDone.Set()
	return newMeta
}

// commonMigrate is run by every participant (leader included): claim
// blocks of the old index via a shared cursor, rehash each block's live
// nodes into newMeta, and signal nodeMigrationDone once the old index is
// exhausted.
func commonMigrate[K comparable, V any](oldMeta, newMeta *meta[K, V]) {
	size := oldMeta.ringSize()

	for {
		start := oldMeta.nodeToMigrate.Add(blockwiseMigrateSize) - blockwiseMigrateSize
		if start >= size {
			break
		}
		end := start + blockwiseMigrateSize
		if end > size {
			end = size
		}
		migrateBlock(oldMeta, newMeta, start, end)
	}

	oldMeta.nodeMigrationDone.Set()
}

// migrateBlock rehashes every live node in [start, end) of the old index
// into newMeta, using newMeta's own d0 for each entry's stored hash.
// Tombstones and empty slots are dropped, which is how shrink compacts
// them away (§4.10, "shrink also compacts").
func migrateBlock[K comparable, V any](oldMeta, newMeta *meta[K, V], start, end uint64) {
	newSize := newMeta.ringSize()

	for ix := start; ix < end; ix++ {
		raw, n := oldMeta.readNodeAt(ix)
		if isEmptyWord(raw) || isTombstoneWord(raw, oldMeta.logSize) {
			continue
		}

		loc := entryLoc{location: n.entryIndex}
		e := oldMeta.entryAt(loc)
		vp := e.value.Load()
		if vp == nil {
			continue
		}

		tag := tagOf(e.hash, newMeta.logSize)
		d0 := distance0Of(e.hash, newMeta.logSize)
		desired := node{entryIndex: loc.location, tag: tag}.encode(newMeta.logSize)

		for distance := uint64(0); distance < newSize; {
			newIx := (d0 + distance) & (newSize - 1)
			newRaw, _ := newMeta.readNodeAt(newIx)
			if !isEmptyWord(newRaw) {
				distance++
				continue
			}
			if newMeta.casNodeAt(newIx, newRaw, desired) {
				break
			}
			// lost a race for this empty slot; retry it
		}
	}
}
