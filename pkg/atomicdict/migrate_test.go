package atomicdict

import "testing"

func hashOfInt(i int) uint64 {
	return uint64(i) * 0x9E3779B97F4A7C15
}

func Test_Audit_LiveCountMatchesInsertedMinusTombstones(t *testing.T) {
	m, err := New[int, int](hashOfInt, WithInitialSize(128))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 300; i++ {
		m.Set(i, i)
	}
	for i := 0; i < 100; i++ {
		if err := m.Delete(i); err != nil {
			t.Fatalf("Delete(%d): %v", i, err)
		}
	}

	res := audit(m.currentMeta())
	wantLive := 200
	if res.liveEntries != wantLive {
		t.Fatalf("audit live entries = %d, want %d", res.liveEntries, wantLive)
	}
	if res.tombstones != 100 {
		t.Fatalf("audit tombstones = %d, want 100", res.tombstones)
	}
	if res.nonMonotonicRuns != 0 {
		t.Fatalf("audit found %d non-monotonic Robin-Hood runs", res.nonMonotonicRuns)
	}
}

func Test_TriggerMigration_PreservesAllKeys(t *testing.T) {
	m, err := New[int, int](hashOfInt, WithInitialSize(64))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before := m.currentMeta()
	for i := 0; i < 40; i++ {
		m.Set(i, i*10)
	}

	triggerMigration(m, m.currentMeta(), before.logSize+1)

	after := m.currentMeta()
	if after == before {
		t.Fatalf("triggerMigration did not install a new generation")
	}
	if after.logSize != before.logSize+1 {
		t.Fatalf("after.logSize = %d, want %d", after.logSize, before.logSize+1)
	}

	for i := 0; i < 40; i++ {
		got, err := m.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) after migration: %v", i, err)
		}
		if got != i*10 {
			t.Fatalf("Get(%d) = %d, want %d", i, got, i*10)
		}
	}
}

func Test_Migrate_ConcurrentHelpersAllObserveSameFinalGeneration(t *testing.T) {
	m, err := New[int, int](hashOfInt, WithInitialSize(64))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 40; i++ {
		m.Set(i, i)
	}

	oldMeta := m.currentMeta()
	results := make(chan *meta[int, int], 8)
	for g := 0; g < 8; g++ {
		go func() {
			results <- triggerMigration(m, oldMeta, oldMeta.logSize+1)
		}()
	}

	var first *meta[int, int]
	for g := 0; g < 8; g++ {
		got := <-results
		if first == nil {
			first = got
		} else if got != first {
			t.Fatalf("participant %d observed a different final meta", g)
		}
	}

	for i := 0; i < 40; i++ {
		if _, err := m.Get(i); err != nil {
			t.Fatalf("Get(%d) after concurrent migration: %v", i, err)
		}
	}
}
