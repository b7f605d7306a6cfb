package atomicdict_test

import (
	"fmt"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/robinhood-dict/atomicdict/pkg/atomicdict"
)

// Test_EightWriters_DisjointRanges_AllKeysGettable is end-to-end scenario 2
// from the design: 8 goroutines each insert 10,000 disjoint keys, joined
// with an errgroup (the pack's own habit for bounded concurrent fan-out,
// in place of a hand-rolled WaitGroup-plus-channel) rather than a bare
// sync.WaitGroup, since every worker here is infallible and errgroup.Wait
// already gives the join point for free.
func Test_EightWriters_DisjointRanges_AllKeysGettable(t *testing.T) {
	m := newStringMap(t)

	const workers = 8
	const perWorker = 10_000

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				m.Set(fmt.Sprintf("w%d-%d", w, i), w*perWorker+i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("writer group: %v", err)
	}

	if got := m.ApproxLen(); got != int64(workers*perWorker) {
		t.Fatalf("ApproxLen() = %d, want %d", got, workers*perWorker)
	}

	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			key := fmt.Sprintf("w%d-%d", w, i)
			got, err := m.Get(key)
			if err != nil {
				t.Fatalf("Get(%s): %v", key, err)
			}
			if got != w*perWorker+i {
				t.Fatalf("Get(%s) = %d, want %d", key, got, w*perWorker+i)
			}
		}
	}
}

// Test_FourWriters_FastIterFourPartitions_UnionCoversInsertedSet is
// end-to-end scenario 6, scaled down from 1M to a size that keeps this
// test fast: fill concurrently via an errgroup of writers, then scan with
// one FastIter goroutine per partition and check the union of yields
// equals the inserted key set with no duplicates.
func Test_FourWriters_FastIterFourPartitions_UnionCoversInsertedSet(t *testing.T) {
	m, err := atomicdict.New[int, int](intHash, atomicdict.WithInitialSize(1<<16))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const writers = 4
	const perWriter = 20_000
	const total = writers * perWriter

	var wg errgroup.Group
	for w := 0; w < writers; w++ {
		w := w
		wg.Go(func() error {
			for i := 0; i < perWriter; i++ {
				key := w*perWriter + i
				m.Set(key, key*2)
			}
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		t.Fatalf("writer group: %v", err)
	}

	const partitions = 4
	seen := make(map[int]int, total)
	var mu sync.Mutex
	var ig errgroup.Group
	for p := 0; p < partitions; p++ {
		p := p
		ig.Go(func() error {
			it := m.FastIter(partitions, p)
			local := make(map[int]int)
			for {
				k, v, ok, err := it.Next()
				if err != nil {
					return fmt.Errorf("partition %d: %w", p, err)
				}
				if !ok {
					break
				}
				if _, dup := local[k]; dup {
					return fmt.Errorf("partition %d yielded key %d twice", p, k)
				}
				local[k] = v
			}
			mu.Lock()
			for k, v := range local {
				seen[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := ig.Wait(); err != nil {
		t.Fatalf("iterator group: %v", err)
	}

	if len(seen) != total {
		t.Fatalf("fast iter saw %d keys, want %d", len(seen), total)
	}
	for k, v := range seen {
		if v != k*2 {
			t.Fatalf("seen[%d] = %d, want %d", k, v, k*2)
		}
	}
}
