package atomicdict_test

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"testing"

	"github.com/robinhood-dict/atomicdict/pkg/atomicdict"
)

func stringHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func intHash(i int) uint64 {
	return uint64(i) * 0x9E3779B97F4A7C15
}

func newStringMap(t *testing.T, opts ...atomicdict.Option) *atomicdict.Map[string, int] {
	t.Helper()
	m, err := atomicdict.New[string, int](stringHash, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func Test_SetThenGet_ReturnsLastValue(t *testing.T) {
	m := newStringMap(t)
	m.Set("a", 1)
	m.Set("a", 2)
	m.Set("a", 3)

	got, err := m.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 3 {
		t.Fatalf("Get(a) = %d, want 3", got)
	}
}

func Test_SetThenDelete_GetOrDefaultReturnsDefault(t *testing.T) {
	m := newStringMap(t)
	m.Set("a", 1)
	if err := m.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := m.GetOrDefault("a", -1); got != -1 {
		t.Fatalf("GetOrDefault(a) = %d, want -1", got)
	}
	if _, err := m.Get("a"); err != atomicdict.ErrNotFound {
		t.Fatalf("Get(a) after delete = %v, want ErrNotFound", err)
	}
}

func Test_Delete_OnAbsentKey_ReturnsErrNotFound(t *testing.T) {
	m := newStringMap(t)
	if err := m.Delete("missing"); err != atomicdict.ErrNotFound {
		t.Fatalf("Delete(missing) = %v, want ErrNotFound", err)
	}
}

func Test_CompareAndSet_AnyBehavesLikeSet(t *testing.T) {
	m := newStringMap(t)
	if _, err := m.CompareAndSet("a", atomicdict.Any[int](), 7); err != nil {
		t.Fatalf("CompareAndSet: %v", err)
	}
	got, err := m.Get("a")
	if err != nil || got != 7 {
		t.Fatalf("Get(a) = %d, %v, want 7, nil", got, err)
	}
}

func Test_CompareAndSet_NotFound_FailsWhenKeyPresent(t *testing.T) {
	m := newStringMap(t)
	m.Set("a", 1)

	_, err := m.CompareAndSet("a", atomicdict.NotFound[int](), 2)
	if err != atomicdict.ErrExpectationFailed {
		t.Fatalf("CompareAndSet(NotFound) on present key = %v, want ErrExpectationFailed", err)
	}
}

func Test_ParallelDisjointInserts_UnionCoversAllKeys(t *testing.T) {
	m := newStringMap(t)

	const workers = 8
	const perWorker = 2000

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				m.Set(key, w*perWorker+i)
			}
		}(w)
	}
	wg.Wait()

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

	if got := m.ApproxLen(); got != int64(workers*perWorker) {
		t.Fatalf("ApproxLen() = %d, want %d", got, workers*perWorker)
	}
}

func Test_ConcurrentCompareAndSet_ExactlyOneWinner(t *testing.T) {
	m := newStringMap(t)
	m.Set("a", 1)

	const n = 32
	results := make([]error, n)
	values := make([]int, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := m.CompareAndSet("a", atomicdict.Value(1), 100+i)
			results[i], values[i] = err, v
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range results {
		if err == nil {
			winners++
			if values[i] != 1 {
				t.Fatalf("winner %d observed previous value %d, want 1", i, values[i])
			}
		} else if err != atomicdict.ErrExpectationFailed {
			t.Fatalf("unexpected error from CompareAndSet: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one CompareAndSet winner, got %d", winners)
	}

	final, err := m.Get("a")
	if err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	if final < 100 || final >= 100+n {
		t.Fatalf("final value %d is not one of the candidate writes", final)
	}
}

func Test_InsertManyKeys_TriggersGrowAndStaysReadable(t *testing.T) {
	m := newStringMap(t, atomicdict.WithInitialSize(64))

	const total = 2000
	for i := 0; i < total; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}

	for i := 0; i < total; i++ {
		got, err := m.Get(fmt.Sprintf("k%d", i))
		if err != nil {
			t.Fatalf("Get(k%d): %v", i, err)
		}
		if got != i {
			t.Fatalf("Get(k%d) = %d, want %d", i, got, i)
		}
	}
}

func Test_BatchGet_MixesFoundAndNotFound(t *testing.T) {
	m := newStringMap(t)
	m.Set("a", 1)
	m.Set("b", 2)

	out := m.BatchGet([]string{"a", "b", "c"}, 0)

	if v, err := out["a"].Unwrap(); err != nil || v != 1 {
		t.Fatalf("BatchGet[a] = %v, %v", v, err)
	}
	if v, err := out["b"].Unwrap(); err != nil || v != 2 {
		t.Fatalf("BatchGet[b] = %v, %v", v, err)
	}
	if _, err := out["c"].Unwrap(); err != atomicdict.ErrNotFound {
		t.Fatalf("BatchGet[c] = %v, want ErrNotFound", err)
	}
}

func Test_FastIter_PartitionsCoverEveryKeyExactlyOnce(t *testing.T) {
	m, err := atomicdict.New[int, int](intHash, atomicdict.WithInitialSize(256))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const total = 500
	for i := 0; i < total; i++ {
		m.Set(i, i*i)
	}

	const partitions = 4
	seen := map[int]int{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(partitions)
	for p := 0; p < partitions; p++ {
		go func(p int) {
			defer wg.Done()
			it := m.FastIter(partitions, p)
			for {
				k, v, ok, err := it.Next()
				if err != nil {
					t.Errorf("partition %d: %v", p, err)
					return
				}
				if !ok {
					return
				}
				mu.Lock()
				if _, dup := seen[k]; dup {
					t.Errorf("partition %d: key %d yielded more than once", p, k)
				}
				seen[k] = v
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("fast iter saw %d keys, want %d", len(seen), total)
	}
	for k, v := range seen {
		if v != k*k {
			t.Fatalf("seen[%d] = %d, want %d", k, v, k*k)
		}
	}
}

func Test_ReduceSum_AggregatesPerKey(t *testing.T) {
	m, err := atomicdict.New[string, int](stringHash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Set("x", 1)
	m.Set("y", 2)

	atomicdict.ReduceSum(m, []atomicdict.Pair[string, int]{
		{Key: "x", Value: 10},
		{Key: "y", Value: 20},
		{Key: "x", Value: 5},
	}, 0)

	gotX, _ := m.Get("x")
	gotY, _ := m.Get("y")
	if gotX != 16 {
		t.Fatalf("m[x] = %d, want 16", gotX)
	}
	if gotY != 22 {
		t.Fatalf("m[y] = %d, want 22", gotY)
	}
}

func Test_ReduceSum_OnFreshKeysInsertsFromScratch(t *testing.T) {
	m, err := atomicdict.New[string, int](stringHash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	atomicdict.ReduceSum(m, []atomicdict.Pair[string, int]{
		{Key: "new", Value: 3},
		{Key: "new", Value: 4},
	}, 0)

	got, err := m.Get("new")
	if err != nil {
		t.Fatalf("Get(new): %v", err)
	}
	if got != 7 {
		t.Fatalf("m[new] = %d, want 7", got)
	}
}

func Test_WithInitialSize_RoundsUpBelow64(t *testing.T) {
	m, err := atomicdict.New[string, int](stringHash, atomicdict.WithInitialSize(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Functional check: a map built with a requested size of 1 accepts 64
	// disjoint inserts and keeps every one of them readable.
	for i := 0; i < 64; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}
	keys := make([]string, 0, 64)
	for i := 0; i < 64; i++ {
		keys = append(keys, fmt.Sprintf("k%d", i))
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := m.Get(k); err != nil {
			t.Fatalf("Get(%s): %v", k, err)
		}
	}
}

func Test_New_RejectsOversizeInitialSize(t *testing.T) {
	_, err := atomicdict.New[string, int](stringHash, atomicdict.WithInitialSize(uint64(1)<<56+1))
	if err == nil {
		t.Fatalf("expected an error for initial size above 1<<56")
	}
}

func Test_WithInitialPairs_SeedsMapBeforeFirstOp(t *testing.T) {
	m, err := atomicdict.New[string, int](stringHash, atomicdict.WithInitialPairs([]atomicdict.Pair[string, int]{
		{Key: "x", Value: 1},
		{Key: "y", Value: 2},
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	gotX, err := m.Get("x")
	if err != nil || gotX != 1 {
		t.Fatalf("Get(x) = %d, %v, want 1, nil", gotX, err)
	}
	gotY, err := m.Get("y")
	if err != nil || gotY != 2 {
		t.Fatalf("Get(y) = %d, %v, want 2, nil", gotY, err)
	}

	atomicdict.ReduceSum(m, []atomicdict.Pair[string, int]{
		{Key: "x", Value: 10},
		{Key: "y", Value: 20},
		{Key: "x", Value: 5},
	}, 0)
	if got, _ := m.Get("x"); got != 16 {
		t.Fatalf("m[x] after reduce = %d, want 16", got)
	}
	if got, _ := m.Get("y"); got != 22 {
		t.Fatalf("m[y] after reduce = %d, want 22", got)
	}
}

func Test_New_RejectsUnsupportedReservationBufferSize(t *testing.T) {
	_, err := atomicdict.New[string, int](stringHash, atomicdict.WithReservationBufferSize(3))
	if err == nil {
		t.Fatalf("expected an error for a non-power-of-two reservation buffer size")
	}
}
