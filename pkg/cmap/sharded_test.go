package cmap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMapBasic(t *testing.T) {
	m := New[string, int]()

	if _, ok := m.Get("missing"); ok {
		t.Fatal("Get on empty map reported a hit")
	}

	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	if v, ok := m.Get("a"); !ok || v != 3 {
		t.Fatalf("Get(a) = %d, %v; want 3, true", v, ok)
	}
	if got := m.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	if v, ok := m.Delete("a"); !ok || v != 3 {
		t.Fatalf("Delete(a) = %d, %v; want 3, true", v, ok)
	}
	if _, ok := m.Delete("a"); ok {
		t.Fatal("second Delete reported a hit")
	}
	if got := m.Len(); got != 1 {
		t.Fatalf("Len() after delete = %d, want 1", got)
	}
}

func TestMapShardCountRounding(t *testing.T) {
	for _, tc := range []struct{ in, want int }{
		{0, 1}, {1, 1}, {3, 4}, {16, 16}, {17, 32},
	} {
		m := NewWithShards[int, int](tc.in)
		if len(m.shards) != tc.want {
			t.Errorf("NewWithShards(%d): %d shards, want %d", tc.in, len(m.shards), tc.want)
		}
	}
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	m := New[string, int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := m.GetOrCompute("key", func() int {
				calls.Add(1)
				return 7
			})
			if v != 7 {
				t.Errorf("GetOrCompute returned %d, want 7", v)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("compute ran %d times, want 1", n)
	}
	if v, existed := m.GetOrCompute("key", func() int { return 99 }); !existed || v != 7 {
		t.Fatalf("GetOrCompute after populate = %d, %v; want 7, true", v, existed)
	}
}

func TestRangeAndKeys(t *testing.T) {
	m := NewWithShards[string, int](4)
	want := map[string]int{}
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("k%02d", i)
		m.Set(k, i)
		want[k] = i
	}

	seen := map[string]int{}
	m.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	if len(seen) != len(want) {
		t.Fatalf("Range visited %d entries, want %d", len(seen), len(want))
	}
	for k, v := range want {
		if seen[k] != v {
			t.Fatalf("Range saw %s=%d, want %d", k, seen[k], v)
		}
	}

	if got := len(m.Keys()); got != len(want) {
		t.Fatalf("Keys returned %d keys, want %d", got, len(want))
	}

	// Early stop.
	n := 0
	m.Range(func(string, int) bool {
		n++
		return n < 5
	})
	if n != 5 {
		t.Fatalf("Range visited %d entries after stop, want 5", n)
	}
}

func TestMapConcurrentMixed(t *testing.T) {
	m := New[int, int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := g*500 + i
				m.Set(k, k)
				if v, ok := m.Get(k); !ok || v != k {
					t.Errorf("Get(%d) = %d, %v", k, v, ok)
					return
				}
				if i%3 == 0 {
					m.Delete(k)
				}
			}
		}(g)
	}
	wg.Wait()
}
