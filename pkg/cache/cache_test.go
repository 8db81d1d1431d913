package cache

import (
	"strconv"
	"sync"
	"testing"
)

func set(c *LRU[int], key string, v int) {
	c.Update(key, func(int, bool) (int, bool) { return v, true })
}

// lookup reads key through Update, touching it like a read would.
func lookup(c *LRU[int], key string) (int, bool) {
	var (
		got   int
		found bool
	)
	c.Update(key, func(v int, ok bool) (int, bool) {
		got, found = v, ok
		return v, ok
	})
	return got, found
}

func TestUpdateInsertsAndReads(t *testing.T) {
	c := NewLRU[int](0)

	if _, ok := lookup(c, "missing"); ok {
		t.Fatalf("expected no value initially")
	}
	if c.Len() != 0 {
		t.Fatalf("a miss must not insert, got len %d", c.Len())
	}

	set(c, "a", 42)
	if v, ok := lookup(c, "a"); !ok || v != 42 {
		t.Fatalf("expected 42 present, got %v ok=%v", v, ok)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2)
	set(c, "a", 1)
	set(c, "b", 2)

	// touch a so b becomes the eviction candidate
	lookup(c, "a")
	set(c, "c", 3)

	if c.Len() != 2 {
		t.Fatalf("expected capacity to hold at 2, got %d", c.Len())
	}
	if _, ok := lookup(c, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := lookup(c, "a"); !ok {
		t.Fatalf("expected a to survive")
	}
}

func TestUpdateRemovesWhenNotKept(t *testing.T) {
	c := NewLRU[int](0)
	set(c, "k", 1)

	c.Update("k", func(v int, ok bool) (int, bool) { return v, false })

	if _, ok := lookup(c, "k"); ok {
		t.Fatalf("expected key to be dropped")
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	c := NewLRU[int](0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Update("counter", func(v int, _ bool) (int, bool) { return v + 1, true })
			}
		}()
	}
	wg.Wait()

	if v, _ := lookup(c, "counter"); v != 5000 {
		t.Fatalf("expected 5000 increments, got %d", v)
	}
}

func TestRemoveIf(t *testing.T) {
	c := NewLRU[int](0)
	for i := 0; i < 10; i++ {
		set(c, strconv.Itoa(i), i)
	}

	n := c.RemoveIf(func(_ string, v int) bool { return v%2 == 0 })

	if n != 5 || c.Len() != 5 {
		t.Fatalf("expected 5 removed and 5 left, got removed=%d left=%d", n, c.Len())
	}
}
