package regcache

import "testing"

func TestAllocLookupFree(t *testing.T) {
	c := New(4)
	e := c.Alloc(1, 0x1000, 3)
	e.SetData([]byte{1, 2, 3})
	e.Touch(100)

	got := c.Lookup(1, 0x1000, 0)
	if got != e {
		t.Fatalf("Lookup did not return the allocated entry")
	}
	if string(got.Data()) != "\x01\x02\x03" {
		t.Fatalf("unexpected data: %v", got.Data())
	}

	c.Free(e)
	if c.Lookup(1, 0x1000, 0) != nil {
		t.Fatal("entry should be gone after Free")
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestAllocEvictsLRU(t *testing.T) {
	c := New(2)
	a := c.Alloc(1, 1, 1)
	b := c.Alloc(1, 2, 1)
	c.MarkUsed(a) // a is now MRU, b is LRU

	c.Alloc(1, 3, 1) // should evict b, the LRU entry

	if c.Lookup(1, 2, 0) != nil {
		t.Fatal("expected LRU entry (cmd 2) to be evicted")
	}
	if c.Lookup(1, 1, 0) == nil {
		t.Fatal("expected recently-used entry (cmd 1) to survive")
	}
	if c.Lookup(1, 3, 0) == nil {
		t.Fatal("expected newly allocated entry (cmd 3) present")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestFreeRole(t *testing.T) {
	c := New(8)
	c.Alloc(1, 1, 1)
	c.Alloc(1, 2, 1)
	c.Alloc(2, 1, 1)

	c.FreeRole(1)

	if c.Lookup(1, 1, 0) != nil || c.Lookup(1, 2, 0) != nil {
		t.Fatal("expected role 1 entries gone")
	}
	if c.Lookup(2, 1, 0) == nil {
		t.Fatal("expected role 2 entry to survive")
	}
}

func TestAgePreservesRecentEntries(t *testing.T) {
	c := New(8)
	recent := c.Alloc(1, 1, 1)
	recent.Touch(9500)
	old := c.Alloc(1, 2, 1)
	old.Touch(500)

	cutoff := int64(10000 - 10000 + 9000) // mimics now-10000 style cutoff
	c.Age(1, cutoff)

	if recent.LastRefresh() != 9500 {
		t.Fatalf("recent entry should be untouched, got %d", recent.LastRefresh())
	}
	if old.LastRefresh() != cutoff {
		t.Fatalf("old entry should be bumped to cutoff %d, got %d", cutoff, old.LastRefresh())
	}
}

func TestNextIteratesArgumentIndexedRegisters(t *testing.T) {
	c := New(8)
	a := c.Alloc(1, 5, 1)
	c.SetArg(a, 10)
	b := c.Alloc(1, 5, 1)
	c.SetArg(b, 20)
	c.Alloc(1, 6, 1) // different cmd, must not show up

	seen := map[uint32]bool{}
	for e := c.Next(1, 5, nil); e != nil; e = c.Next(1, 5, e) {
		seen[e.Arg()] = true
	}
	if !seen[10] || !seen[20] || len(seen) != 2 {
		t.Fatalf("unexpected Next() iteration result: %v", seen)
	}
}
