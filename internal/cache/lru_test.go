package cache

import (
	"testing"
	"time"
)

func TestLRUSetGet(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	c.Set("a", "1")
	if got, ok := c.Get("a"); !ok || got != "1" {
		t.Fatalf("expected hit with \"1\", got %q (ok=%v)", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a retained")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU[int](10, -time.Second) // entries are born expired
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}

	c.Set("b", 2)
	if cleaned := c.CleanExpired(); cleaned != 1 {
		t.Fatalf("expected 1 cleaned, got %d", cleaned)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got size %d", c.Size())
	}
}
