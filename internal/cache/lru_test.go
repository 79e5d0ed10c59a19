package cache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestLRUCacheFreshnessWindow(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache[string](10, 5*time.Second, WithClock(clock))

	c.Set("clients", "v1")

	clock.Advance(4999 * time.Millisecond)
	if v, ok := c.Get("clients"); !ok || v != "v1" {
		t.Fatalf("expected hit inside window, got %q ok=%v", v, ok)
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get("clients"); ok {
		t.Fatal("entry should expire once the window has elapsed")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be dropped on read, size=%d", c.Size())
	}
}

func TestLRUCacheSetRefreshesTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache[int](10, 5*time.Second, WithClock(clock))

	c.Set("k", 1)
	clock.Advance(4 * time.Second)
	c.Set("k", 2)
	clock.Advance(4 * time.Second)

	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Fatalf("expected refreshed value 2, got %d ok=%v", v, ok)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	// key1 becomes most recently used, so key2 is the one evicted.
	c.Get("key1")
	c.Set("key4", "value4")

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still exist", k)
		}
	}
}

func TestLRUCacheClear(t *testing.T) {
	c := NewLRUCache[string](10, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be gone after Clear")
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, size=%d", c.Size())
	}
	c.Set("c", "3")
	if v, ok := c.Get("c"); !ok || v != "3" {
		t.Fatal("cache should be usable after Clear")
	}
}

func TestManagerClearAllAndCleanExpired(t *testing.T) {
	clock := newFakeClock()
	clients := NewLRUCache[string](10, 5*time.Second, WithClock(clock))
	services := NewLRUCache[int](10, time.Minute, WithClock(clock))

	m := NewManager()
	m.Register(clients)
	m.Register(services)

	clients.Set("clients", "x")
	services.Set("services:all", 1)

	clock.Advance(10 * time.Second)
	if removed := m.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 expired entry, got %d", removed)
	}
	if services.Size() != 1 {
		t.Fatalf("services entry should still be fresh")
	}
	if m.Size() != 1 {
		t.Fatalf("manager size = %d, want 1", m.Size())
	}

	clients.Set("clients", "y")
	m.ClearAll()
	if clients.Size() != 0 || services.Size() != 0 {
		t.Fatalf("ClearAll should empty every cache")
	}
}
