package cache

import "time"

// Clock supplies the current time to caches.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
	Clear()
	Size() int
}

// Manager groups caches that must be invalidated together.
type Manager struct {
	caches []Cleaner
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{caches: make([]Cleaner, 0)}
}

// Register adds a cache to the manager
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// ClearAll empties every registered cache.
func (m *Manager) ClearAll() {
	for _, c := range m.caches {
		c.Clear()
	}
}

// CleanExpired drops expired entries from every registered cache and
// returns how many were removed.
func (m *Manager) CleanExpired() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Size returns the number of entries across every registered cache.
func (m *Manager) Size() int {
	total := 0
	for _, c := range m.caches {
		total += c.Size()
	}
	return total
}
