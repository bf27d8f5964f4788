// Package keylock serializes mutations per storage key.
//
// Upload, download and remove on the same (registry, canonical key) must
// not interleave, while operations on different keys stay independent.
package keylock

import "sync"

// Map hands out one mutex per key. The zero value is ready to use.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the mutex for key and returns its unlock function.
// Entries are reference-counted and dropped once unused, so the map does
// not grow with the number of keys ever touched.
func (m *Map) Lock(key string) (unlock func()) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[string]*entry)
	}
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
