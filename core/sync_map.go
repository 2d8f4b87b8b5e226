package core

import "sync"

// SyncMap is an implementation of a map that is safe for concurrent usage.
type SyncMap[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{
		m: make(map[K]V),
	}
}

func (s *SyncMap[K, V]) Load(key K) (value V, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok = s.m[key]
	return
}

// Compute applies f to the current value of key while holding the write lock.
// The returned value is stored when keep is true, otherwise the key is deleted.
func (s *SyncMap[K, V]) Compute(key K, f func(value V, ok bool) (newValue V, keep bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.m[key]
	newValue, keep := f(value, ok)
	if keep {
		s.m[key] = newValue
		return
	}
	delete(s.m, key)
}

func (s *SyncMap[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Drain removes every entry and returns the removed values.
func (s *SyncMap[K, V]) Drain() []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([]V, 0, len(s.m))
	for k, v := range s.m {
		values = append(values, v)
		delete(s.m, k)
	}
	return values
}
