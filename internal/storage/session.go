package storage

import "sync"

// SessionStorage keeps per-chat in-memory state.
type SessionStorage[T any] struct {
	mu    sync.RWMutex
	items map[int64]T
}

func NewSessionStorage[T any]() *SessionStorage[T] {
	return &SessionStorage[T]{
		items: make(map[int64]T),
	}
}

// Store saves v for a chat, replacing any previous value.
func (s *SessionStorage[T]) Store(chatID int64, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[chatID] = v
}

func (s *SessionStorage[T]) Get(chatID int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[chatID]
	return v, ok
}

// GetOrCreate returns the stored value or stores and returns create().
func (s *SessionStorage[T]) GetOrCreate(chatID int64, create func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[chatID]; ok {
		return v
	}
	v := create()
	s.items[chatID] = v
	return v
}

// Delete removes and returns the value for a chat.
func (s *SessionStorage[T]) Delete(chatID int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[chatID]
	delete(s.items, chatID)
	return v, ok
}

// Drain removes and returns every stored value.
func (s *SessionStorage[T]) Drain() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.items))
	for id, v := range s.items {
		out = append(out, v)
		delete(s.items, id)
	}
	return out
}
