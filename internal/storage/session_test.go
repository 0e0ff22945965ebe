package storage

import (
	"sync"
	"testing"
)

func TestSessionStorage(t *testing.T) {
	s := NewSessionStorage[string]()

	if _, ok := s.Get(1); ok {
		t.Fatal("empty storage returned a value")
	}

	s.Store(1, "a")
	if v := s.GetOrCreate(1, func() string { return "b" }); v != "a" {
		t.Errorf("GetOrCreate() = %q, want existing value", v)
	}
	if v := s.GetOrCreate(2, func() string { return "b" }); v != "b" {
		t.Errorf("GetOrCreate() = %q, want created value", v)
	}

	if v, ok := s.Delete(1); !ok || v != "a" {
		t.Errorf("Delete() = %q, %v", v, ok)
	}
	if got := s.Drain(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Drain() = %v", got)
	}
	if _, ok := s.Get(2); ok {
		t.Error("value survived Drain")
	}
}

func TestSessionStorageGetOrCreateOnce(t *testing.T) {
	s := NewSessionStorage[*int]()
	var created int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.GetOrCreate(7, func() *int {
				mu.Lock()
				created++
				mu.Unlock()
				return new(int)
			})
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created %d values, want 1", created)
	}
}
