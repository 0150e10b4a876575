package msgid

import (
	"sync"
	"testing"
)

func TestNext_Range(t *testing.T) {
	s := New()
	for range 10000 {
		id := s.Next()
		if id < 1 || id > Max {
			t.Fatalf("id %d outside [1, %d]", id, Max)
		}
	}
}

func TestNext_Uniqueness(t *testing.T) {
	s := New()

	const count = 10000
	seen := make(map[int64]struct{}, count)
	for range count {
		id := s.Next()
		if _, exists := seen[id]; exists {
			t.Fatalf("duplicate ID: %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNext_NotMonotonic(t *testing.T) {
	s := NewSeeded(7)

	prev := s.Next()
	descending := false
	for range 100 {
		id := s.Next()
		if id < prev {
			descending = true
			break
		}
		prev = id
	}
	if !descending {
		t.Error("expected random ids, got 101 strictly ascending draws")
	}
}

func TestNewSeeded_Deterministic(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := range 50 {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestNext_Concurrent(t *testing.T) {
	s := New()

	const goroutines = 10
	const perGoroutine = 1000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, goroutines*perGoroutine)
	var wg sync.WaitGroup

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, perGoroutine)
			for i := range perGoroutine {
				local[i] = s.Next()
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if _, exists := seen[id]; exists {
					t.Errorf("duplicate ID across goroutines: %d", id)
				}
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()
}
