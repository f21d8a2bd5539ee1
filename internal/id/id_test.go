package id

import (
	"regexp"
	"sync"
	"testing"
)

func TestUUID_Format(t *testing.T) {
	id := UUID()

	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !uuidRegex.MatchString(id) {
		t.Errorf("UUID() = %q, does not match UUID v4 format", id)
	}
	if !IsUUID(id) {
		t.Errorf("IsUUID(%q) = false", id)
	}
}

func TestUUID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := UUID()
		if seen[id] {
			t.Fatalf("UUID() generated duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestIsUUID_Invalid(t *testing.T) {
	for _, s := range []string{"", "req-1", "not-a-uuid-at-all"} {
		if IsUUID(s) {
			t.Errorf("IsUUID(%q) = true, want false", s)
		}
	}
}

func TestSequence_Next(t *testing.T) {
	seq := NewSequence("req")
	if got := seq.Next(); got != "req-1" {
		t.Errorf("first Next() = %q, want req-1", got)
	}
	if got := seq.Next(); got != "req-2" {
		t.Errorf("second Next() = %q, want req-2", got)
	}
}

func TestSequence_Concurrent(t *testing.T) {
	seq := NewSequence("c")
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				id := seq.Next()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 1000 {
		t.Errorf("got %d ids, want 1000", len(seen))
	}
}
