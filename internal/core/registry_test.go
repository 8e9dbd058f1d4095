package core

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryBindMultiDevice(t *testing.T) {
	r := NewMemoryRegistry()

	r.Bind("c1", 1)
	r.Bind("c2", 1)
	r.Bind("c3", 2)

	got := r.ConnectionsFor(1)
	if len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("unexpected presence set for user 1: %v", got)
	}
	if got := r.ConnectionsFor(2); len(got) != 1 || got[0] != "c3" {
		t.Fatalf("unexpected presence set for user 2: %v", got)
	}
	if got := r.ConnectionsFor(3); len(got) != 0 {
		t.Fatalf("expected empty set for offline user, got %v", got)
	}
}

func TestRegistryBindIsIdempotent(t *testing.T) {
	r := NewMemoryRegistry()

	r.Bind("c1", 1)
	r.Bind("c1", 1)

	if got := r.ConnectionsFor(1); len(got) != 1 {
		t.Fatalf("expected one connection, got %v", got)
	}
}

func TestRegistryRebindMovesConnection(t *testing.T) {
	r := NewMemoryRegistry()

	r.Bind("c1", 1)
	r.Bind("c1", 2)

	if got := r.ConnectionsFor(1); len(got) != 0 {
		t.Fatalf("connection must map to one user only, user 1 still has %v", got)
	}
	if got := r.ConnectionsFor(2); len(got) != 1 {
		t.Fatalf("expected connection under user 2, got %v", got)
	}
}

func TestRegistryUnbindKeepsSiblings(t *testing.T) {
	r := NewMemoryRegistry()
	r.Bind("c1", 1)
	r.Bind("c2", 1)

	userID, ok := r.Unbind("c1")
	if !ok || userID != 1 {
		t.Fatalf("expected unbind of user 1, got %d %v", userID, ok)
	}
	if got := r.ConnectionsFor(1); len(got) != 1 || got[0] != "c2" {
		t.Fatalf("sibling connection lost: %v", got)
	}

	r.Unbind("c2")
	if r.OnlineUsers() != 0 {
		t.Fatalf("expected user entry removed once empty")
	}
}

func TestRegistryUnbindUnknownIsNoop(t *testing.T) {
	r := NewMemoryRegistry()

	if _, ok := r.Unbind("never-bound"); ok {
		t.Fatalf("unbind of unknown connection must report false")
	}
	r.Bind("c1", 1)
	r.Unbind("c1")
	if _, ok := r.Unbind("c1"); ok {
		t.Fatalf("second unbind must be a no-op")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewMemoryRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			r.Bind(id, int64(i%5))
			_ = r.ConnectionsFor(int64(i % 5))
			if i%2 == 0 {
				r.Unbind(id)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for u := range 5 {
		total += len(r.ConnectionsFor(int64(u)))
	}
	if total != 25 {
		t.Fatalf("expected 25 live connections, got %d", total)
	}
}
