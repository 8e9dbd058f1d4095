package core

import (
	"sort"
	"sync"
)

// Registry maps connections to users and back.
// The in-memory implementation serves a single instance; a shared directory
// can satisfy the same contract for multi-instance deployments.
type Registry interface {
	// Bind registers connID under userID. Binding the same pair twice is a no-op.
	Bind(connID string, userID int64)
	// Unbind removes connID from its user's presence set and returns that user.
	Unbind(connID string) (int64, bool)
	// ConnectionsFor returns a snapshot of the user's live connection ids.
	ConnectionsFor(userID int64) []string
}

// MemoryRegistry is a mutex-guarded Registry.
type MemoryRegistry struct {
	mu       sync.RWMutex
	users    map[int64]map[string]struct{}
	connUser map[string]int64
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		users:    make(map[int64]map[string]struct{}),
		connUser: make(map[string]int64),
	}
}

func (r *MemoryRegistry) Bind(connID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.connUser[connID]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(connID, prev)
	}

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	set[connID] = struct{}{}
	r.connUser[connID] = userID
}

func (r *MemoryRegistry) Unbind(connID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.connUser[connID]
	if !ok {
		return 0, false
	}
	r.removeLocked(connID, userID)
	return userID, true
}

func (r *MemoryRegistry) ConnectionsFor(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OnlineUsers returns the number of users with at least one live connection.
func (r *MemoryRegistry) OnlineUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *MemoryRegistry) removeLocked(connID string, userID int64) {
	delete(r.connUser, connID)
	set := r.users[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
	}
}
