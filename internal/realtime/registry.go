package realtime

import (
	"sync"

	"github.com/dmitrymomot/commenthub/internal/resource"
)

// Registry tracks which connections are subscribed to which resource keys.
// It holds non-owning references: connection lifetime is managed entirely by
// the Gateway, the Registry only routes to whatever is currently registered.
//
// All methods are safe for concurrent use. Reads take a snapshot so fan-out
// iteration never holds the lock while writing to sockets.
type Registry struct {
	mu sync.RWMutex
	// subs is the forward index key -> member set; byConn is the reverse
	// index used for O(keys-per-conn) teardown on disconnect.
	subs   map[resource.Key]map[*Conn]struct{}
	byConn map[*Conn]map[resource.Key]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:   make(map[resource.Key]map[*Conn]struct{}),
		byConn: make(map[*Conn]map[resource.Key]struct{}),
	}
}

// Add subscribes conn to key. Adding an existing member is a no-op, so a
// double subscribe can never produce duplicate deliveries.
func (r *Registry) Add(key resource.Key, conn *Conn) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.subs[key]
	if !ok {
		members = make(map[*Conn]struct{})
		r.subs[key] = members
	}
	members[conn] = struct{}{}

	keys, ok := r.byConn[conn]
	if !ok {
		keys = make(map[resource.Key]struct{})
		r.byConn[conn] = keys
	}
	keys[key] = struct{}{}
}

// Remove unsubscribes conn from key. Removing a non-member is a no-op.
// Keys left with no members are pruned under the same lock, so a prune can
// never race a concurrent Add.
func (r *Registry) Remove(key resource.Key, conn *Conn) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(key, conn)
}

// RemoveAll drops conn from every key's member set. It is the single cleanup
// path on disconnect, graceful or abrupt.
func (r *Registry) RemoveAll(conn *Conn) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.byConn[conn] {
		r.removeLocked(key, conn)
	}
}

// MembersOf returns a snapshot of the connections currently subscribed to
// key. The returned slice is a copy and safe to iterate while concurrent
// subscribes and unsubscribes proceed.
func (r *Registry) MembersOf(key resource.Key) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.subs[key]
	if len(members) == 0 {
		return nil
	}

	snapshot := make([]*Conn, 0, len(members))
	for conn := range members {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// Subscribed reports whether conn is currently a member of key's set.
func (r *Registry) Subscribed(key resource.Key, conn *Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.subs[key][conn]
	return ok
}

// Len returns the number of keys with at least one subscriber.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs)
}

func (r *Registry) removeLocked(key resource.Key, conn *Conn) {
	members := r.subs[key]
	delete(members, conn)
	if len(members) == 0 {
		delete(r.subs, key)
	}

	keys := r.byConn[conn]
	delete(keys, key)
	if len(keys) == 0 {
		delete(r.byConn, conn)
	}
}
