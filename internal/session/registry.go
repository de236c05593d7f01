package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rvult/riftnet/internal/transport"
)

// Registry is the dual-index player registry of §3/§5: a map from peer-id
// to Session and a map from user-id to Session, both guarded by the same
// mutex so that every lookup and mutation observes both indices
// atomically together, whichever goroutine calls it.
type Registry struct {
	mu     sync.Mutex
	byPeer map[transport.PeerID]*Session
	byUser map[uuid.UUID]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byPeer: make(map[transport.PeerID]*Session),
		byUser: make(map[uuid.UUID]*Session),
	}
}

// Add inserts a newly connected session, indexed by peer-id only (it is not
// yet authenticated).
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPeer[s.Peer] = s
}

// Remove drops a session from both indices on disconnect.
func (r *Registry) Remove(peer transport.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byPeer[peer]
	if !ok {
		return
	}
	delete(r.byPeer, peer)
	if s.HasUser {
		delete(r.byUser, s.UserID)
	}
}

// ByPeer looks up a session by peer-id.
func (r *Registry) ByPeer(peer transport.PeerID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byPeer[peer]
	return s, ok
}

// IsUserConnected reports whether userID already has an authenticated
// session, the duplicate-login guard of §4.5 step 4 and §8 invariant 4.
func (r *Registry) IsUserConnected(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byUser[userID]
	return ok
}

// MarkAuthenticated indexes s by user-id once it has completed
// authentication. Returns false without mutating anything if userID is
// already present (guards against a race between the duplicate-login
// check and the index insert).
func (r *Registry) MarkAuthenticated(s *Session, userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUser[userID]; exists {
		return false
	}
	r.byUser[userID] = s
	return true
}

// Count returns the number of connected (peer-indexed) sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPeer)
}

// Snapshot returns a stable slice of all connected sessions for iteration
// (e.g. the tick loop's maintenance pass or a broadcast).
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.byPeer))
	for _, s := range r.byPeer {
		out = append(out, s)
	}
	return out
}
