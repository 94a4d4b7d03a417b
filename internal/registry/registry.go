// Package registry provides the thread-safe in-memory binding between peer
// ids and live transport session ids. It is process-local and rebuilt from
// zero on restart.
package registry

import "sync"

// SessionRegistry is a bidirectional, one-to-one peer/session index.
// Both directions are kept under one lock so no interleaving can observe a
// half-updated pair. It never performs I/O; callers pair every mutation with
// the matching directory update.
type SessionRegistry struct {
	mu           sync.RWMutex
	peerSessions map[string]string // peerID -> sessionID
	sessionPeers map[string]string // sessionID -> peerID
}

// New creates an empty SessionRegistry.
func New() *SessionRegistry {
	return &SessionRegistry{
		peerSessions: make(map[string]string),
		sessionPeers: make(map[string]string),
	}
}

// Bind inserts the pair into both directions. If the peer already has a
// different session bound, or the session a different peer, the stale
// binding is fully removed in the same critical section so nothing is left
// dangling.
func (r *SessionRegistry) Bind(peerID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.peerSessions[peerID]; ok && old != sessionID {
		delete(r.sessionPeers, old)
	}
	if old, ok := r.sessionPeers[sessionID]; ok && old != peerID {
		delete(r.peerSessions, old)
	}
	r.peerSessions[peerID] = sessionID
	r.sessionPeers[sessionID] = peerID
}

// SessionOf returns the live session id for a peer, if any.
func (r *SessionRegistry) SessionOf(peerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessionID, ok := r.peerSessions[peerID]
	return sessionID, ok
}

// PeerOf returns the peer id bound to a session, if any.
func (r *SessionRegistry) PeerOf(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peerID, ok := r.sessionPeers[sessionID]
	return peerID, ok
}

// UnbindBySession removes both directions of the binding for a session.
// Unknown sessions are a no-op.
func (r *SessionRegistry) UnbindBySession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if peerID, ok := r.sessionPeers[sessionID]; ok {
		delete(r.sessionPeers, sessionID)
		delete(r.peerSessions, peerID)
	}
}

// UnbindByPeer removes both directions of the binding for a peer.
// Unknown peers are a no-op.
func (r *SessionRegistry) UnbindByPeer(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sessionID, ok := r.peerSessions[peerID]; ok {
		delete(r.peerSessions, peerID)
		delete(r.sessionPeers, sessionID)
	}
}

// ActiveCount returns the number of live bindings.
func (r *SessionRegistry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessionPeers)
}
