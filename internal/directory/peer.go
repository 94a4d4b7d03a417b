// Package directory owns durable peer identity: id generation, credentials,
// last-known address and the online projection.
package directory

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no peer record exists for an id.
	ErrNotFound = errors.New("peer not found")
	// ErrExhaustedRetries is returned when no unique peer id could be
	// generated within the attempt bound.
	ErrExhaustedRetries = errors.New("exhausted peer id generation attempts")
)

// Peer is the durable record for a registered peer. Records are created on
// registration and updated in place; they are never deleted.
type Peer struct {
	PeerID    string    `json:"peerId"`
	Password  string    `json:"password"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Port      int       `json:"port,omitempty"`
	Online    bool      `json:"online"`
	SessionID string    `json:"sessionId,omitempty"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the interface for the durable peer record store.
type Store interface {
	// Init opens/creates the underlying store.
	Init() error
	// Close flushes and closes the store.
	Close() error
	// Get retrieves a peer record by id. Returns ErrNotFound if absent.
	Get(peerID string) (*Peer, error)
	// Put creates or overwrites a peer record.
	Put(p *Peer) error
	// Exists reports whether a record exists for the id.
	Exists(peerID string) (bool, error)
}

// LookupResult is the connection detail view returned by Lookup.
type LookupResult struct {
	IPAddress string
	Port      int
	Online    bool
}
