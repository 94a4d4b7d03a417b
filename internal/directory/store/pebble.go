// Package store provides the Pebble-backed implementation of the peer
// record store.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/AxlHim26/gview-server/internal/directory"
)

// PebbleStore is a Pebble LSM-tree backed directory.Store.
type PebbleStore struct {
	db     *pebble.DB
	path   string
	logger *zap.Logger
}

// NewPebbleStore creates a PebbleStore instance (not yet opened).
func NewPebbleStore(dbPath string, logger *zap.Logger) *PebbleStore {
	return &PebbleStore{
		path:   dbPath,
		logger: logger,
	}
}

// Init opens the Pebble database.
func (s *PebbleStore) Init() error {
	opts := &pebble.Options{
		Logger: &pebbleLogger{s.logger},
	}
	db, err := pebble.Open(s.path, opts)
	if err != nil {
		return fmt.Errorf("pebble open %s: %w", s.path, err)
	}
	s.db = db
	s.logger.Info("Peer store opened", zap.String("path", s.path))
	return nil
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get retrieves a peer record by id.
func (s *PebbleStore) Get(peerID string) (*directory.Peer, error) {
	data, closer, err := s.db.Get([]byte(peerID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	peer := &directory.Peer{}
	if err := json.Unmarshal(data, peer); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return peer, nil
}

// Put creates or overwrites a peer record.
func (s *PebbleStore) Put(p *directory.Peer) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := s.db.Set([]byte(p.PeerID), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

// Exists reports whether a record exists for the id.
func (s *PebbleStore) Exists(peerID string) (bool, error) {
	_, closer, err := s.db.Get([]byte(peerID))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pebble get: %w", err)
	}
	closer.Close()
	return true, nil
}

// pebbleLogger adapts zap.Logger to the pebble.Logger interface.
type pebbleLogger struct {
	z *zap.Logger
}

func (l *pebbleLogger) Infof(format string, args ...any) {
	l.z.Sugar().Infof(format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...any) {
	l.z.Sugar().Fatalf(format, args...)
}
