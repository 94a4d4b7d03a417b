package directory

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"math/rand"
	"time"

	retry "github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// idAttempts bounds peer id generation so a saturated id space surfaces as
// an error instead of an unbounded loop.
const idAttempts = 100

var errIDCollision = errors.New("peer id collision")

// Directory provides peer identity and credential operations on top of a
// durable Store.
type Directory struct {
	store  Store
	logger *zap.Logger
}

// New creates a Directory backed by the given store.
func New(store Store, logger *zap.Logger) *Directory {
	return &Directory{
		store:  store,
		logger: logger,
	}
}

// generatePeerID draws three independent 3-digit groups and formats them as
// XXX-XXX-XXX, retrying on collision against the store.
func (d *Directory) generatePeerID() (string, error) {
	var peerID string
	err := retry.Do(func() error {
		part1 := rand.Intn(900) + 100 // 100-999
		part2 := rand.Intn(900) + 100
		part3 := rand.Intn(900) + 100
		candidate := fmt.Sprintf("%03d-%03d-%03d", part1, part2, part3)

		exists, err := d.store.Exists(candidate)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if exists {
			return errIDCollision
		}
		peerID = candidate
		return nil
	},
		retry.Attempts(idAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, errIDCollision) {
			return "", ErrExhaustedRetries
		}
		return "", err
	}

	d.logger.Debug("Generated new peer ID", zap.String("peerID", peerID))
	return peerID, nil
}

// Register creates a new peer record with the given credential and returns
// its freshly generated id. The peer starts offline.
func (d *Directory) Register(password string) (string, error) {
	peerID, err := d.generatePeerID()
	if err != nil {
		return "", err
	}

	now := time.Now()
	peer := &Peer{
		PeerID:    peerID,
		Password:  password,
		Online:    false,
		LastSeen:  now,
		CreatedAt: now,
	}
	if err := d.store.Put(peer); err != nil {
		return "", fmt.Errorf("store put: %w", err)
	}

	d.logger.Info("Registered new peer", zap.String("peerID", peerID))
	return peerID, nil
}

// Authenticate checks the credential for a peer. A missing peer and a wrong
// credential are indistinguishable in the result.
func (d *Directory) Authenticate(peerID, password string) bool {
	peer, err := d.store.Get(peerID)
	if err != nil {
		d.logger.Warn("Authentication failed: peer not found", zap.String("peerID", peerID))
		return false
	}
	ok := subtle.ConstantTimeCompare([]byte(peer.Password), []byte(password)) == 1
	if !ok {
		d.logger.Warn("Authentication failed: invalid credential", zap.String("peerID", peerID))
	}
	return ok
}

// UpdateConnectionInfo records the peer's reachable address, binds the
// session reference and marks the peer online. Calling it again with a new
// session supersedes the old binding.
func (d *Directory) UpdateConnectionInfo(peerID, ipAddress string, port int, sessionID string) error {
	peer, err := d.store.Get(peerID)
	if err != nil {
		return err
	}

	peer.IPAddress = ipAddress
	peer.Port = port
	peer.SessionID = sessionID
	peer.Online = true
	peer.LastSeen = time.Now()
	if err := d.store.Put(peer); err != nil {
		return fmt.Errorf("store put: %w", err)
	}

	d.logger.Info("Updated peer connection info",
		zap.String("peerID", peerID),
		zap.String("addr", fmt.Sprintf("%s:%d", ipAddress, port)),
		zap.String("sessionID", sessionID),
	)
	return nil
}

// MarkOffline clears the session reference and online flag for a peer.
// Unknown peers are a no-op: disconnects racing with eviction are expected.
func (d *Directory) MarkOffline(peerID string) {
	peer, err := d.store.Get(peerID)
	if err != nil {
		d.logger.Warn("Could not mark peer offline: peer not found", zap.String("peerID", peerID))
		return
	}

	peer.Online = false
	peer.SessionID = ""
	if err := d.store.Put(peer); err != nil {
		d.logger.Error("Mark offline failed", zap.String("peerID", peerID), zap.Error(err))
		return
	}
	d.logger.Info("Marked peer offline", zap.String("peerID", peerID))
}

// Heartbeat refreshes the peer's last-seen timestamp. Unknown peers are
// logged, not surfaced.
func (d *Directory) Heartbeat(peerID string) {
	peer, err := d.store.Get(peerID)
	if err != nil {
		d.logger.Warn("Heartbeat from unknown peer", zap.String("peerID", peerID))
		return
	}

	peer.LastSeen = time.Now()
	if err := d.store.Put(peer); err != nil {
		d.logger.Error("Heartbeat update failed", zap.String("peerID", peerID), zap.Error(err))
		return
	}
	d.logger.Debug("Heartbeat received", zap.String("peerID", peerID))
}

// Lookup returns the peer's last-reported address and online flag.
func (d *Directory) Lookup(peerID string) (*LookupResult, error) {
	peer, err := d.store.Get(peerID)
	if err != nil {
		return nil, err
	}
	return &LookupResult{
		IPAddress: peer.IPAddress,
		Port:      peer.Port,
		Online:    peer.Online,
	}, nil
}

// IsOnline reports the cached online projection for a peer. Unknown peers
// are reported offline.
func (d *Directory) IsOnline(peerID string) bool {
	peer, err := d.store.Get(peerID)
	if err != nil {
		return false
	}
	return peer.Online
}
