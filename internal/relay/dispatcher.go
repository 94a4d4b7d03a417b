// Package relay validates and forwards payloads between peers, fast-failing
// when the target is unreachable.
package relay

import (
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrMissingField means the source or target peer id is absent; there is
	// no reliable destination for an error reply.
	ErrMissingField = errors.New("relay message missing source or target peer id")
	// ErrPayloadTooLarge means the encoded payload exceeds the ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrTargetOffline means the target has no live session.
	ErrTargetOffline = errors.New("target peer is offline")
	// ErrInvalidEncoding means the payload is not valid base64.
	ErrInvalidEncoding = errors.New("invalid payload encoding")
	// ErrRelayFailure is the catch-all for unexpected forwarding errors.
	ErrRelayFailure = errors.New("relay failed")
)

// Message is a single relay request. It is never stored or queued; it lives
// only for the duration of one Relay call.
type Message struct {
	SourcePeerID string `json:"sourcePeerId"`
	TargetPeerID string `json:"targetPeerId"`
	DataType     string `json:"dataType"`
	Base64Data   string `json:"base64Data"`
	Timestamp    int64  `json:"timestamp"`
}

// Forwarder delivers messages and error notifications to peers by logical
// address. Implementations resolve the peer's live session themselves; the
// dispatcher never holds transport handles.
type Forwarder interface {
	ForwardToPeer(peerID string, msg *Message) error
	// NotifyError is best effort: if the peer has no resolvable session the
	// notification is dropped.
	NotifyError(peerID, reason string)
}

// Presence reports the directory's online projection.
type Presence interface {
	IsOnline(peerID string) bool
}

// Resolver reports whether a peer currently has a live session bound.
type Resolver interface {
	SessionOf(peerID string) (string, bool)
}

// Recorder ingests dispatch events for the metrics aggregator.
type Recorder interface {
	Record(encodedLen int, decodedBytes int64)
}

// Dispatcher implements the relay pipeline.
type Dispatcher struct {
	presence  Presence
	sessions  Resolver
	forwarder Forwarder
	metrics   Recorder

	maxDecodedBytes int
	logger          *zap.Logger
}

// NewDispatcher creates a Dispatcher. maxDecodedBytes is the decoded payload
// ceiling; encoded payloads may be up to twice that.
func NewDispatcher(presence Presence, sessions Resolver, forwarder Forwarder,
	metrics Recorder, maxDecodedBytes int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		presence:        presence,
		sessions:        sessions,
		forwarder:       forwarder,
		metrics:         metrics,
		maxDecodedBytes: maxDecodedBytes,
		logger:          logger,
	}
}

// Relay validates msg and forwards it to the target peer. Every failure
// past the missing-field check produces a best-effort error notification to
// the source, so the source always receives a terminal answer. The returned
// error reports the outcome to the transport layer for logging only; it has
// already been handled.
//
// Check order: missing fields, payload size, target reachability, payload
// encoding. Reachability is checked before the base64 decode so an offline
// target never costs a decode of up to half a megabyte.
func (d *Dispatcher) Relay(msg *Message) error {
	if msg.SourcePeerID == "" || msg.TargetPeerID == "" {
		d.logger.Warn("Relay message missing source or target")
		return ErrMissingField
	}

	if len(msg.Base64Data) > d.maxDecodedBytes*2 {
		d.logger.Warn("Relay payload exceeded max size",
			zap.String("sourcePeerID", msg.SourcePeerID),
			zap.Int("encodedLen", len(msg.Base64Data)),
		)
		d.forwarder.NotifyError(msg.SourcePeerID, "Payload too large")
		return ErrPayloadTooLarge
	}

	if !d.presence.IsOnline(msg.TargetPeerID) {
		d.logger.Warn("Relay target offline", zap.String("targetPeerID", msg.TargetPeerID))
		d.forwarder.NotifyError(msg.SourcePeerID,
			fmt.Sprintf("Target peer %s is offline", msg.TargetPeerID))
		return ErrTargetOffline
	}
	if _, ok := d.sessions.SessionOf(msg.TargetPeerID); !ok {
		d.logger.Warn("Relay target has no live session", zap.String("targetPeerID", msg.TargetPeerID))
		d.forwarder.NotifyError(msg.SourcePeerID, "Target peer is offline")
		return ErrTargetOffline
	}

	var decodedBytes int64
	if msg.Base64Data != "" {
		raw, err := base64.StdEncoding.DecodeString(msg.Base64Data)
		if err != nil {
			d.logger.Warn("Invalid base64 payload",
				zap.String("sourcePeerID", msg.SourcePeerID), zap.Error(err))
			d.forwarder.NotifyError(msg.SourcePeerID, "Invalid payload encoding")
			return ErrInvalidEncoding
		}
		decodedBytes = int64(len(raw))
	}

	if err := d.forwarder.ForwardToPeer(msg.TargetPeerID, msg); err != nil {
		d.logger.Error("Relay forward failed",
			zap.String("sourcePeerID", msg.SourcePeerID),
			zap.String("targetPeerID", msg.TargetPeerID),
			zap.Error(err),
		)
		d.forwarder.NotifyError(msg.SourcePeerID, "Relay failed: "+err.Error())
		return fmt.Errorf("%w: %v", ErrRelayFailure, err)
	}

	// Metrics recording must never block or fail the relay path.
	d.metrics.Record(len(msg.Base64Data), decodedBytes)

	d.logger.Debug("Relayed message",
		zap.String("dataType", msg.DataType),
		zap.String("sourcePeerID", msg.SourcePeerID),
		zap.String("targetPeerID", msg.TargetPeerID),
		zap.Int64("decodedBytes", decodedBytes),
	)
	return nil
}
