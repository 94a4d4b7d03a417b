package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AxlHim26/gview-server/internal/directory"
	"github.com/AxlHim26/gview-server/internal/liveness"
	"github.com/AxlHim26/gview-server/internal/registry"
	"github.com/AxlHim26/gview-server/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxFrameSize,
	WriteBufferSize: maxFrameSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dispatcher is the relay entry point the hub hands inbound relay frames to.
type Dispatcher interface {
	Relay(msg *relay.Message) error
}

// Hub accepts WebSocket connections, assigns session ids, routes inbound
// envelopes and delivers outbound messages addressed by peer id. It is the
// only component holding transport handles; everything else addresses peers
// logically through the registry.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	directory  *directory.Directory
	registry   *registry.SessionRegistry
	tracker    *liveness.Tracker
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewHub creates a Hub. The relay dispatcher is injected separately via
// SetDispatcher because it depends on the hub for delivery.
func NewHub(dir *directory.Directory, reg *registry.SessionRegistry,
	tracker *liveness.Tracker, logger *zap.Logger) *Hub {
	return &Hub{
		sessions:  make(map[string]*session),
		directory: dir,
		registry:  reg,
		tracker:   tracker,
		logger:    logger,
	}
}

// SetDispatcher injects the relay dispatcher.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// HandleWS upgrades an HTTP request into a tracked session and runs its
// read loop until the connection drops.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sessionID := uuid.NewString()
	s := newSession(sessionID, conn, h.logger)

	h.mu.Lock()
	h.sessions[sessionID] = s
	h.mu.Unlock()
	h.tracker.Track(sessionID)

	h.logger.Info("Session connected", zap.String("sessionID", sessionID))
	go s.writePump()
	h.readLoop(s)
}

// readLoop consumes inbound frames until the connection closes, then runs
// the eviction path for the session.
func (h *Hub) readLoop(s *session) {
	defer func() {
		h.logger.Info("Session disconnected", zap.String("sessionID", s.id))
		h.mu.Lock()
		delete(h.sessions, s.id)
		h.mu.Unlock()
		s.close()
		// Immediate eviction for clean disconnects; the sweep only covers
		// sessions that go silent without one.
		h.tracker.Evict(s.id)
	}()

	s.conn.SetReadLimit(maxFrameSize)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		h.route(s, data)
	}
}

// route refreshes liveness for the session and dispatches the envelope.
// Malformed envelopes are logged and dropped; the connection stays up.
func (h *Hub) route(s *session, data []byte) {
	h.tracker.Touch(s.id)

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.logger.Warn("Malformed envelope",
			zap.String("sessionID", s.id), zap.Error(err))
		return
	}

	switch env.Type {
	case TypeConnect:
		h.handleConnect(s, env.Data)
	case TypeHeartbeat:
		h.handleHeartbeat(env.Data)
	case TypeRelay:
		h.handleRelay(s, env.Data)
	case TypeRequest:
		h.handleRequest(env.Data)
	default:
		h.logger.Warn("Unknown envelope type",
			zap.String("type", env.Type), zap.String("sessionID", s.id))
	}
}

func (h *Hub) handleConnect(s *session, data json.RawMessage) {
	var req ConnectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.logger.Warn("Malformed connect request", zap.Error(err))
		return
	}

	if !h.directory.Authenticate(req.PeerID, req.Password) {
		h.sendTo(s, TypeConnectAck, ConnectAck{OK: false, Message: "Invalid credentials"})
		return
	}

	// A peer reconnecting on a fresh socket supersedes its old session;
	// evict the stale one first so registry and liveness stay in lockstep.
	if old, ok := h.registry.SessionOf(req.PeerID); ok && old != s.id {
		h.logger.Info("Superseding stale session",
			zap.String("peerID", req.PeerID), zap.String("sessionID", old))
		h.tracker.Evict(old)
	}

	if err := h.directory.UpdateConnectionInfo(req.PeerID, req.IPAddress, req.Port, s.id); err != nil {
		h.logger.Warn("Connect failed", zap.String("peerID", req.PeerID), zap.Error(err))
		h.sendTo(s, TypeConnectAck, ConnectAck{OK: false, Message: "Peer not found"})
		return
	}
	h.registry.Bind(req.PeerID, s.id)

	h.logger.Info("Peer connected",
		zap.String("peerID", req.PeerID), zap.String("sessionID", s.id))
	h.sendTo(s, TypeConnectAck, ConnectAck{OK: true, Message: "Connected successfully"})
}

func (h *Hub) handleHeartbeat(data json.RawMessage) {
	var msg HeartbeatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("Malformed heartbeat", zap.Error(err))
		return
	}
	h.directory.Heartbeat(msg.PeerID)
}

func (h *Hub) handleRelay(s *session, data json.RawMessage) {
	var msg relay.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("Malformed relay message",
			zap.String("sessionID", s.id), zap.Error(err))
		return
	}
	if h.dispatcher == nil {
		return
	}
	// The dispatcher has already answered the source on failure; the result
	// is for logging only.
	if err := h.dispatcher.Relay(&msg); err != nil {
		h.logger.Debug("Relay rejected", zap.Error(err))
	}
}

func (h *Hub) handleRequest(data json.RawMessage) {
	var req ConnectionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.logger.Warn("Malformed connection request", zap.Error(err))
		return
	}

	source, err := h.directory.Lookup(req.SourcePeerID)
	if err != nil || !source.Online {
		h.logger.Warn("Connection request from unknown or offline source",
			zap.String("sourcePeerID", req.SourcePeerID))
		return
	}
	target, err := h.directory.Lookup(req.TargetPeerID)
	if err != nil || !target.Online {
		h.logger.Warn("Connection request to unknown or offline target",
			zap.String("targetPeerID", req.TargetPeerID))
		return
	}

	notification := ConnectionRequestNotification{
		SourcePeerID: req.SourcePeerID,
		IPAddress:    source.IPAddress,
		Port:         source.Port,
	}
	if err := h.sendToPeer(req.TargetPeerID, TypeConnectRequest, notification); err != nil {
		h.logger.Warn("Connection request delivery failed",
			zap.String("targetPeerID", req.TargetPeerID), zap.Error(err))
		return
	}
	h.logger.Info("Connection request forwarded",
		zap.String("sourcePeerID", req.SourcePeerID),
		zap.String("targetPeerID", req.TargetPeerID))
}

// ForwardToPeer delivers a relay message to the target peer's session.
// Implements relay.Forwarder.
func (h *Hub) ForwardToPeer(peerID string, msg *relay.Message) error {
	return h.sendToPeer(peerID, TypeRelay, msg)
}

// NotifyError pushes a relay error notice to a peer. Best effort: if the
// peer has no resolvable session the notice is dropped with a log.
func (h *Hub) NotifyError(peerID, reason string) {
	if err := h.sendToPeer(peerID, TypeRelayError, ErrorNotice{Message: reason}); err != nil {
		h.logger.Debug("Dropped error notice",
			zap.String("peerID", peerID), zap.String("reason", reason), zap.Error(err))
	}
}

// CloseSession force-closes a session's connection, if it is still present.
// Invoked by the eviction path; unknown sessions are a no-op.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if ok {
		s.close()
	}
}

// sendToPeer resolves the peer's live session through the registry and
// queues the frame on it.
func (h *Hub) sendToPeer(peerID, msgType string, payload any) error {
	sessionID, ok := h.registry.SessionOf(peerID)
	if !ok {
		return fmt.Errorf("no live session for peer %s", peerID)
	}

	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s not connected", sessionID)
	}

	frame, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if !s.deliver(frame) {
		return errors.New("session send buffer full")
	}
	return nil
}

func (h *Hub) sendTo(s *session, msgType string, payload any) {
	frame, err := marshalEnvelope(msgType, payload)
	if err != nil {
		h.logger.Error("Marshal envelope failed", zap.Error(err))
		return
	}
	if !s.deliver(frame) {
		h.logger.Warn("Session send buffer full, frame dropped",
			zap.String("sessionID", s.id), zap.String("type", msgType))
	}
}
