// Package ws provides the WebSocket transport edge: one session per
// connection, JSON envelopes, and peer-addressed delivery backed by the
// session registry.
package ws

import "encoding/json"

// Envelope message types. Clients send peer.connect, peer.heartbeat,
// relay.data and peer.request; the server sends connect.ack, relay.data,
// relay.error and connect.request.
const (
	TypeConnect        = "peer.connect"
	TypeHeartbeat      = "peer.heartbeat"
	TypeRelay          = "relay.data"
	TypeRequest        = "peer.request"
	TypeConnectAck     = "connect.ack"
	TypeRelayError     = "relay.error"
	TypeConnectRequest = "connect.request"
)

// Envelope is the JSON frame exchanged over the WebSocket.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ConnectRequest authenticates a peer and binds it to the session.
type ConnectRequest struct {
	PeerID    string `json:"peerId"`
	Password  string `json:"password"`
	IPAddress string `json:"ipAddress"`
	Port      int    `json:"port"`
}

// HeartbeatMessage refreshes a peer's last-seen timestamp.
type HeartbeatMessage struct {
	PeerID string `json:"peerId"`
}

// ConnectAck is the server's reply to a connect attempt.
type ConnectAck struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ErrorNotice carries a human-readable relay failure reason back to the
// source peer.
type ErrorNotice struct {
	Message string `json:"message"`
}

// ConnectionRequest asks the server to introduce the source peer to the
// target so they can attempt a direct connection.
type ConnectionRequest struct {
	SourcePeerID string `json:"sourcePeerId"`
	TargetPeerID string `json:"targetPeerId"`
}

// ConnectionRequestNotification is pushed to the target peer with the
// source's last-reported address.
type ConnectionRequestNotification struct {
	SourcePeerID string `json:"sourcePeerId"`
	IPAddress    string `json:"ipAddress"`
	Port         int    `json:"port"`
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Data: data})
}
