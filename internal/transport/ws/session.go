package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// maxFrameSize bounds inbound frames; the relay payload ceiling plus
	// envelope overhead fits well inside 1 MiB.
	maxFrameSize = 1 << 20

	// sendBuffer is the per-session outbound queue depth. A full queue means
	// the client cannot keep up; delivery to it fails rather than blocking
	// the relay path.
	sendBuffer = 64

	writeWait = 15 * time.Second
)

// session is one live WebSocket connection. All writes go through the send
// channel and the single write pump. The send channel is never closed;
// shutdown is signalled through done so concurrent deliver calls cannot
// race a channel close.
type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	logger    *zap.Logger
}

func newSession(id string, conn *websocket.Conn, logger *zap.Logger) *session {
	return &session{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// deliver queues a frame without blocking. Returns false when the session is
// closed or its send buffer is full.
func (s *session) deliver(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// close shuts the connection down; safe to call from any goroutine, any
// number of times.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// writePump drains the send channel onto the connection until the session
// closes or a write fails.
func (s *session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("Session write failed",
					zap.String("sessionID", s.id), zap.Error(err))
				s.close()
				return
			}
		}
	}
}
