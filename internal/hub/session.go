package hub

import (
	"time"

	"supply-service/internal/models"
	"supply-service/internal/util"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Session wraps one websocket connection. Its Send side is a buffered
// channel drained by the write pump; a full buffer drops the frame
// rather than blocking the emitter.
type Session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewSession wires a websocket connection into the hub and starts its
// pumps. The session unregisters itself when the connection drops.
func NewSession(h *Hub, conn *websocket.Conn, userID string, role models.Role) *Session {
	s := &Session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.Register(userID, role, s)

	go s.writePump()
	go s.readPump()

	return s
}

// Send implements Sink. Non-blocking; reports whether the frame was
// queued for delivery.
func (s *Session) Send(data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients don't speak on this channel; the read loop only notices
	// disconnects and keepalive pongs.
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				util.GetLogger().Debug("Websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
