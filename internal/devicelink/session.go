package devicelink

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// Session is one live device connection. It implements device.Session.
type Session struct {
	id         string
	remoteAddr string
	openedAt   time.Time

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn, remoteAddr string, buffer int) *Session {
	return &Session{
		id:         "ses-" + uuid.NewString(),
		remoteAddr: remoteAddr,
		openedAt:   time.Now(),
		conn:       conn,
		send:       make(chan []byte, buffer),
		done:       make(chan struct{}),
	}
}

// ID returns the session identifier. It is unique for the process lifetime.
func (s *Session) ID() string {
	return s.id
}

// RemoteAddr returns the peer address as seen by the server.
func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// OpenedAt returns when the connection was accepted.
func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// Emit queues an event for the device. It never blocks: a closed session
// returns ErrSessionClosed and a full buffer returns ErrSendBufferFull.
func (s *Session) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	frame, err := json.Marshal(protocol.Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", event, err)
	}

	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- frame:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return fmt.Errorf("%w: %s", ErrSendBufferFull, event)
	}
}

// Close marks the session closed. The write goroutine then sends a close
// frame and releases the connection. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
