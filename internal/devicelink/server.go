package devicelink

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/config"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// Defaults applied when the configuration leaves a field at zero.
const (
	DefaultSendBuffer     = 64
	DefaultMaxMessageSize = 64 * 1024
	DefaultPingInterval   = 25 * time.Second
	DefaultPongTimeout    = 20 * time.Second
)

// Handler consumes what devices send. HandleInbound is called from the
// session's read goroutine, so messages of one session arrive in order.
// HandleClose is called exactly once per session, after its last message.
type Handler interface {
	HandleInbound(s *Session, msg protocol.Inbound)
	HandleClose(s *Session)
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Server accepts device connections. It implements http.Handler and is
// mounted at the device channel path.
type Server struct {
	token          string
	sendBuffer     int
	maxMessageSize int64
	pingInterval   time.Duration
	pongTimeout    time.Duration

	handler  Handler
	logger   Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
	closing  bool
	wg       sync.WaitGroup
}

// NewServer creates a device channel server that reports to handler.
func NewServer(cfg config.DeviceChannelConfig, handler Handler) *Server {
	s := &Server{
		token:          cfg.Token,
		sendBuffer:     cfg.SendBuffer,
		maxMessageSize: int64(cfg.MaxMessageSize),
		pingInterval:   time.Duration(cfg.PingInterval) * time.Second,
		pongTimeout:    time.Duration(cfg.PongTimeout) * time.Second,
		handler:        handler,
		logger:         noopLogger{},
		sessions:       make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Devices are not browsers; the token is the access control.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if s.sendBuffer < 1 {
		s.sendBuffer = DefaultSendBuffer
	}
	if s.maxMessageSize < 1 {
		s.maxMessageSize = DefaultMaxMessageSize
	}
	if s.pingInterval <= 0 {
		s.pingInterval = DefaultPingInterval
	}
	if s.pongTimeout <= 0 {
		s.pongTimeout = DefaultPongTimeout
	}
	return s
}

// SetLogger sets the logger for the server.
func (s *Server) SetLogger(logger Logger) {
	s.logger = logger
}

// ServeHTTP authenticates and upgrades a device connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.authorised(r) {
		s.logger.Warn("device channel rejected", "remote", r.RemoteAddr, "error", ErrUnauthorised)
		http.Error(w, "unauthorised", http.StatusUnauthorized)
		return
	}
	if s.isClosing() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("device channel upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	session := newSession(conn, r.RemoteAddr, s.sendBuffer)

	// Registration and wg.Add happen under s.mu so Shutdown either sees
	// the session or this upgrade sees closing.
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.logger.Debug("device session refused during shutdown", "remote", r.RemoteAddr, "error", ErrShuttingDown)
		//nolint:errcheck // Best-effort close message
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	s.sessions[session.ID()] = session
	s.wg.Add(2) //nolint:mnd // read + write pumps
	s.mu.Unlock()

	s.logger.Info("device session opened", "session", session.ID(), "remote", session.RemoteAddr())

	go s.writePump(session)
	go s.readPump(session)
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// authorised accepts "Authorization: Bearer <token>" or ?token=<token>.
// An empty configured token disables the check.
func (s *Server) authorised(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	presented := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		presented = strings.TrimPrefix(h, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) == 1
}

func (s *Server) readPump(session *Session) {
	defer func() {
		session.Close()
		s.mu.Lock()
		delete(s.sessions, session.ID())
		s.mu.Unlock()

		s.logger.Info("device session closed", "session", session.ID())
		s.handler.HandleClose(session)
		s.wg.Done()
	}()

	conn := session.conn
	conn.SetReadLimit(s.maxMessageSize)
	//nolint:errcheck // Best-effort deadline on connection setup
	conn.SetReadDeadline(time.Now().Add(s.pingInterval + s.pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pingInterval + s.pongTimeout))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("device session read error", "session", session.ID(), "error", err)
			}
			return
		}
		// Any frame proves the device is alive.
		//nolint:errcheck // Best-effort deadline reset
		conn.SetReadDeadline(time.Now().Add(s.pingInterval + s.pongTimeout))

		msg, err := protocol.DecodeEnvelope(frame)
		if err != nil {
			s.logger.Warn("dropping malformed device frame", "session", session.ID(), "error", err)
			continue
		}
		s.handler.HandleInbound(session, msg)
	}
}

func (s *Server) writePump(session *Session) {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		session.Close()
		session.conn.Close()
		s.wg.Done()
	}()

	conn := session.conn
	for {
		select {
		case frame := <-session.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			conn.SetWriteDeadline(time.Now().Add(s.pongTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("device session write failed", "session", session.ID(), "error", err)
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			conn.SetWriteDeadline(time.Now().Add(s.pongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-session.done:
			//nolint:errcheck // Best-effort close message
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// Count returns the number of open sessions.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// OldestSession returns when the longest-lived open session was accepted.
// ok is false when no session is open.
func (s *Server) OldestSession() (openedAt time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if !ok || session.OpenedAt().Before(openedAt) {
			openedAt, ok = session.OpenedAt(), true
		}
	}
	return openedAt, ok
}

// Shutdown closes every open session and waits for their goroutines.
// Upgrades arriving afterwards are refused.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closing = true
	open := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		open = append(open, session)
	}
	s.mu.Unlock()

	for _, session := range open {
		session.Close()
	}
	s.wg.Wait()
}
