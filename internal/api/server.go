package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/audit"
	"github.com/DaLongZhuaZi/rpi-panel/internal/auth"
	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
	"github.com/DaLongZhuaZi/rpi-panel/internal/gateway"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/config"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	History   config.HistoryConfig
	Logger    *logging.Logger
	Registry  *device.Registry
	Store     *device.Store
	Commands  *command.Service
	Locks     *doorlock.Manager
	Directory *auth.Directory
	AuditRepo audit.Repository // optional: audit endpoints answer 500 without it
	Audit     *audit.Recorder  // optional: login and command audit
	EventLog  *gateway.EventLog
	DB        *sql.DB           // optional: pool stats in /metrics
	MQTT      ConnectionChecker // optional: broker state in /metrics

	// DeviceChannel is mounted at DeviceChannelPath when both are set.
	DeviceChannel     http.Handler
	DeviceChannelPath string

	// Hub, if set, is used instead of a server-owned hub. The caller
	// registers it as a fan-out sink before devices connect.
	Hub     *Hub
	Version string
}

// Server is the HTTP API server of the panel.
//
// It serves the REST API, the observer WebSocket and the device channel on
// one listener. The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	history   config.HistoryConfig
	logger    *logging.Logger
	registry  *device.Registry
	store     *device.Store
	commands  *command.Service
	locks     *doorlock.Manager
	directory *auth.Directory
	auditRepo audit.Repository
	audit     *audit.Recorder
	eventLog  *gateway.EventLog
	db        *sql.DB
	mqtt      ConnectionChecker

	deviceChannel     http.Handler
	deviceChannelPath string

	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool
	tickets     *ticketStore
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// Returns an error if a required dependency is missing.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.Registry == nil:
		return nil, errors.New("device registry is required")
	case deps.Store == nil:
		return nil, errors.New("history store is required")
	case deps.Commands == nil:
		return nil, errors.New("command service is required")
	case deps.Locks == nil:
		return nil, errors.New("lock manager is required")
	case deps.Directory == nil:
		return nil, errors.New("operator directory is required")
	}

	s := &Server{
		cfg:               deps.Config,
		wsCfg:             deps.WS,
		secCfg:            deps.Security,
		history:           deps.History,
		logger:            deps.Logger,
		registry:          deps.Registry,
		store:             deps.Store,
		commands:          deps.Commands,
		locks:             deps.Locks,
		directory:         deps.Directory,
		auditRepo:         deps.AuditRepo,
		audit:             deps.Audit,
		eventLog:          deps.EventLog,
		db:                deps.DB,
		mqtt:              deps.MQTT,
		deviceChannel:     deps.DeviceChannel,
		deviceChannelPath: deps.DeviceChannelPath,
		version:           deps.Version,
		startTime:         time.Now(),
		tickets:           newTicketStore(),
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.Logger)
	}

	return s, nil
}

// Hub returns the observer hub. Register it with the fan-out so that
// observers receive events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with every route and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete. Hijacked
// WebSocket connections are not covered by Shutdown; the hub and the
// device channel close their own.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}

	return nil
}

// queryLimit returns the configured default history limit.
func (s *Server) queryLimit() int {
	if s.history.DefaultQueryLimit > 0 {
		return s.history.DefaultQueryLimit
	}
	return defaultQueryLimit
}
