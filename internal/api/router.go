package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DaLongZhuaZi/rpi-panel/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Devices authenticate with the channel token, not a JWT.
	if s.deviceChannel != nil && s.deviceChannelPath != "" {
		r.Handle(s.deviceChannelPath, s.deviceChannel)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/metrics", s.handleMetrics)

		// Browsers cannot set headers on a WebSocket upgrade; the ticket
		// is checked in the handler.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/auth/me", s.handleMe)

			r.Route("/devices", func(r chi.Router) {
				r.With(requirePermission(auth.PermDeviceRead)).Get("/", s.handleListDevices)

				r.Route("/{id}", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(requirePermission(auth.PermDeviceRead))
						r.Get("/", s.handleGetDevice)
						r.Get("/history", s.handleDeviceHistory)
						r.Get("/sensors", s.handleDeviceSensors)
						r.Get("/results", s.handleDeviceResults)
					})
					r.Group(func(r chi.Router) {
						r.Use(requirePermission(auth.PermDeviceCommand))
						r.Post("/gpio", s.handleGPIOCommand)
						r.Post("/i2c", s.handleI2CCommand)
						r.Post("/system", s.handleSystemCommand)
					})
				})
			})

			r.Route("/locks", func(r chi.Router) {
				r.With(requirePermission(auth.PermDeviceRead)).Get("/", s.handleListLocks)

				r.Route("/{id}", func(r chi.Router) {
					r.With(requirePermission(auth.PermDeviceRead)).Get("/", s.handleGetLock)

					r.Group(func(r chi.Router) {
						r.Use(requirePermission(auth.PermLockOperate))
						r.Post("/unlock", s.handleUnlock)
						r.Post("/lock", s.handleLock)
					})
					r.Group(func(r chi.Router) {
						r.Use(requirePermission(auth.PermLockManage))
						r.Put("/auto-lock-delay", s.handleSetAutoLockDelay)
						r.Get("/credentials", s.handleListCredentials)
						r.Post("/credentials", s.handleAddCredential)
						r.Delete("/credentials/{kind}/{principal}", s.handleRemoveCredential)
					})
				})
			})

			r.With(requirePermission(auth.PermDeviceRead)).Get("/logs", s.handleListLogs)
			r.With(requirePermission(auth.PermLogManage)).Delete("/logs", s.handleClearLogs)
			r.With(requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	total, online := s.registry.Count()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"devices":   total,
		"online":    online,
		"locks":     len(s.locks.List()),
		"observers": s.hub.ClientCount(),
	})
}
