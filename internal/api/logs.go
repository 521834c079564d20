package api

import (
	"errors"
	"net/http"

	"github.com/DaLongZhuaZi/rpi-panel/internal/gateway"
)

// handleListLogs returns the operation log of one scope, oldest first.
//
// Query parameters:
//   - scope: system (default), device, gpio, i2c, control, door
//   - deviceId: with scope=device, one device's entries
//   - limit: max entries (default from history.default_query_limit, 0 = all)
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	if s.eventLog == nil {
		writeInternalError(w, "event log not configured")
		return
	}

	q := r.URL.Query()
	scope := gateway.Scope(q.Get("scope"))
	if scope == "" {
		scope = gateway.ScopeSystem
	}
	limit, ok := queryInt(w, r, "limit", s.queryLimit())
	if !ok {
		return
	}

	entries, err := s.eventLog.Entries(scope, q.Get("deviceId"), limit)
	if errors.Is(err, gateway.ErrUnknownScope) {
		writeBadRequest(w, "unknown log scope "+string(scope))
		return
	}
	if err != nil {
		writeInternalError(w, "failed to read logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scope":   scope,
		"entries": entries,
		"count":   len(entries),
	})
}

// handleClearLogs drops every operation log entry.
func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if s.eventLog == nil {
		writeInternalError(w, "event log not configured")
		return
	}
	s.eventLog.Clear()
	s.logger.Info("operation log cleared", "by", principalFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
