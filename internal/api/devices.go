package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
)

// defaultQueryLimit applies when no history limit is configured.
const defaultQueryLimit = 100

// handleListDevices returns every known device in registration order.
//
// Query parameters:
//   - online: "true" returns only devices with a live session
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var devices []device.Device
	if r.URL.Query().Get("online") == "true" {
		devices = s.registry.ListOnline()
	} else {
		devices = s.registry.List()
	}

	total, online := s.registry.Count()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
		"total":   total,
		"online":  online,
	})
}

// handleGetDevice returns one device record.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := s.registry.LookupDevice(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeviceHistory returns the status or sensor history of a device,
// most recent last. Devices that never reported get an empty list.
//
// Query parameters:
//   - kind: "status" (default) or a sensor type
//   - limit: max records (default from history.default_query_limit, 0 = all)
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = device.KindStatus
	}
	limit, ok := queryInt(w, r, "limit", s.queryLimit())
	if !ok {
		return
	}

	records := s.store.History(id, kind, limit)
	body := map[string]any{
		"deviceId": id,
		"kind":     kind,
		"records":  records,
		"count":    len(records),
		"capacity": s.store.Capacity(kind),
	}
	if latest, ok := s.store.Latest(id, kind); ok {
		body["latest"] = latest
	}
	writeJSON(w, http.StatusOK, body)
}

// handleDeviceSensors lists the sensor types recorded for a device.
func (s *Server) handleDeviceSensors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]any{
		"deviceId":    id,
		"sensorTypes": s.store.SensorTypes(id),
	})
}

// handleDeviceResults returns the command results a device reported,
// most recent last. The id "all" selects every device.
func (s *Server) handleDeviceResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "all" {
		id = ""
	}
	limit, ok := queryInt(w, r, "limit", s.queryLimit())
	if !ok {
		return
	}

	results := s.commands.Correlator().Results(id, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
		"pending": s.commands.Correlator().Pending(),
	})
}

// queryInt parses a non-negative integer query parameter. On a bad value
// it writes a 400 response and returns false.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
