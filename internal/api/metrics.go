package api

import (
	"net/http"
	"runtime"
	"time"
)

// ConnectionChecker reports whether an optional link is up.
// *mqtt.Client implements it.
type ConnectionChecker interface {
	IsConnected() bool
}

// sessionStats is implemented by the device channel server.
type sessionStats interface {
	Count() int
	OldestSession() (time.Time, bool)
}

// SystemMetrics is the GET /metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	Observers     int             `json:"observers"`
	Sessions      int             `json:"device_sessions"`
	OldestSession int64           `json:"oldest_session_age_seconds,omitempty"`
	MQTT          *MQTTMetrics    `json:"mqtt,omitempty"`
	Devices       DeviceMetrics   `json:"devices"`
	Locks         LockMetrics     `json:"locks"`
	Commands      CommandMetrics  `json:"commands"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains broker link statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// DeviceMetrics contains device registry statistics.
type DeviceMetrics struct {
	Total  int            `json:"total"`
	Online int            `json:"online"`
	ByType map[string]int `json:"by_type"`
}

// LockMetrics counts locks by state.
type LockMetrics struct {
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"by_status"`
	LockedOut int            `json:"locked_out"`
}

// CommandMetrics describes the correlator tables.
type CommandMetrics struct {
	Pending int `json:"pending"`
	Results int `json:"results"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns a snapshot of the panel's internals.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Observers: s.hub.ClientCount(),
		Commands: CommandMetrics{
			Pending: s.commands.Correlator().Pending(),
			Results: len(s.commands.Correlator().Results("", 0)),
		},
	}

	if c, ok := s.deviceChannel.(sessionStats); ok {
		metrics.Sessions = c.Count()
		if openedAt, open := c.OldestSession(); open {
			metrics.OldestSession = int64(time.Since(openedAt).Seconds())
		}
	}
	if s.mqtt != nil {
		metrics.MQTT = &MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}

	devices := s.registry.List()
	metrics.Devices = DeviceMetrics{Total: len(devices), ByType: make(map[string]int)}
	for _, d := range devices {
		metrics.Devices.ByType[d.Type]++
		if d.IsOnline() {
			metrics.Devices.Online++
		}
	}

	locks := s.locks.List()
	metrics.Locks = LockMetrics{Total: len(locks), ByStatus: make(map[string]int)}
	for _, l := range locks {
		metrics.Locks.ByStatus[string(l.Status)]++
		if l.LockedOut {
			metrics.Locks.LockedOut++
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
