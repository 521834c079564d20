package device

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session is one live transport connection. The registry only records which
// session currently represents a device; it never opens or closes sessions.
type Session interface {
	ID() string
	Emit(event string, payload any) error
}

// ConnectedEvent is published when a device becomes bound to a session.
type ConnectedEvent struct {
	DeviceID  string    `json:"deviceId"`
	Device    Device    `json:"deviceInfo"`
	Timestamp time.Time `json:"timestamp"`
}

// DisconnectedEvent is published when a device loses its session.
type DisconnectedEvent struct {
	DeviceID  string    `json:"deviceId"`
	Timestamp time.Time `json:"timestamp"`
}

// entry is the registry's private record for one device.
type entry struct {
	device  *Device
	session Session
	order   int
}

// binding is the session index value.
type binding struct {
	deviceID   string
	generation uint64
}

// Registry is the authoritative in-memory map of known devices, with a
// secondary index from session ID to device ID.
//
// Invariants:
//   - at most one device per session ID
//   - at most one live session per device; a new registration supersedes
//     the old binding and the old session becomes stale
//   - device records are never removed
//
// All public methods are thread-safe. Returned devices are deep copies.
type Registry struct {
	mu         sync.RWMutex
	devices    map[string]*entry
	sessions   map[string]binding
	generation uint64
	nextOrder  int

	publisher fanout.Publisher
	logger    Logger
	now       func() time.Time
}

// NewRegistry creates an empty registry. A nil publisher disables
// connect/disconnect notifications.
func NewRegistry(publisher fanout.Publisher) *Registry {
	return &Registry{
		devices:   make(map[string]*entry),
		sessions:  make(map[string]binding),
		publisher: publisher,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register binds session to deviceID and marks the device online.
//
// It is an idempotent upsert: an existing record keeps its history and has
// its mutable fields overwritten by any non-empty attributes. If the device
// was bound to another session, that binding is dropped. If the session was
// bound to another device, that device goes offline.
//
// Returns:
//   - *Device: copy of the device after registration
//   - error: ErrInvalidRegistration when deviceID is empty, ErrNilSession
//     when session is nil
func (r *Registry) Register(deviceID string, session Session, attrs Attributes) (*Device, error) {
	if deviceID == "" {
		return nil, ErrInvalidRegistration
	}
	if session == nil {
		return nil, fmt.Errorf("%w: device %s", ErrNilSession, deviceID)
	}

	now := r.now()
	sessionID := session.ID()
	var displaced *DisconnectedEvent

	r.mu.Lock()

	// The session may already speak for another device.
	if prev, ok := r.sessions[sessionID]; ok && prev.deviceID != deviceID {
		if other := r.devices[prev.deviceID]; other != nil && other.device.Generation == prev.generation {
			r.markOffline(other, now)
			displaced = &DisconnectedEvent{DeviceID: prev.deviceID, Timestamp: now}
		}
	}

	e, exists := r.devices[deviceID]
	if !exists {
		e = &entry{
			device: &Device{
				ID:           deviceID,
				Type:         TypeUnknown,
				DisplayName:  "Device " + deviceID,
				RegisteredAt: now,
			},
			order: r.nextOrder,
		}
		r.nextOrder++
		r.devices[deviceID] = e
	}

	rebound := !exists || !e.device.IsOnline() || e.device.SessionID != sessionID
	if e.session != nil && e.device.SessionID != sessionID {
		delete(r.sessions, e.device.SessionID)
		r.logger.Info("superseding device session",
			"device_id", deviceID,
			"old_session", e.device.SessionID,
			"new_session", sessionID,
		)
	}

	applyAttributes(e.device, attrs)

	r.generation++
	e.session = session
	e.device.SessionID = sessionID
	e.device.Generation = r.generation
	e.device.Status = StatusOnline
	e.device.LastSeen = now
	r.sessions[sessionID] = binding{deviceID: deviceID, generation: r.generation}

	snapshot := e.device.DeepCopy()
	r.mu.Unlock()

	if displaced != nil {
		r.publish(fanout.TopicDeviceDisconnected, *displaced)
	}
	if rebound {
		r.logger.Info("device connected", "device_id", deviceID, "session", sessionID, "type", snapshot.Type)
		r.publish(fanout.TopicDeviceConnected, ConnectedEvent{
			DeviceID:  deviceID,
			Device:    *snapshot,
			Timestamp: now,
		})
	}

	return snapshot, nil
}

func applyAttributes(d *Device, attrs Attributes) {
	if attrs.Type != "" {
		d.Type = attrs.Type
	}
	if attrs.Name != "" {
		d.DisplayName = attrs.Name
	}
	if attrs.IPAddress != "" {
		d.IPAddress = attrs.IPAddress
	}
	if attrs.HardwareInfo != nil {
		d.HardwareInfo = deepCopyMap(attrs.HardwareInfo)
	}
}

// markOffline clears the live binding of e. Caller holds r.mu.
func (r *Registry) markOffline(e *entry, now time.Time) {
	e.session = nil
	e.device.SessionID = ""
	e.device.Status = StatusOffline
	e.device.LastSeen = now
}

// Unbind handles the close of sessionID. The bound device goes offline and
// keeps its record and history.
//
// Unknown or superseded sessions are ignored, so a disconnect of an old
// session that arrives after the device reconnected leaves the new binding
// intact.
//
// Returns the device that went offline and true, or "" and false when
// nothing was bound.
func (r *Registry) Unbind(sessionID string) (string, bool) {
	now := r.now()

	r.mu.Lock()
	b, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	delete(r.sessions, sessionID)

	e := r.devices[b.deviceID]
	if e == nil || e.device.Generation != b.generation || !e.device.IsOnline() {
		r.mu.Unlock()
		r.logger.Debug("ignoring stale session close", "session", sessionID, "device_id", b.deviceID)
		return "", false
	}
	r.markOffline(e, now)
	r.mu.Unlock()

	r.logger.Info("device disconnected", "device_id", b.deviceID, "session", sessionID)
	r.publish(fanout.TopicDeviceDisconnected, DisconnectedEvent{DeviceID: b.deviceID, Timestamp: now})

	return b.deviceID, true
}

// LookupBySession returns the device bound to sessionID.
func (r *Registry) LookupBySession(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	return b.deviceID, true
}

// LookupDevice returns a copy of the device record.
func (r *Registry) LookupDevice(deviceID string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.devices[deviceID]
	if !ok {
		return nil, false
	}
	return e.device.DeepCopy(), true
}

// Session returns the live session for deviceID. Callers must resolve the
// session at send time and never cache it.
func (r *Registry) Session(deviceID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.devices[deviceID]
	if !ok || e.session == nil {
		return nil, false
	}
	return e.session, true
}

// List returns copies of every known device in registration order.
func (r *Registry) List() []Device {
	return r.list(func(*Device) bool { return true })
}

// ListOnline returns copies of the devices that currently have a session.
func (r *Registry) ListOnline() []Device {
	return r.list((*Device).IsOnline)
}

func (r *Registry) list(keep func(*Device) bool) []Device {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.devices))
	for _, e := range r.devices {
		if keep(e.device) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })

	out := make([]Device, len(entries))
	for i, e := range entries {
		out[i] = *e.device.DeepCopy()
	}
	r.mu.RUnlock()
	return out
}

// ApplyStatus stores the latest status report of a device and refreshes
// lastSeen. A nil hardware map leaves hardwareInfo unchanged.
// Unknown devices are ignored; the return value reports whether the
// device was known.
func (r *Registry) ApplyStatus(deviceID string, status, hardware map[string]any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.devices[deviceID]
	if !ok {
		return false
	}
	if status != nil {
		e.device.LastStatus = deepCopyMap(status)
	}
	if hardware != nil {
		e.device.HardwareInfo = deepCopyMap(hardware)
	}
	e.device.LastSeen = r.now()
	return true
}

// SetSensor records the latest reading of sensorType on the device.
// Unknown devices are ignored.
func (r *Registry) SetSensor(deviceID, sensorType string, reading map[string]any, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.devices[deviceID]
	if !ok {
		return false
	}
	if e.device.Sensors == nil {
		e.device.Sensors = make(map[string]SensorState)
	}
	e.device.Sensors[sensorType] = SensorState{
		LastReading:  deepCopyMap(reading),
		LastReadTime: at,
	}
	e.device.LastSeen = at
	return true
}

// Count returns the number of known and online devices.
func (r *Registry) Count() (total, online int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.devices {
		total++
		if e.device.IsOnline() {
			online++
		}
	}
	return total, online
}

func (r *Registry) publish(topic string, payload any) {
	if r.publisher != nil {
		r.publisher.Publish(topic, payload)
	}
}
