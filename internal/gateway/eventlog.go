package gateway

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// DefaultLogCapacity bounds each scope of the event log.
const DefaultLogCapacity = 1000

// ErrUnknownScope is returned for scopes the event log does not keep.
var ErrUnknownScope = errors.New("gateway: unknown log scope")

// Level is the severity of a log entry.
type Level string

// Log levels.
const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Scope selects one of the event log's rings.
type Scope string

// Log scopes. ScopeDevice is split per device ID.
const (
	ScopeSystem  Scope = "system"
	ScopeDevice  Scope = "device"
	ScopeGPIO    Scope = "gpio"
	ScopeI2C     Scope = "i2c"
	ScopeControl Scope = "control"
	ScopeDoor    Scope = "door"
)

// Scopes lists every scope accepted by Entries.
var Scopes = []Scope{ScopeSystem, ScopeDevice, ScopeGPIO, ScopeI2C, ScopeControl, ScopeDoor}

// LogEntry is one line of the operation log.
type LogEntry struct {
	Level     Level     `json:"level"`
	DeviceID  string    `json:"deviceId,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventLog is a bounded, human-readable log of what happened on the
// panel, kept in memory for the operator console. It is a fanout.Sink:
// device, result and door events are turned into entries as they are
// published. Each scope, and each device, keeps its newest entries only.
//
// All public methods are thread-safe.
type EventLog struct {
	mu       sync.RWMutex
	capacity int
	scopes   map[Scope]*device.Ring[LogEntry]
	devices  map[string]*device.Ring[LogEntry]

	now func() time.Time
}

// NewEventLog creates an event log. capacity below 1 falls back to
// DefaultLogCapacity.
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = DefaultLogCapacity
	}
	l := &EventLog{
		capacity: capacity,
		now:      time.Now,
	}
	l.reset()
	return l
}

func (l *EventLog) reset() {
	l.scopes = make(map[Scope]*device.Ring[LogEntry], len(Scopes))
	for _, s := range Scopes {
		if s != ScopeDevice {
			l.scopes[s] = device.NewRing[LogEntry](l.capacity)
		}
	}
	l.devices = make(map[string]*device.Ring[LogEntry])
}

// System appends an entry to the system scope.
func (l *EventLog) System(level Level, message string) {
	l.add(ScopeSystem, "", level, message)
}

// Device appends an entry to one device's log.
func (l *EventLog) Device(deviceID string, level Level, message string) {
	l.add(ScopeDevice, deviceID, level, message)
}

func (l *EventLog) add(scope Scope, deviceID string, level Level, message string) {
	entry := LogEntry{Level: level, DeviceID: deviceID, Message: message, Timestamp: l.now()}

	l.mu.Lock()
	defer l.mu.Unlock()

	if scope == ScopeDevice {
		ring, ok := l.devices[deviceID]
		if !ok {
			ring = device.NewRing[LogEntry](l.capacity)
			l.devices[deviceID] = ring
		}
		ring.Push(entry)
		return
	}
	if ring, ok := l.scopes[scope]; ok {
		ring.Push(entry)
	}
}

// Entries returns up to limit entries of scope, oldest first. limit <= 0
// returns everything kept. For ScopeDevice, deviceID selects one device;
// an empty deviceID merges every device's entries by time.
func (l *EventLog) Entries(scope Scope, deviceID string, limit int) ([]LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if scope != ScopeDevice {
		ring, ok := l.scopes[scope]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
		}
		return ring.Last(limit), nil
	}

	if deviceID != "" {
		ring, ok := l.devices[deviceID]
		if !ok {
			return []LogEntry{}, nil
		}
		return ring.Last(limit), nil
	}

	all := []LogEntry{}
	for _, ring := range l.devices {
		all = append(all, ring.Last(0)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// Clear drops every entry.
func (l *EventLog) Clear() {
	l.mu.Lock()
	l.reset()
	l.mu.Unlock()
}

// Deliver implements fanout.Sink.
func (l *EventLog) Deliver(topic string, payload any) {
	switch p := payload.(type) {
	case device.ConnectedEvent:
		l.Device(p.DeviceID, LevelInfo, "device registered: "+p.Device.DisplayName)
	case device.DisconnectedEvent:
		l.Device(p.DeviceID, LevelWarn, "device disconnected")
	case StatusEvent:
		l.Device(p.DeviceID, LevelInfo, "status updated")
	case SensorEvent:
		l.Device(p.DeviceID, LevelInfo, "sensor data updated: "+p.SensorType)
	case command.Result:
		l.result(p)
	case doorlock.UnlockedEvent:
		msg := fmt.Sprintf("door unlocked via %s", p.Method)
		if p.Principal != "" {
			msg += " by " + p.Principal
		}
		l.add(ScopeDoor, p.DeviceID, LevelInfo, msg)
		l.Device(p.DeviceID, LevelInfo, msg)
	case doorlock.LockedEvent:
		msg := fmt.Sprintf("door locked (%s)", p.Reason)
		l.add(ScopeDoor, p.DeviceID, LevelInfo, msg)
		l.Device(p.DeviceID, LevelInfo, msg)
	case doorlock.ErrorEvent:
		l.add(ScopeDoor, p.DeviceID, LevelError, "door error: "+p.Error)
		l.Device(p.DeviceID, LevelError, "door error: "+p.Error)
	default:
		if topic != fanout.TopicDoorStatus {
			l.System(LevelInfo, "event "+topic)
		}
	}
}

func (l *EventLog) result(r command.Result) {
	scope := ScopeControl
	switch r.Subsystem {
	case protocol.SubsystemGPIO:
		scope = ScopeGPIO
	case protocol.SubsystemI2C:
		scope = ScopeI2C
	}

	level, outcome := LevelInfo, "succeeded"
	if !r.Success {
		level, outcome = LevelError, "failed"
	}
	msg := fmt.Sprintf("%s %s", r.Subsystem, r.Command)
	if r.Target != "" {
		msg += " " + r.Target
	}
	msg += " " + outcome
	if r.Error != "" {
		msg += ": " + r.Error
	}

	l.add(scope, r.DeviceID, level, msg)
	l.Device(r.DeviceID, level, msg)
}
